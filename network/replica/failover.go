package replica

import (
	"time"

	"branchstore/configs"
	"branchstore/network"
)

// failover replaces an unreachable master. The node that detected the
// failure promotes itself, tells the surviving peers, updates its own
// registry, waits for the cluster to settle, and retries the acquisition
// against the new master (itself). Concurrent detectors can both promote;
// that split-brain window is a known limitation of the unconditional
// self-promotion policy.
func (m *Manager) failover() error {
	oldID, err := m.registry.MasterID()
	if err != nil {
		return err
	}
	newID := m.registry.SelfID()
	configs.DPrintf("election: node %v selected as new master, node %v marked down", newID, oldID)

	msg := network.NewMasterMsg(oldID, newID)
	for _, peer := range m.registry.ActivePeersExcluding(oldID) {
		if err := sendMsg(peer.Addr, msg); err != nil {
			configs.Warn(false, "master change broadcast to "+peer.Addr+" failed: "+err.Error())
		}
	}
	m.registry.SetMaster(oldID, newID)

	time.Sleep(configs.FailoverSettleTime)
	return m.AcquirePermission()
}
