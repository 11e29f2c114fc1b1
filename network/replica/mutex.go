package replica

import (
	"branchstore/configs"
	"branchstore/utils"
)

// The master-mutex client side. A node always asks the current master over
// the network, including when the master is itself; the single code path is
// what lets the failover retry terminate (asking yourself cannot fail with
// the network errors that trigger failover).

// AcquirePermission blocks until the master grants the global write lock.
// An unreachable master triggers failover and a retry against the new one.
func (m *Manager) AcquirePermission() error {
	addr, err := m.registry.MasterAddr()
	if err != nil {
		return err
	}
	reply, err := sendRecv(addr, configs.AcquirePermission, configs.AcquireReplyTimeout)
	if err != nil {
		if peerUnreachable(err) {
			return m.failover()
		}
		if isTimeout(err) {
			return utils.TransportError("master %v unresponsive: %v", addr, err)
		}
		return utils.TransportError("permission acquire failed: %v", err)
	}
	if reply != configs.AuthorizedPermission {
		return utils.ProtocolError("unexpected grant reply %q", reply)
	}
	configs.DPrintf("mutual exclusion: permission authorized by %v", addr)
	return nil
}

// ReleasePermission frees the global write lock. A caller must release
// before handing control back to the UI; the lock is never held across
// human input.
func (m *Manager) ReleasePermission() {
	addr, err := m.registry.MasterAddr()
	if err != nil {
		configs.Warn(false, "release with no live master: "+err.Error())
		return
	}
	if err := sendMsg(addr, configs.ReleasePermission); err != nil {
		configs.Warn(false, "permission release failed: "+err.Error())
	}
}
