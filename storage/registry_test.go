package storage

import (
	"testing"

	"github.com/magiconair/properties/assert"

	"branchstore/configs"
)

func seedTable() []configs.Branch {
	return []configs.Branch{
		{ID: 1, Addr: "127.0.0.1:7001", Status: 1, Capacity: 2},
		{ID: 2, Addr: "127.0.0.1:7002", Status: 1, Capacity: 3},
		{ID: 3, Addr: "127.0.0.1:7003", IsMaster: true, Status: 1, Capacity: 5},
	}
}

func TestRegistrySeed(t *testing.T) {
	r := NewRegistry(1, seedTable())
	assert.Equal(t, 1, r.SelfID())
	assert.Equal(t, "127.0.0.1:7001", r.SelfAddr())
	assert.Equal(t, false, r.IsSelfMaster())

	id, err := r.MasterID()
	assert.Equal(t, nil, err)
	assert.Equal(t, 3, id)
	addr, err := r.MasterAddr()
	assert.Equal(t, nil, err)
	assert.Equal(t, "127.0.0.1:7003", addr)
	assert.Equal(t, 3, r.ActiveCount())
}

func TestRegistryPeers(t *testing.T) {
	r := NewRegistry(1, seedTable())
	peers := r.ActivePeers()
	assert.Equal(t, 2, len(peers))
	assert.Equal(t, 2, peers[0].ID)
	assert.Equal(t, 3, peers[1].ID)

	peers = r.ActivePeersExcluding(3)
	assert.Equal(t, 1, len(peers))
	assert.Equal(t, 2, peers[0].ID)

	r.SetBranchInfo(2, 0, 0)
	peers = r.ActivePeers()
	assert.Equal(t, 1, len(peers))
	assert.Equal(t, 3, peers[0].ID)
	assert.Equal(t, 2, r.ActiveCount())
}

func TestRegistrySetMaster(t *testing.T) {
	r := NewRegistry(2, seedTable())
	r.SetMaster(3, 2)

	assert.Equal(t, true, r.IsSelfMaster())
	id, err := r.MasterID()
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, id)

	// The demoted master is down until an operator restart.
	old, ok := r.Branch(3)
	assert.Equal(t, true, ok)
	assert.Equal(t, false, old.IsMaster)
	assert.Equal(t, 0, old.Status)
	assert.Equal(t, 2, r.ActiveCount())
	peers := r.ActivePeers()
	assert.Equal(t, 1, len(peers))
	assert.Equal(t, 1, peers[0].ID)
}
