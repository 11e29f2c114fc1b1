package storage

import (
	"sort"
	"sync"

	"branchstore/configs"
	"branchstore/utils"
)

// Registry is the membership table of the cluster: one row per branch, read
// by every send path and mutated only by the failover controller. Seeded
// from the static bootstrap table (or the config file); a restarted process
// reseeds from the same table, so bringing a downed node back is an
// operator-level restart.
type Registry struct {
	mu       sync.RWMutex
	selfID   int
	branches map[int]*configs.Branch
}

func NewRegistry(selfID int, seed []configs.Branch) *Registry {
	res := &Registry{selfID: selfID, branches: make(map[int]*configs.Branch)}
	masters := 0
	for _, b := range seed {
		row := b
		res.branches[b.ID] = &row
		if b.IsMaster {
			masters++
		}
	}
	_, ok := res.branches[selfID]
	configs.Assert(ok, "the seed table has no row for this node")
	configs.Assert(masters == 1, "the seed table must carry exactly one master")
	return res
}

func (r *Registry) SelfID() int {
	return r.selfID
}

func (r *Registry) SelfAddr() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.branches[r.selfID].Addr
}

func (r *Registry) IsSelfMaster() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.branches[r.selfID].IsMaster
}

// MasterID returns the id of the live master.
func (r *Registry) MasterID() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.branches {
		if b.IsMaster && b.Status == 1 {
			return b.ID, nil
		}
	}
	return 0, utils.TransportError("no live master in the registry")
}

func (r *Registry) MasterAddr() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.branches {
		if b.IsMaster && b.Status == 1 {
			return b.Addr, nil
		}
	}
	return "", utils.TransportError("no live master in the registry")
}

func (r *Registry) Branch(id int) (configs.Branch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.branches[id]
	if !ok {
		return configs.Branch{}, false
	}
	return *b, true
}

// Branches returns a snapshot of all rows sorted by id.
func (r *Registry) Branches() []configs.Branch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]configs.Branch, 0, len(r.branches))
	for _, b := range r.branches {
		res = append(res, *b)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// ActivePeers returns all live branches except self.
func (r *Registry) ActivePeers() []configs.Branch {
	return r.ActivePeersExcluding(0)
}

// ActivePeersExcluding returns all live branches except self and the given
// id; used when forwarding votes past the round initiator.
func (r *Registry) ActivePeersExcluding(id int) []configs.Branch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]configs.Branch, 0)
	for _, b := range r.branches {
		if b.ID == r.selfID || b.ID == id || b.Status != 1 {
			continue
		}
		res = append(res, *b)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// ActiveCount returns the number of live branches including self.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cnt := 0
	for _, b := range r.branches {
		if b.Status == 1 {
			cnt++
		}
	}
	return cnt
}

// SetMaster demotes old and promotes new in one step. The old master is also
// marked down: it stays excluded from rounds until an operator restart.
func (r *Registry) SetMaster(oldID, newID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.branches[oldID]; ok {
		old.IsMaster = false
		old.Status = 0
	}
	if next, ok := r.branches[newID]; ok {
		next.IsMaster = true
	}
}

// SetBranchInfo updates the liveness flag and used-capacity counter of one
// branch row.
func (r *Registry) SetBranchInfo(id, status, used int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.branches[id]; ok {
		b.Status = status
		b.Used = used
	}
}
