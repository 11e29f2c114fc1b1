package replica

import (
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lock "github.com/viney-shih/go-lock"

	"branchstore/configs"
	"branchstore/network"
	"branchstore/storage"
)

// Manager drives both sides of the replication protocol on one node: the
// participant role for every inbound round, the coordinator role for writes
// this branch initiates, and the master-mutex arbiter whenever the local
// registry row carries the master flag.
type Manager struct {
	stmt     *Context
	store    *storage.Store
	registry *storage.Registry

	// writeLock is the global write lock. Every node holds one, but peers
	// only ever touch the one owned by the current master.
	writeLock lock.Mutex
	granted   int32

	roundLatch sync.Mutex
	round      *roundState

	// Opinion forms this node's own proposal for the logical operation an
	// inbound round carries. When nil the node has no independent opinion
	// and re-broadcasts the initiator's command unchanged.
	Opinion func(command string) string
}

func NewManager(stmt *Context, store *storage.Store, registry *storage.Registry) *Manager {
	return &Manager{
		stmt:      stmt,
		store:     store,
		registry:  registry,
		writeLock: lock.NewCASMutex(),
	}
}

// handleRequest routes one inbound wire message. Malformed messages are
// logged and dropped; the round proceeds without them.
func (m *Manager) handleRequest(conn net.Conn, data string) {
	switch {
	case data == configs.AcquirePermission:
		m.grantPermission(conn)
	case data == configs.ReleasePermission:
		if atomic.CompareAndSwapInt32(&m.granted, 1, 0) {
			m.writeLock.Unlock()
		} else {
			configs.Warn(false, "stray release_permission dropped")
		}
	case data == configs.ConsensusOver:
		// Acks only count toward a round this node initiated and still has
		// open; anything else is a straggler from a timed-out round.
		st := m.activeRound()
		if st == nil || !st.initiatedBy(m.registry.SelfID()) {
			configs.Warn(false, "stray consensus_over dropped")
			return
		}
		st.addAck()
	case strings.HasPrefix(data, configs.ContinueConsensus):
		sender, command, err := network.ParseConsensus(data)
		if err != nil {
			configs.Warn(false, err.Error())
			return
		}
		st := m.activeRound()
		if st == nil {
			configs.Warn(false, "vote outside any open round dropped: "+data)
			return
		}
		if b, ok := m.registry.Branch(sender); !ok || b.Status != 1 {
			configs.Warn(false, "vote from an inactive node dropped: "+data)
			return
		}
		st.addVote(sender, command)
	case strings.HasPrefix(data, configs.StartConsensus):
		initiator, command, err := network.ParseConsensus(data)
		if err != nil {
			configs.Warn(false, err.Error())
			return
		}
		if _, ok := m.registry.Branch(initiator); !ok {
			configs.Warn(false, "round start from an unknown node dropped: "+data)
			return
		}
		m.participate(initiator, command)
	case strings.HasPrefix(data, configs.NewMasterNode):
		oldID, newID, err := network.ParseNewMaster(data)
		if err != nil {
			configs.Warn(false, err.Error())
			return
		}
		configs.DPrintf("election: node %v replaces node %v as master", newID, oldID)
		m.registry.SetMaster(oldID, newID)
	default:
		configs.Warn(false, "unknown message dropped: "+data)
	}
}

// grantPermission serializes global writes: the reply is withheld until the
// write lock frees up. The requester blocks on the same connection.
func (m *Manager) grantPermission(conn net.Conn) {
	m.writeLock.Lock()
	atomic.StoreInt32(&m.granted, 1)
	if _, err := conn.Write([]byte(configs.AuthorizedPermission)); err != nil {
		// The requester is gone; hand the lock back so the cluster is not
		// wedged on a grant nobody holds.
		if atomic.CompareAndSwapInt32(&m.granted, 1, 0) {
			m.writeLock.Unlock()
		}
		configs.Warn(false, "grant reply failed: "+err.Error())
	}
}

// activeRound returns the in-flight round state, or nil when no round is
// open. Only participate and the initiator open rounds; a vote or ack
// arriving outside one is a straggler and must not seed the next round.
func (m *Manager) activeRound() *roundState {
	m.roundLatch.Lock()
	defer m.roundLatch.Unlock()
	return m.round
}

// openRound starts the coordination state for one round. A round still open
// here was abandoned by a timeout; its state is discarded, never merged.
func (m *Manager) openRound() *roundState {
	m.roundLatch.Lock()
	defer m.roundLatch.Unlock()
	if m.round != nil {
		configs.Warn(false, "abandoned round state discarded")
	}
	m.round = newRoundState(m.registry.ActiveCount())
	return m.round
}

// finishRound clears the coordination state so the next round starts from a
// clean block.
func (m *Manager) finishRound() {
	m.roundLatch.Lock()
	defer m.roundLatch.Unlock()
	m.round = nil
}

// participate runs the participant side of one round: record the
// initiator's proposal and our own, forward our vote to every live peer,
// collect the full vote multiset, apply the plurality decision, and ack the
// initiator with consensus_over.
func (m *Manager) participate(initiator int, command string) {
	selfID := m.registry.SelfID()
	st := m.openRound()
	st.mu.Lock()
	st.initiator = initiator
	st.mu.Unlock()
	st.addVote(initiator, command)

	local := command
	if m.Opinion != nil {
		local = m.Opinion(command)
	}
	st.addVote(selfID, local)

	forward := network.ConsensusMsg(configs.ContinueConsensus, selfID, local)
	lost := 0
	for _, peer := range m.registry.ActivePeers() {
		if err := sendMsg(peer.Addr, forward); err != nil {
			configs.Warn(false, "vote forward to "+peer.Addr+" failed: "+err.Error())
			lost++
		}
	}
	// A peer we cannot reach will not send us its vote either.
	st.shrinkVotes(lost)

	select {
	case <-st.votesFull:
	case <-time.After(configs.RoundTimeout):
		configs.Warn(false, "round timed out collecting votes; deciding over the votes present")
	}

	if decision, ok := st.decide(); ok {
		m.applyDecision(decision)
	}
	m.finishRound()

	if branch, ok := m.registry.Branch(initiator); ok {
		if err := sendMsg(branch.Addr, configs.ConsensusOver); err != nil {
			configs.Warn(false, "completion ack to "+branch.Addr+" failed: "+err.Error())
		}
	}
}

// applyDecision logs and executes the decided command. Parse failures and
// apply failures are logged and dropped; every node ran the same decision,
// so dropping keeps the replicas aligned.
func (m *Manager) applyDecision(command string) {
	op, err := network.Decode(command)
	if err != nil {
		configs.Warn(false, "undecodable decision dropped: "+err.Error())
		return
	}
	m.store.LogMutation(command)
	if err := m.apply(op); err != nil {
		configs.Warn(false, "decision did not apply: "+err.Error())
	}
}

// apply dispatches one decoded operation to the local store adapter.
func (m *Manager) apply(op network.Op) error {
	switch v := op.(type) {
	case network.CreateCustomer:
		return m.store.CreateCustomer(v.Username, v.Name, v.Address, v.Card)
	case network.UpdateCustomer:
		return m.store.UpdateCustomer(v.Username, v.Name, v.Address, v.Card)
	case network.ActivateCustomer:
		return m.store.ActivateCustomer(v.Username)
	case network.DeactivateCustomer:
		return m.store.DeactivateCustomer(v.Username)
	case network.CreateArticle:
		return m.store.CreateArticle(v.Code, v.Name, v.Price, v.BranchID)
	case network.UpdateArticle:
		return m.store.UpdateArticle(v.Code, v.Name, v.Price)
	case network.RestockArticle:
		return m.store.RestockArticle(v.Code)
	case network.DeactivateArticle:
		return m.store.DeactivateArticle(v.Code)
	case network.CreateGuide:
		return m.store.CreateGuide(v.CustomerID, v.ArticleID, v.BranchID, v.Serial, v.Amount, v.PurchaseTS)
	default:
		return nil
	}
}
