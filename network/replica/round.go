package replica

import (
	"sync"

	mapset "github.com/deckarep/golang-set"
)

// roundState is the transient coordination state of one replication round:
// one vote slot per node id, the dedup set of senders already counted, and
// the completion-ack counter the initiator waits on. One block exists per
// node; the global master mutex guarantees at most one in-flight round in
// the happy path.
type roundState struct {
	mu        sync.Mutex
	initiator int

	votes   map[int]string
	arrival []int
	seen    mapset.Set

	expectedVotes int
	votesFull     chan struct{}
	votesClosed   bool

	acks         int
	expectedAcks int
	acksFull     chan struct{}
	acksClosed   bool
}

func newRoundState(expectedVotes int) *roundState {
	return &roundState{
		initiator:     -1,
		votes:         make(map[int]string),
		seen:          mapset.NewSet(),
		expectedVotes: expectedVotes,
		votesFull:     make(chan struct{}),
		acksFull:      make(chan struct{}),
	}
}

// addVote records one vote, once per sender per round. Retransmits are
// discarded: a duplicate sender never raises the received count.
func (st *roundState) addVote(sender int, command string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.seen.Add(sender) {
		return
	}
	st.votes[sender] = command
	st.arrival = append(st.arrival, sender)
	if len(st.votes) >= st.expectedVotes && !st.votesClosed {
		st.votesClosed = true
		close(st.votesFull)
	}
}

// votesReceived returns the number of distinct votes recorded.
func (st *roundState) votesReceived() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.votes)
}

// shrinkVotes lowers the expected vote count when a peer turned out to be
// unreachable at initiate time; membership itself is not changed mid-round.
func (st *roundState) shrinkVotes(n int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.expectedVotes -= n
	if len(st.votes) >= st.expectedVotes && !st.votesClosed {
		st.votesClosed = true
		close(st.votesFull)
	}
}

func (st *roundState) setExpectedAcks(n int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.expectedAcks = n
	if st.acks >= st.expectedAcks && !st.acksClosed {
		st.acksClosed = true
		close(st.acksFull)
	}
}

// addAck counts one consensus_over. The message carries no sender id, so
// acks are counted, not deduplicated; that mirrors the wire grammar.
func (st *roundState) addAck() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.acks++
	if st.expectedAcks > 0 && st.acks >= st.expectedAcks && !st.acksClosed {
		st.acksClosed = true
		close(st.acksFull)
	}
}

func (st *roundState) ackCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.acks
}

// decide picks the command string with the highest multiplicity among the
// recorded votes, byte-wise comparison, first-seen order breaking ties.
func (st *roundState) decide() (string, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.votes) == 0 {
		return "", false
	}
	counts := make(map[string]int)
	order := make([]string, 0, len(st.arrival))
	for _, sender := range st.arrival {
		cmd := st.votes[sender]
		if counts[cmd] == 0 {
			order = append(order, cmd)
		}
		counts[cmd]++
	}
	best := order[0]
	for _, cmd := range order[1:] {
		if counts[cmd] > counts[best] {
			best = cmd
		}
	}
	return best, true
}

// initiatedBy reports whether the round was opened by the given node.
func (st *roundState) initiatedBy(id int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.initiator == id
}
