package replica

import (
	"testing"
	"time"

	"github.com/magiconair/properties/assert"
)

func TestRoundPlurality(t *testing.T) {
	st := newRoundState(5)
	st.addVote(1, "restock_articulo|1")
	st.addVote(2, "restock_articulo|2")
	st.addVote(3, "restock_articulo|2")
	st.addVote(4, "restock_articulo|1")
	st.addVote(5, "restock_articulo|2")
	assert.Equal(t, 5, st.votesReceived())
	select {
	case <-st.votesFull:
	default:
		t.Fatal("full vote multiset did not close the channel")
	}
	decision, ok := st.decide()
	assert.Equal(t, true, ok)
	assert.Equal(t, "restock_articulo|2", decision)
}

func TestRoundTieBreaksFirstSeen(t *testing.T) {
	st := newRoundState(4)
	st.addVote(3, "restock_articulo|9")
	st.addVote(1, "restock_articulo|5")
	st.addVote(2, "restock_articulo|5")
	st.addVote(4, "restock_articulo|9")
	decision, ok := st.decide()
	assert.Equal(t, true, ok)
	// 2 vs 2; the command seen first wins.
	assert.Equal(t, "restock_articulo|9", decision)
}

func TestRoundDuplicateVotesIgnored(t *testing.T) {
	st := newRoundState(3)
	st.addVote(1, "restock_articulo|1")
	st.addVote(1, "restock_articulo|7")
	st.addVote(1, "restock_articulo|7")
	assert.Equal(t, 1, st.votesReceived())
	select {
	case <-st.votesFull:
		t.Fatal("retransmits must not complete the multiset")
	default:
	}
	st.addVote(2, "restock_articulo|7")
	st.addVote(3, "restock_articulo|7")
	decision, ok := st.decide()
	assert.Equal(t, true, ok)
	// The sender's first vote is the one that counts.
	assert.Equal(t, "restock_articulo|7", decision)
}

func TestRoundShrinkReleasesWaiters(t *testing.T) {
	st := newRoundState(5)
	st.addVote(1, "restock_articulo|1")
	st.addVote(2, "restock_articulo|1")
	st.addVote(3, "restock_articulo|1")
	st.shrinkVotes(2)
	select {
	case <-st.votesFull:
	case <-time.After(time.Second):
		t.Fatal("shrinking to the received count must release the waiter")
	}
}

func TestRoundAcks(t *testing.T) {
	st := newRoundState(3)
	st.addAck()
	st.setExpectedAcks(2)
	select {
	case <-st.acksFull:
		t.Fatal("one ack of two must not complete the round")
	default:
	}
	st.addAck()
	select {
	case <-st.acksFull:
	case <-time.After(time.Second):
		t.Fatal("the final ack must release the initiator")
	}
	assert.Equal(t, 2, st.ackCount())
}

func TestRoundNoAcksExpected(t *testing.T) {
	st := newRoundState(1)
	st.setExpectedAcks(0)
	select {
	case <-st.acksFull:
	case <-time.After(time.Second):
		t.Fatal("a single-node round must not wait for acks")
	}
}

func TestRoundEmptyDecision(t *testing.T) {
	st := newRoundState(3)
	_, ok := st.decide()
	assert.Equal(t, false, ok)
}
