package replica

import (
	"math/rand"
	"strconv"
	"time"

	"branchstore/configs"
	"branchstore/network"
	"branchstore/utils"
)

// The coordinator side of a round: the node where the UI initiated the
// mutation acquires the global write lock, broadcasts its proposal, joins
// the vote collection like any participant, applies the decision, and only
// releases the lock after every live peer confirmed completion.

// Validate rejects a mutation before any round is initiated. A failed
// validation is surfaced to the UI and no peer sees a single byte.
func (m *Manager) Validate(op network.Op) error {
	switch v := op.(type) {
	case network.CreateCustomer:
		if m.store.CustomerExists(v.Username) {
			return utils.ValidationError("username %q already exists", v.Username)
		}
		if m.store.CardInUse(v.Card) {
			return utils.ValidationError("card %v already in use", v.Card)
		}
	case network.UpdateCustomer:
		if !m.store.CustomerExists(v.Username) {
			return utils.ValidationError("unknown customer %q", v.Username)
		}
	case network.ActivateCustomer:
		if !m.store.CustomerExists(v.Username) {
			return utils.ValidationError("unknown customer %q", v.Username)
		}
	case network.DeactivateCustomer:
		if !m.store.CustomerExists(v.Username) {
			return utils.ValidationError("unknown customer %q", v.Username)
		}
	case network.CreateArticle:
		if m.store.CodeExists(v.Code) {
			return utils.ValidationError("article code %v already exists", v.Code)
		}
	case network.UpdateArticle:
		if !m.store.CodeExists(v.Code) {
			return utils.ValidationError("unknown article code %v", v.Code)
		}
	case network.RestockArticle:
		if !m.store.CodeExists(v.Code) {
			return utils.ValidationError("unknown article code %v", v.Code)
		}
	case network.DeactivateArticle:
		if !m.store.CodeExists(v.Code) {
			return utils.ValidationError("unknown article code %v", v.Code)
		}
	}
	return nil
}

// Submit validates op and drives it through one full replication round.
func (m *Manager) Submit(op network.Op) error {
	if err := m.Validate(op); err != nil {
		return err
	}
	if err := m.AcquirePermission(); err != nil {
		return err
	}
	defer m.ReleasePermission()
	return m.replicateLocked(op)
}

// Purchase is the shipping-guide flow. The existence pre-checks run before
// the lock; the active/in-stock checks run under it, so two concurrent
// purchases of the last unit cannot both pass.
func (m *Manager) Purchase(username string, code int64) error {
	if !m.store.CustomerExists(username) {
		return utils.ValidationError("unknown customer %q", username)
	}
	if !m.store.CodeExists(code) {
		return utils.ValidationError("unknown article code %v", code)
	}
	if err := m.AcquirePermission(); err != nil {
		return err
	}
	defer m.ReleasePermission()
	if !m.store.CustomerActive(username) {
		return utils.ValidationError("customer %q is not active", username)
	}
	if !m.store.ArticleAvailable(code) {
		return utils.ValidationError("article %v is out of stock", code)
	}
	customer, _ := m.store.CustomerByUsername(username)
	article, _ := m.store.ArticleByCode(code)
	branchID := m.registry.SelfID()
	now := time.Now()
	op := network.CreateGuide{
		CustomerID: customer.ID,
		ArticleID:  article.ID,
		BranchID:   branchID,
		Serial:     guideSerial(now, branchID),
		Amount:     article.Price,
		PurchaseTS: now.Format("2006-01-02 15:04:05"),
	}
	return m.replicateLocked(op)
}

// guideSerial derives the guide serial from the timestamp parts, the branch
// id, and a random component.
func guideSerial(t time.Time, branchID int) int64 {
	sum := 0
	for _, part := range []string{
		t.Format("2006"), t.Format("01"), t.Format("02"),
		t.Format("15"), t.Format("04"), t.Format("05"),
	} {
		n, _ := strconv.Atoi(part)
		sum += n
	}
	return int64(sum + branchID + rand.Intn(100) + 1)
}

// replicateLocked runs one round while the caller holds the master mutex.
func (m *Manager) replicateLocked(op network.Op) error {
	command, err := network.Encode(op)
	if err != nil {
		return err
	}
	selfID := m.registry.SelfID()
	info := utils.NewInfo(op.Verb())
	begin := time.Now()
	defer func() {
		info.Latency = time.Since(begin)
		m.stmt.stats.Append(info)
	}()

	st := m.openRound()
	st.mu.Lock()
	st.initiator = selfID
	st.mu.Unlock()
	st.addVote(selfID, command)

	start := network.ConsensusMsg(configs.StartConsensus, selfID, command)
	reached, lost := 0, 0
	for _, peer := range m.registry.ActivePeers() {
		if err := sendMsg(peer.Addr, start); err != nil {
			// An unreachable participant is omitted from N for this round.
			configs.Warn(false, "start broadcast to "+peer.Addr+" failed: "+err.Error())
			lost++
			continue
		}
		reached++
	}
	st.shrinkVotes(lost)
	st.setExpectedAcks(reached)

	collectBegin := time.Now()
	select {
	case <-st.votesFull:
	case <-time.After(configs.RoundTimeout):
		configs.Warn(false, "round timed out collecting votes; deciding over the votes present")
	}
	info.CollectTime = time.Since(collectBegin)

	if decision, ok := st.decide(); ok {
		m.applyDecision(decision)
	}

	select {
	case <-st.acksFull:
	case <-time.After(configs.RoundTimeout):
		m.finishRound()
		info.IsAbort = true
		return utils.TransportError("round completed locally but %v of %v completion acks are missing",
			reached-st.ackCount(), reached)
	}
	m.finishRound()
	configs.DPrintf("round for %q completed with %v acks", op.Verb(), reached)
	return nil
}
