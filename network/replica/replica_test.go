package replica

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/magiconair/properties/assert"

	"branchstore/configs"
	"branchstore/network"
	"branchstore/utils"
)

func closeAll(nodes []*Context) {
	for _, v := range nodes {
		v.Close()
	}
}

func TestReplicatedWrite(t *testing.T) {
	nodes, err := TestKit(5, 6200)
	assert.Equal(t, nil, err)
	defer closeAll(nodes)

	// Node 1 is not the master, so the write exercises the remote acquire.
	err = nodes[0].Manager.Submit(network.CreateCustomer{
		Username: "mia", Name: "Mia Solis", Address: "Av. Norte 12", Card: 100})
	assert.Equal(t, nil, err)

	for _, v := range nodes {
		c, ok := v.Store.CustomerByUsername("mia")
		configs.Assert(ok, "customer missing on a replica")
		assert.Equal(t, "Mia Solis", c.Name)
		assert.Equal(t, configs.CustomerActive, c.Status)
	}

	// Round state is transient; every node starts the next round clean.
	for _, v := range nodes {
		v.Manager.roundLatch.Lock()
		configs.Assert(v.Manager.round == nil, "round state survived the round")
		v.Manager.roundLatch.Unlock()
	}
}

func TestWriteFromMaster(t *testing.T) {
	nodes, err := TestKit(3, 6210)
	assert.Equal(t, nil, err)
	defer closeAll(nodes)

	err = nodes[2].Manager.Submit(network.CreateArticle{
		Code: 42, Name: "Lamp", Price: 19.5, BranchID: 3})
	assert.Equal(t, nil, err)
	err = nodes[2].Manager.Submit(network.UpdateArticle{Code: 42, Name: "Lamp XL", Price: 25})
	assert.Equal(t, nil, err)

	for _, v := range nodes {
		a, ok := v.Store.ArticleByCode(42)
		configs.Assert(ok, "article missing on a replica")
		assert.Equal(t, "Lamp XL", a.Name)
		assert.Equal(t, 25.0, a.Price)
	}
}

func TestPluralityOverridesInitiator(t *testing.T) {
	nodes, err := TestKit(5, 6220)
	assert.Equal(t, nil, err)
	defer closeAll(nodes)

	err = nodes[0].Manager.Submit(network.CreateCustomer{
		Username: "mia", Name: "Mia", Address: "Av. Norte 12", Card: 100})
	assert.Equal(t, nil, err)

	// All four participants rewrite the address to Unknown, so the 4-to-1
	// plurality replaces the initiator's own command everywhere, including
	// on the initiator itself.
	override, err := network.Encode(network.UpdateCustomer{
		Username: "mia", Name: "Mia", Address: "Unknown", Card: 100})
	assert.Equal(t, nil, err)
	for _, v := range nodes[1:] {
		v.Manager.Opinion = func(string) string { return override }
	}

	err = nodes[0].Manager.Submit(network.UpdateCustomer{
		Username: "mia", Name: "Mia", Address: "Av. Sur 1", Card: 100})
	assert.Equal(t, nil, err)

	for _, v := range nodes {
		c, ok := v.Store.CustomerByUsername("mia")
		configs.Assert(ok, "customer missing on a replica")
		assert.Equal(t, "Unknown", c.Address)
	}
}

func TestValidationStopsRound(t *testing.T) {
	nodes, err := TestKit(3, 6230)
	assert.Equal(t, nil, err)
	defer closeAll(nodes)

	err = nodes[0].Manager.Submit(network.CreateCustomer{
		Username: "mia", Name: "Mia", Address: "Calle 1", Card: 100})
	assert.Equal(t, nil, err)

	err = nodes[0].Manager.Submit(network.CreateCustomer{
		Username: "mia", Name: "Other", Address: "Calle 2", Card: 200})
	configs.Assert(errors.Is(err, utils.ErrValidation), "duplicate username passed validation")
	err = nodes[1].Manager.Submit(network.CreateCustomer{
		Username: "leo", Name: "Leo", Address: "Calle 3", Card: 100})
	configs.Assert(errors.Is(err, utils.ErrValidation), "duplicate card passed validation")
	err = nodes[1].Manager.Submit(network.RestockArticle{Code: 9000})
	configs.Assert(errors.Is(err, utils.ErrValidation), "unknown article passed validation")

	for _, v := range nodes {
		assert.Equal(t, 1, len(v.Store.Customers()))
	}
}

func TestPurchaseDepletesStock(t *testing.T) {
	nodes, err := TestKit(3, 6240)
	assert.Equal(t, nil, err)
	defer closeAll(nodes)

	err = nodes[0].Manager.Submit(network.CreateCustomer{
		Username: "mia", Name: "Mia", Address: "Calle 1", Card: 100})
	assert.Equal(t, nil, err)
	err = nodes[0].Manager.Submit(network.CreateArticle{
		Code: 42, Name: "Lamp", Price: 19.5, BranchID: 1})
	assert.Equal(t, nil, err)

	err = nodes[1].Manager.Purchase("mia", 42)
	assert.Equal(t, nil, err)

	var serial int64
	for i, v := range nodes {
		guides := v.Store.Guides()
		assert.Equal(t, 1, len(guides))
		if i == 0 {
			serial = guides[0].Serial
		}
		// The guide row is byte-identical on every replica.
		assert.Equal(t, serial, guides[0].Serial)
		assert.Equal(t, 19.5, guides[0].Amount)
		assert.Equal(t, false, v.Store.ArticleAvailable(42))
	}

	err = nodes[2].Manager.Purchase("mia", 42)
	configs.Assert(errors.Is(err, utils.ErrValidation), "purchase of a depleted article accepted")

	err = nodes[0].Manager.Submit(network.RestockArticle{Code: 42})
	assert.Equal(t, nil, err)
	for _, v := range nodes {
		assert.Equal(t, true, v.Store.ArticleAvailable(42))
	}
}

func TestMasterFailover(t *testing.T) {
	nodes, err := TestKit(3, 6250)
	assert.Equal(t, nil, err)

	// Kill the master. The next writer notices, promotes itself, and the
	// write still lands on every surviving replica.
	nodes[2].Close()
	err = nodes[0].Manager.Submit(network.CreateCustomer{
		Username: "mia", Name: "Mia", Address: "Calle 1", Card: 100})
	assert.Equal(t, nil, err)

	assert.Equal(t, true, nodes[0].Registry.IsSelfMaster())
	id, err := nodes[1].Registry.MasterID()
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, id)
	old, _ := nodes[1].Registry.Branch(3)
	assert.Equal(t, 0, old.Status)

	for _, v := range nodes[:2] {
		assert.Equal(t, true, v.Store.CustomerExists("mia"))
	}

	// Writes keep flowing under the new master.
	err = nodes[1].Manager.Submit(network.CreateArticle{
		Code: 7, Name: "Mug", Price: 5, BranchID: 2})
	assert.Equal(t, nil, err)
	for _, v := range nodes[:2] {
		assert.Equal(t, true, v.Store.CodeExists(7))
	}
	closeAll(nodes[:2])
}

func assertNoOpenRound(t *testing.T, node *Context) {
	node.Manager.roundLatch.Lock()
	defer node.Manager.roundLatch.Unlock()
	configs.Assert(node.Manager.round == nil, "a round is open on an idle node")
}

func TestStaleVotesDoNotSeedNextRound(t *testing.T) {
	nodes, err := TestKit(5, 6290)
	assert.Equal(t, nil, err)
	defer closeAll(nodes)

	// Leftover votes from an abandoned round: three peers' forwards for an
	// old command land on node 2 while it has no round open, plus a stray
	// completion ack on the future initiator.
	stale, err := network.Encode(network.CreateCustomer{
		Username: "eve", Name: "Eve", Address: "Old St 1", Card: 900})
	assert.Equal(t, nil, err)
	for _, sender := range []int{3, 4, 5} {
		msg := network.ConsensusMsg(configs.ContinueConsensus, sender, stale)
		assert.Equal(t, nil, sendMsg(nodes[1].Registry.SelfAddr(), msg))
	}
	assert.Equal(t, nil, sendMsg(nodes[0].Registry.SelfAddr(), configs.ConsensusOver))
	time.Sleep(100 * time.Millisecond)
	assertNoOpenRound(t, nodes[0])
	assertNoOpenRound(t, nodes[1])

	// The next round must decide over its own votes only: the old command
	// never applies anywhere, the new one applies everywhere.
	err = nodes[0].Manager.Submit(network.CreateCustomer{
		Username: "mia", Name: "Mia", Address: "Calle 1", Card: 100})
	assert.Equal(t, nil, err)
	for _, v := range nodes {
		assert.Equal(t, true, v.Store.CustomerExists("mia"))
		assert.Equal(t, false, v.Store.CustomerExists("eve"))
	}
}

func TestParticipantStallMidRound(t *testing.T) {
	nodes, err := TestKit(3, 6310)
	assert.Equal(t, nil, err)
	defer closeAll(nodes)

	// Node 2 freezes inside the round right after seeing the proposal: it
	// never forwards its vote and never acks, like a participant crashing
	// mid-round.
	release := make(chan struct{})
	nodes[1].Manager.Opinion = func(command string) string {
		<-release
		return command
	}

	err = nodes[0].Manager.Submit(network.CreateCustomer{
		Username: "mia", Name: "Mia", Address: "Calle 1", Card: 100})
	configs.Assert(errors.Is(err, utils.ErrTransport), "missing ack must surface a transport error")

	// The survivors decided over the votes present and stayed aligned.
	assert.Equal(t, true, nodes[0].Store.CustomerExists("mia"))
	assert.Equal(t, true, nodes[2].Store.CustomerExists("mia"))

	// When the stalled node wakes up it finishes its own copy of the round;
	// its late vote forwards and its ack land outside any open round on the
	// peers and are dropped.
	close(release)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, true, nodes[1].Store.CustomerExists("mia"))
	for _, v := range nodes {
		assertNoOpenRound(t, v)
	}
}

func TestConcurrentSubmits(t *testing.T) {
	nodes, err := TestKit(3, 6260)
	assert.Equal(t, nil, err)
	defer closeAll(nodes)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = nodes[i].Manager.Submit(network.CreateArticle{
				Code: int64(i + 1), Name: "Item", Price: float64(i + 1), BranchID: i + 1})
		}(i)
	}
	wg.Wait()
	for i := 0; i < 3; i++ {
		assert.Equal(t, nil, errs[i])
	}

	// The master mutex serialized the rounds, so every replica holds all
	// three rows.
	for _, v := range nodes {
		assert.Equal(t, 3, len(v.Store.Articles()))
	}
}
