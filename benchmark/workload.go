package benchmark

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pingcap/go-ycsb/pkg/generator"

	"branchstore/configs"
	"branchstore/network"
	"branchstore/network/replica"
	"branchstore/utils"
)

// Stmt drives a purchase/restock workload over an in-process loopback
// cluster and prints one stats line per measurement window.
type Stmt struct {
	stat  *utils.Stat
	nodes []*replica.Context
	stop  int32
}

type client struct {
	md   int
	from *Stmt
	r    *rand.Rand
	zip  *generator.Zipfian
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func randSeq(r *rand.Rand, n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[r.Intn(len(letters))]
	}
	return string(b)
}

// load seeds the catalog through full replication rounds on the first node,
// so the measured phase starts with identical replicas.
func (stmt *Stmt) load() error {
	r := rand.New(rand.NewSource(1234))
	m := stmt.nodes[0].Manager
	for i := 0; i < configs.BenchCustomerCount; i++ {
		err := m.Submit(network.CreateCustomer{
			Username: "client-" + strconv.Itoa(i),
			Name:     randSeq(r, 8),
			Address:  randSeq(r, 16),
			Card:     int64(i)*7919 + 13,
		})
		if err != nil {
			return err
		}
	}
	for i := 0; i < configs.BenchArticleCount; i++ {
		err := m.Submit(network.CreateArticle{
			Code:     int64(i + 1),
			Name:     randSeq(r, 10),
			Price:    float64(r.Intn(10000))/100 + 1,
			BranchID: stmt.nodes[0].Registry.SelfID(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// run is one client loop. Articles follow a zipfian popularity curve; a
// purchase flips the unit to out of stock, so every other request restocks
// to keep the hot articles purchasable.
func (c *client) run() {
	node := c.from.nodes[c.md%len(c.from.nodes)]
	for !c.from.Stopped() {
		code := int64(c.zip.Next(c.r)) + 1
		var info *utils.Info
		var err error
		begin := time.Now()
		if c.r.Intn(2) == 0 {
			info = utils.NewInfo("purchase")
			username := "client-" + strconv.Itoa(c.r.Intn(configs.BenchCustomerCount))
			err = node.Manager.Purchase(username, code)
		} else {
			info = utils.NewInfo("restock_articulo")
			err = node.Manager.Submit(network.RestockArticle{Code: code})
		}
		info.Latency = time.Since(begin)
		info.IsAbort = err != nil
		if err != nil {
			configs.TPrintf("client %v round failed: %v", c.md, err)
		}
		c.from.stat.Append(info)
	}
}

func (stmt *Stmt) Stopped() bool {
	return atomic.LoadInt32(&stmt.stop) != 0
}

func (stmt *Stmt) Stop() {
	atomic.StoreInt32(&stmt.stop, 1)
	for _, v := range stmt.nodes {
		v.Close()
	}
}

func (stmt *Stmt) startClient(seed int, md int) {
	c := client{md: md, from: stmt}
	c.r = rand.New(rand.NewSource(int64(seed)*11 + 31))
	c.zip = generator.NewZipfianWithRange(0, int64(configs.BenchArticleCount-1), configs.ArticleSkewness)
	c.run()
}

// PurchaseTest boots the cluster, loads the catalog, runs the clients for
// the configured window, and prints the summary line.
func (stmt *Stmt) PurchaseTest(nodeCount, basePort int) {
	var err error
	stmt.nodes, err = replica.TestKit(nodeCount, basePort)
	configs.CheckError(err)
	stmt.stat = utils.NewStat("bench")
	configs.CheckError(stmt.load())
	for i := 0; i < configs.ClientRoutineNumber; i++ {
		go stmt.startClient(i*11+13, i)
	}
	configs.TPrintf("all clients started")
	time.Sleep(configs.WarmUpTime)
	stmt.stat.Clear()
	time.Sleep(configs.RunTestInterval)
	stmt.stat.Log()
	stmt.stat.Clear()
	fmt.Println(">> benchmark window closed")
}
