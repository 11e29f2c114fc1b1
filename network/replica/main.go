package replica

import (
	"os"
	"strconv"
	"sync"

	"github.com/goccy/go-json"

	"branchstore/configs"
	"branchstore/storage"
	"branchstore/utils"
)

// Context wires one node together: registry, store, protocol manager, and
// the listener. The supervisor in cmd/node drives it.
type Context struct {
	Manager  *Manager
	Store    *storage.Store
	Registry *storage.Registry

	stats *utils.Stat
	conn  *Comm
	done  chan bool
}

var confLatch = sync.Mutex{}

type branchConfig struct {
	Branches []configs.Branch `json:"branches"`
}

// LoadBranches reads the branch table from the config file, falling back to
// the compiled-in bootstrap table when no file is deployed.
func LoadBranches() []configs.Branch {
	confLatch.Lock()
	defer confLatch.Unlock()
	raw, err := os.ReadFile(configs.ConfigFileLocation)
	if err != nil {
		return configs.DefaultBranches
	}
	var conf branchConfig
	if err = json.Unmarshal(raw, &conf); err != nil || len(conf.Branches) == 0 {
		configs.Warn(err == nil, "unreadable branch config, using the default table")
		return configs.DefaultBranches
	}
	return conf.Branches
}

// NewContext builds a node for the given branch id over the given seed
// table. The listener is bound here; Run starts serving.
func NewContext(selfID int, seed []configs.Branch) (*Context, error) {
	store, err := storage.Open(selfID)
	if err != nil {
		return nil, err
	}
	stmt := &Context{
		Store:    store,
		Registry: storage.NewRegistry(selfID, seed),
		stats:    utils.NewStat("branch-" + strconv.Itoa(selfID)),
		done:     make(chan bool, 1),
	}
	stmt.Manager = NewManager(stmt, store, stmt.Registry)
	stmt.conn, err = NewComm(stmt, stmt.Registry.SelfAddr())
	if err != nil {
		store.Close()
		return nil, err
	}
	return stmt, nil
}

// Run serves inbound connections until Close; it blocks the calling
// goroutine.
func (ctx *Context) Run() {
	configs.DPrintf("branch %v listening on %v", ctx.Registry.SelfID(), ctx.Registry.SelfAddr())
	ctx.conn.Run()
}

// Close stops the listener, flushes the stats line, and closes the store.
func (ctx *Context) Close() {
	ctx.done <- true
	ctx.conn.Stop()
	ctx.stats.Log()
	ctx.Store.Close()
}
