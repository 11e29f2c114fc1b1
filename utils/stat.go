package utils

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Info the outcome of one replication round observed on a node.
type Info struct {
	Verb    string
	Latency time.Duration
	// CollectTime is the wait for the full vote multiset.
	CollectTime time.Duration
	IsAbort     bool
}

func NewInfo(verb string) *Info {
	return &Info{Verb: verb}
}

// Stat collects round outcomes on one node.
type Stat struct {
	mu        sync.Mutex
	nodeID    string
	rounds    []*Info
	beginTime time.Time
}

func NewStat(nodeID string) *Stat {
	return &Stat{
		nodeID:    nodeID,
		rounds:    make([]*Info, 0),
		beginTime: time.Now(),
	}
}

func (st *Stat) Append(info *Info) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.rounds = append(st.rounds, info)
}

func (st *Stat) Clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.rounds = st.rounds[:0]
	st.beginTime = time.Now()
}

func Min(x int, y int) int {
	if x < y {
		return x
	}
	return y
}

// Log prints one summary line in the key:value; format.
func (st *Stat) Log() {
	st.mu.Lock()
	defer st.mu.Unlock()
	cnt, aborts := 0, 0
	latencies := make([]int, 0)
	latencySum := 0
	for _, r := range st.rounds {
		cnt++
		if r.IsAbort {
			aborts++
			continue
		}
		latencySum += int(r.Latency)
		latencies = append(latencies, int(r.Latency))
	}
	msg := "node:" + st.nodeID + ";"
	msg += "round_cnt:" + strconv.Itoa(cnt) + ";"
	msg += "aborts:" + strconv.Itoa(aborts) + ";"
	sort.Ints(latencies)
	if len(latencies) > 0 {
		i := Min((len(latencies)*99+99)/100, len(latencies)-1)
		msg += "p99_latency:" + time.Duration(latencies[i]).String() + ";"
		i = Min((len(latencies)+1)/2, len(latencies)-1)
		msg += "p50_latency:" + time.Duration(latencies[i]).String() + ";"
		msg += "ave_latency:" + time.Duration(float64(latencySum)/float64(len(latencies))).String() + ";"
	} else {
		msg += "p99_latency:nil;p50_latency:nil;ave_latency:nil;"
	}
	msg += "window:" + time.Since(st.beginTime).String()
	fmt.Println(msg)
}
