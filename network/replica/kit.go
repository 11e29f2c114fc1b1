package replica

import (
	"fmt"

	"branchstore/configs"
)

// TestKit boots an n-node loopback cluster inside one process. Node ids run
// 1..n and node n starts as master, so the lower ids exercise the remote
// acquire path. Every node gets its own copy of the seed table because the
// registries mutate their rows independently during failover.
func TestKit(n, basePort int) ([]*Context, error) {
	configs.SetLocal()
	seed := make([]configs.Branch, 0, n)
	for i := 1; i <= n; i++ {
		seed = append(seed, configs.Branch{
			ID:       i,
			Addr:     fmt.Sprintf("127.0.0.1:%d", basePort+i),
			IsMaster: i == n,
			Status:   1,
			Capacity: 2*i + 1,
		})
	}
	nodes := make([]*Context, 0, n)
	for i := 1; i <= n; i++ {
		table := make([]configs.Branch, n)
		copy(table, seed)
		node, err := NewContext(i, table)
		if err != nil {
			for _, v := range nodes {
				v.Close()
			}
			return nil, err
		}
		go node.Run()
		nodes = append(nodes, node)
	}
	return nodes, nil
}
