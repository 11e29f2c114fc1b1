package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/wal"

	"branchstore/configs"
)

// LogManager appends every decided command string to a write-ahead log
// before the mutation is applied, so an operator can replay the mutation
// history of a node that was offline. Disabled unless configs.UseWAL is set.
type LogManager struct {
	latch  sync.Mutex
	lsn    uint64
	logs   *wal.Log
	buffer *wal.Batch
	done   chan struct{}
}

func NewLogManager(nodeID string) *LogManager {
	res := &LogManager{}
	if !configs.UseWAL {
		return res
	}
	log, err := wal.Open(fmt.Sprintf("%s/%s", configs.WALDirectory, nodeID), nil)
	if err != nil {
		panic(err)
	}
	res.logs = log
	res.lsn, err = log.LastIndex()
	if err != nil {
		panic(err)
	}
	res.buffer = &wal.Batch{}
	res.done = make(chan struct{})
	go res.batchSyncLogger()
	return res
}

// Append buffers one command string; the background logger flushes batches.
func (c *LogManager) Append(command string) {
	if !configs.UseWAL {
		return
	}
	c.latch.Lock()
	defer c.latch.Unlock()
	c.lsn++
	c.buffer.Write(c.lsn, []byte(command))
}

func (c *LogManager) batchSyncLogger() {
	lastLSN := c.lsn
	for {
		select {
		case <-time.After(configs.LogBatchInterval):
			c.latch.Lock()
			if c.lsn != lastLSN {
				if err := c.logs.WriteBatch(c.buffer); err != nil {
					panic(err)
				}
				c.buffer.Clear()
				lastLSN = c.lsn
			}
			c.latch.Unlock()
		case <-c.done:
			return
		}
	}
}

func (c *LogManager) Close() {
	if !configs.UseWAL {
		return
	}
	close(c.done)
	c.latch.Lock()
	defer c.latch.Unlock()
	if c.buffer != nil {
		_ = c.logs.WriteBatch(c.buffer)
		c.buffer.Clear()
	}
	_ = c.logs.Close()
}
