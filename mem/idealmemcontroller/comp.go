// Package idealmemcontroller provides the terminal level of a simulated
// hierarchy: a flat memory that serves every request in a fixed time.
package idealmemcontroller

import (
	"fmt"

	"github.com/sarchlab/cachesim/mem"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// HookPosAccess marks that the memory has served a request.
var HookPosAccess = &hooking.HookPos{Name: "Memory Access"}

// A Comp is an ideal memory controller. It always responds to the request in
// a fixed number of cycles and never misses. It has no lower level.
type Comp struct {
	hooking.HookableBase

	name    string
	latency mem.Latency
	stats   mem.Statistics

	// Storage holds the data of the memory. When nil, reads return zeros
	// and writes are dropped.
	Storage *mem.BackingStore
}

// Name returns the name of the memory.
func (c *Comp) Name() string {
	return c.name
}

// HandleRequest serves the request with the configured bus and hit latency.
func (c *Comp) HandleRequest(
	address uint64,
	size int,
	isRead bool,
	buf []byte,
) (hit bool, time int) {
	if size <= 0 || len(buf) < size {
		panic(fmt.Sprintf("%s: invalid request of %d bytes with a %d-byte buffer",
			c.name, size, len(buf)))
	}

	c.accessStorage(address, isRead, buf[:size])

	time = c.latency.Total()
	c.stats.AccessCounter++
	c.stats.HitCount++
	c.stats.AccessTime += uint64(time)

	if c.NumHooks() > 0 {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosAccess,
			Item: mem.AccessEvent{
				Level:   c.name,
				Address: address,
				Size:    size,
				IsRead:  isRead,
				Time:    time,
			},
		})
	}

	return true, time
}

func (c *Comp) accessStorage(address uint64, isRead bool, data []byte) {
	if c.Storage == nil {
		if isRead {
			clear(data)
		}

		return
	}

	var err error
	if isRead {
		err = c.Storage.Read(address, data)
	} else {
		err = c.Storage.Write(address, data)
	}

	if err != nil {
		panic(fmt.Sprintf("%s: 0x%016x: %v", c.name, address, err))
	}
}

// Stats returns a snapshot of the counters.
func (c *Comp) Stats() mem.Statistics {
	return c.stats
}

// SetStats overwrites the counters.
func (c *Comp) SetStats(stats mem.Statistics) {
	c.stats = stats
}

// SetLatency sets the bus and hit latency.
func (c *Comp) SetLatency(latency mem.Latency) {
	c.latency = latency
}

// Latency returns the bus and hit latency.
func (c *Comp) Latency() mem.Latency {
	return c.latency
}
