package cache

import (
	"fmt"

	"github.com/sarchlab/cachesim/mem"
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
)

type request struct {
	address uint64
	size    int
	isRead  bool
	buf     []byte
	kind    mem.RequestKind
}

func (r request) isDemand() bool {
	return r.kind == mem.RequestKindDemand
}

func (r request) event(time int) mem.AccessEvent {
	return mem.AccessEvent{
		Address: r.address,
		Size:    r.size,
		IsRead:  r.isRead,
		Kind:    r.kind,
		Time:    time,
	}
}

// HandleRequest serves a demand request of size bytes at address. The
// request must not cross a block boundary. On reads, the data is copied to
// buf. On writes, buf provides the data.
func (c *Comp) HandleRequest(
	address uint64,
	size int,
	isRead bool,
	buf []byte,
) (hit bool, time int) {
	return c.handle(request{
		address: address,
		size:    size,
		isRead:  isRead,
		buf:     buf,
		kind:    mem.RequestKindDemand,
	})
}

func (c *Comp) handle(req request) (hit bool, time int) {
	c.mustBeReady()
	c.mustBeWithinBlock(req)

	if req.isDemand() {
		c.stats.AccessCounter++
	}

	setID, tag, offset := c.tags.Partition(req.address)
	set := &c.tags.Sets[setID]

	wayID, found := set.Lookup(tag)
	if found {
		return c.handleHit(req, set, wayID, offset)
	}

	if req.isDemand() && c.shouldBypass(set, tag) {
		return c.handleBypass(req)
	}

	return c.handleMiss(req, setID, tag, offset)
}

func (c *Comp) mustBeWithinBlock(req request) {
	offset := req.address & uint64(c.config.BlockSize-1)

	if req.size <= 0 ||
		offset+uint64(req.size) > uint64(c.config.BlockSize) ||
		len(req.buf) < req.size {
		panic(fmt.Sprintf(
			"%s: request of %d bytes at 0x%016x with a %d-byte buffer "+
				"does not fit in a %d-byte block",
			c.name, req.size, req.address, len(req.buf), c.config.BlockSize))
	}
}

func (c *Comp) handleHit(
	req request,
	set *tagging.Set,
	wayID int,
	offset uint64,
) (bool, int) {
	block := &set.Blocks[wayID]
	time := c.latency.Total()

	if req.isRead {
		copy(req.buf[:req.size], block.Data[offset:])
	} else {
		time += c.writeBlock(block, req, offset)
	}

	c.visit(set, wayID)

	if req.isDemand() {
		c.stats.HitCount++
		c.stats.AccessTime += uint64(c.latency.Total())
	}

	c.invokeHook(HookPosHit, req.event(time))

	return true, time
}

// writeBlock applies the data of a write request to a resident block. Under
// write-through, the write is also sent to the lower level and the lower
// level time is returned.
func (c *Comp) writeBlock(
	block *tagging.Block,
	req request,
	offset uint64,
) int {
	copy(block.Data[offset:], req.buf[:req.size])

	if !c.config.WriteThrough {
		block.IsDirty = true
		return 0
	}

	_, lowerTime := c.lower.HandleRequest(
		req.address, req.size, false, req.buf[:req.size])

	return lowerTime
}

func (c *Comp) handleBypass(req request) (bool, int) {
	_, lowerTime := c.lower.HandleRequest(
		req.address, req.size, req.isRead, req.buf[:req.size])
	time := c.latency.BusLatency + lowerTime

	c.stats.BypassCount++
	c.stats.AccessTime += uint64(c.latency.BusLatency)

	c.invokeHook(HookPosBypass, req.event(time))

	return false, time
}

func (c *Comp) handleMiss(
	req request,
	setID int,
	tag, offset uint64,
) (bool, int) {
	if req.isDemand() {
		c.stats.MissCount++
		c.prefetch(req.address)
	}

	time := c.latency.BusLatency

	if !req.isRead && !c.config.WriteAllocate {
		_, lowerTime := c.lower.HandleRequest(
			req.address, req.size, false, req.buf[:req.size])
		time += lowerTime
	} else {
		time += c.fill(req, setID, tag, offset)
	}

	if req.isDemand() {
		c.stats.AccessTime += uint64(c.latency.BusLatency)
	}

	c.invokeHook(HookPosMiss, req.event(time))

	return false, time
}

// fill fetches the block of the request from the lower level and installs
// it as a clean block. Reads are served from the installed block. An
// allocating write only reserves the block; a later write hit makes it dirty.
func (c *Comp) fill(req request, setID int, tag, offset uint64) int {
	blockSize := c.config.BlockSize
	blockAddr := c.tags.BlockAddress(setID, tag)

	fetched := make([]byte, blockSize)
	_, time := c.lower.HandleRequest(blockAddr, blockSize, true, fetched)

	set := &c.tags.Sets[setID]
	wayID, evictTime := c.replace(set, setID)
	time += evictTime

	block := &set.Blocks[wayID]
	block.Tag = tag
	block.IsValid = true
	block.IsDirty = false
	copy(block.Data, fetched)
	c.visit(set, wayID)

	c.stats.FetchCount++
	if req.kind == mem.RequestKindPrefetch {
		c.stats.PrefetchCount++
	}

	if req.isRead {
		copy(req.buf[:req.size], block.Data[offset:])
	}

	return time
}

func (c *Comp) visit(set *tagging.Set, wayID int) {
	c.now++
	set.Visit(wayID, c.now)
}
