package cache

import (
	"github.com/sarchlab/cachesim/mem"
)

// prefetch reads the blocks following the block of address into the cache.
// Prefetch requests are not counted as accesses and never trigger further
// prefetching.
func (c *Comp) prefetch(address uint64) {
	if c.config.Prefetch <= 0 {
		return
	}

	blockSize := uint64(c.config.BlockSize)
	blockAddr := address &^ (blockSize - 1)
	buf := make([]byte, blockSize)

	for i := 1; i <= c.config.Prefetch; i++ {
		req := request{
			address: blockAddr + uint64(i)*blockSize,
			size:    int(blockSize),
			isRead:  true,
			buf:     buf,
			kind:    mem.RequestKindPrefetch,
		}

		_, time := c.handle(req)

		c.invokeHook(HookPosPrefetch, req.event(time))
	}
}
