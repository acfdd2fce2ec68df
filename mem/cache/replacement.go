package cache

import (
	"github.com/sarchlab/cachesim/mem"
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
)

// replace picks the block to be overwritten in the set. A valid dirty victim
// is written back to the lower level, and the time of the write-back is
// returned.
func (c *Comp) replace(set *tagging.Set, setID int) (wayID, time int) {
	wayID = c.victimFinder.FindVictim(set)
	c.stats.ReplaceCount++

	victim := &set.Blocks[wayID]
	if !victim.IsValid {
		return wayID, 0
	}

	victimAddr := c.tags.BlockAddress(setID, victim.Tag)

	if victim.IsDirty {
		time = c.writeBack(victimAddr, victim)
	}

	if c.config.BypassTracking() {
		set.History.Push(victim.Tag)
	}

	c.invokeHook(HookPosEvict, mem.AccessEvent{
		Address: victimAddr,
		Size:    c.config.BlockSize,
		Kind:    mem.RequestKindWriteBack,
		Time:    time,
	})

	return wayID, time
}

func (c *Comp) writeBack(addr uint64, block *tagging.Block) int {
	_, time := c.lower.HandleRequest(addr, c.config.BlockSize, false, block.Data)
	block.IsDirty = false
	c.stats.WriteBackCount++

	c.invokeHook(HookPosWriteBack, mem.AccessEvent{
		Address: addr,
		Size:    c.config.BlockSize,
		Kind:    mem.RequestKindWriteBack,
		Time:    time,
	})

	return time
}

// Flush writes back every dirty block to the lower level. The blocks stay
// valid and become clean. It returns the total time of the write-backs.
func (c *Comp) Flush() int {
	c.mustBeReady()

	time := 0
	for setID := range c.tags.Sets {
		set := &c.tags.Sets[setID]
		for wayID := range set.Blocks {
			block := &set.Blocks[wayID]
			if block.IsValid && block.IsDirty {
				time += c.writeBack(c.tags.BlockAddress(setID, block.Tag), block)
			}
		}
	}

	return time
}
