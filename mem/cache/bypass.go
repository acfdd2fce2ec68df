package cache

import (
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
)

// shouldBypass classifies a miss. Compulsory misses (the set still has an
// invalid block) and conflict misses (the tag was evicted from the set
// recently) are filled. Remaining misses are capacity misses and bypass the
// cache. The history is not modified.
func (c *Comp) shouldBypass(set *tagging.Set, tag uint64) bool {
	if !c.config.BypassTracking() {
		return false
	}

	if set.HasInvalidBlock() {
		return false
	}

	return !set.History.Contains(tag)
}
