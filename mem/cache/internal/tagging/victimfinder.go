package tagging

import (
	"math/bits"
)

// A VictimFinder decides which block should be evicted from a set.
type VictimFinder interface {
	FindVictim(set *Set) (wayID int)
}

func findInvalid(set *Set) (int, bool) {
	for i := range set.Blocks {
		if !set.Blocks[i].IsValid {
			return i, true
		}
	}

	return 0, false
}

// LRUVictimFinder evicts the least recently used block.
type LRUVictimFinder struct {
}

// NewLRUVictimFinder returns a newly constructed lru evictor
func NewLRUVictimFinder() *LRUVictimFinder {
	return new(LRUVictimFinder)
}

// FindVictim returns the first invalid block, or the block with the oldest
// timestamp. Ties go to the lowest way.
func (e *LRUVictimFinder) FindVictim(set *Set) int {
	if wayID, ok := findInvalid(set); ok {
		return wayID
	}

	victim := 0
	for i := 1; i < len(set.Blocks); i++ {
		if set.Blocks[i].LastTouch < set.Blocks[victim].LastTouch {
			victim = i
		}
	}

	return victim
}

// PLRUVictimFinder approximates LRU with a binary tree of bits per set.
type PLRUVictimFinder struct {
}

// NewPLRUVictimFinder returns a newly constructed tree pseudo-LRU evictor.
func NewPLRUVictimFinder() *PLRUVictimFinder {
	return new(PLRUVictimFinder)
}

// FindVictim returns the first invalid block. Otherwise, it follows the tree
// bits from the root, flipping each bit it passes, and returns the block the
// path leads to.
func (e *PLRUVictimFinder) FindVictim(set *Set) int {
	if wayID, ok := findInvalid(set); ok {
		return wayID
	}

	levels := bits.Len(uint(len(set.Blocks))) - 1
	node := 0
	wayID := 0

	for range levels {
		dir := 0
		if set.PLRUBits[node] {
			dir = 1
		}

		set.PLRUBits[node] = !set.PLRUBits[node]
		wayID = wayID<<1 | dir
		node = 2*node + 1 + dir
	}

	return wayID
}
