// Package tagging keeps track of what is stored in each set of a cache and
// decides which block to evict.
package tagging

import (
	"math/bits"
)

// A Block of a cache is the information that is associated with a cache line,
// together with the data it holds.
type Block struct {
	Tag       uint64
	IsValid   bool
	IsDirty   bool
	LastTouch uint64
	Data      []byte
}

// A Set is a list of blocks where a certain piece memory can be stored at.
type Set struct {
	Blocks []Block

	// PLRUBits is the pseudo-LRU decision tree, stored in heap order. Node i
	// has children 2i+1 and 2i+2. A false bit points the next victim to the
	// left subtree.
	PLRUBits []bool

	// History keeps the tags recently evicted from the set.
	History History
}

// Lookup returns the way that holds a valid block with the tag.
func (s *Set) Lookup(tag uint64) (wayID int, found bool) {
	for i := range s.Blocks {
		if s.Blocks[i].IsValid && s.Blocks[i].Tag == tag {
			return i, true
		}
	}

	return 0, false
}

// HasInvalidBlock tells if the set still has a block that was never filled.
func (s *Set) HasInvalidBlock() bool {
	for i := range s.Blocks {
		if !s.Blocks[i].IsValid {
			return true
		}
	}

	return false
}

// Visit records that the block in wayID has been used at the given logical
// time. It refreshes the LRU timestamp and points the PLRU tree away from
// the block.
func (s *Set) Visit(wayID int, now uint64) {
	s.Blocks[wayID].LastTouch = now

	levels := bits.Len(uint(len(s.Blocks))) - 1
	node := 0

	for l := levels - 1; l >= 0; l-- {
		dir := (wayID >> l) & 1
		s.PLRUBits[node] = dir == 0
		node = 2*node + 1 + dir
	}
}

// A TagArray is the directory of a cache. It splits addresses into tag, set
// index and block offset and owns the sets.
type TagArray struct {
	NumSets   int
	NumWays   int
	BlockSize int

	Log2BlockSize int
	Log2NumSets   int

	Sets []Set
}

// NewTagArray creates a tag array with all blocks invalid. All the sizes
// must be powers of two.
func NewTagArray(numSets, numWays, blockSize, historyDepth int) *TagArray {
	t := &TagArray{
		NumSets:       numSets,
		NumWays:       numWays,
		BlockSize:     blockSize,
		Log2BlockSize: bits.TrailingZeros(uint(blockSize)),
		Log2NumSets:   bits.TrailingZeros(uint(numSets)),
	}

	t.Sets = make([]Set, numSets)
	for i := range t.Sets {
		set := &t.Sets[i]
		set.Blocks = make([]Block, numWays)
		set.PLRUBits = make([]bool, numWays-1)
		set.History = NewHistory(historyDepth)

		for j := range set.Blocks {
			set.Blocks[j].Data = make([]byte, blockSize)
		}
	}

	return t
}

// Partition splits an address into set index, tag and block offset.
func (t *TagArray) Partition(addr uint64) (setID int, tag, offset uint64) {
	offset = addr & (uint64(t.BlockSize) - 1)
	setID = int((addr >> t.Log2BlockSize) & (uint64(t.NumSets) - 1))
	tag = addr >> (t.Log2BlockSize + t.Log2NumSets)

	return setID, tag, offset
}

// BlockAddress rebuilds the block-aligned address of a tag stored in a set.
func (t *TagArray) BlockAddress(setID int, tag uint64) uint64 {
	return tag<<(t.Log2BlockSize+t.Log2NumSets) |
		uint64(setID)<<t.Log2BlockSize
}
