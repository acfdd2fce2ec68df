package cache

import (
	"github.com/sarchlab/cachesim/mem"
)

// Builder can build caches.
type Builder struct {
	config  Config
	latency mem.Latency
	lower   mem.Storage
}

// MakeBuilder creates a new builder with a 32KB, 8-way, write-back,
// write-allocate LRU cache of 64-byte blocks.
func MakeBuilder() Builder {
	return Builder{
		config: Config{
			Size:          32 * mem.KB,
			BlockSize:     64,
			Associativity: 8,
			WriteAllocate: true,
			Replacement:   ReplacementLRU,
		},
		latency: mem.Latency{BusLatency: 3, HitLatency: 10},
	}
}

// WithConfig replaces the whole configuration.
func (b Builder) WithConfig(config Config) Builder {
	b.config = config
	return b
}

// WithSize sets the capacity of the cache in bytes.
func (b Builder) WithSize(size int) Builder {
	b.config.Size = size
	return b
}

// WithBlockSize sets the size of a cache line in bytes.
func (b Builder) WithBlockSize(blockSize int) Builder {
	b.config.BlockSize = blockSize
	return b
}

// WithWayAssociativity sets the number of blocks in a set.
func (b Builder) WithWayAssociativity(associativity int) Builder {
	b.config.Associativity = associativity
	return b
}

// WithWriteThrough makes write hits propagate to the lower level.
func (b Builder) WithWriteThrough(writeThrough bool) Builder {
	b.config.WriteThrough = writeThrough
	return b
}

// WithWriteAllocate makes write misses install the block.
func (b Builder) WithWriteAllocate(writeAllocate bool) Builder {
	b.config.WriteAllocate = writeAllocate
	return b
}

// WithPrefetch sets the number of blocks prefetched on each miss.
func (b Builder) WithPrefetch(depth int) Builder {
	b.config.Prefetch = depth
	return b
}

// WithReplacement sets the replacement policy.
func (b Builder) WithReplacement(policy ReplacementPolicy) Builder {
	b.config.Replacement = policy
	return b
}

// WithBypass enables bypassing capacity misses, remembering historyDepth
// evicted tags per set.
func (b Builder) WithBypass(historyDepth int) Builder {
	b.config.BypassEnabled = true
	b.config.HistoryDepth = historyDepth

	return b
}

// WithLatency sets the bus and hit latency of the cache.
func (b Builder) WithLatency(latency mem.Latency) Builder {
	b.latency = latency
	return b
}

// WithLowerLevel sets the level that serves the misses of the cache.
func (b Builder) WithLowerLevel(lower mem.Storage) Builder {
	b.lower = lower
	return b
}

// Build builds a cache with cleared statistics. It fails if the
// configuration is invalid.
func (b Builder) Build(name string) (*Comp, error) {
	c := New(name)

	if err := c.SetConfig(b.config); err != nil {
		return nil, err
	}

	c.SetLatency(b.latency)
	c.SetStats(mem.Statistics{})

	if b.lower != nil {
		c.SetLower(b.lower)
	}

	return c, nil
}
