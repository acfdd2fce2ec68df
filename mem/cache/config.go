package cache

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrInvalidConfig is wrapped by every error returned when a cache
// configuration violates the size rules.
var ErrInvalidConfig = errors.New("invalid cache configuration")

// ReplacementPolicy names a replacement strategy.
type ReplacementPolicy string

// Supported replacement policies.
const (
	ReplacementLRU  ReplacementPolicy = "lru"
	ReplacementPLRU ReplacementPolicy = "plru"
)

// Config describes the geometry and policies of one cache level.
type Config struct {
	Size          int               `yaml:"size" json:"size"`
	BlockSize     int               `yaml:"block_size" json:"block_size"`
	Associativity int               `yaml:"associativity" json:"associativity"`
	WriteThrough  bool              `yaml:"write_through" json:"write_through"`
	WriteAllocate bool              `yaml:"write_allocate" json:"write_allocate"`
	Prefetch      int               `yaml:"prefetch" json:"prefetch"`
	Replacement   ReplacementPolicy `yaml:"replacement" json:"replacement"`
	HistoryDepth  int               `yaml:"history" json:"history"`
	BypassEnabled bool              `yaml:"bypass" json:"bypass"`
}

// NumSets returns the number of sets derived from the geometry.
func (c Config) NumSets() int {
	if c.BlockSize <= 0 || c.Associativity <= 0 {
		return 0
	}

	return c.Size / (c.BlockSize * c.Associativity)
}

// BypassTracking tells if evicted tags are remembered and capacity misses
// are bypassed.
func (c Config) BypassTracking() bool {
	return c.BypassEnabled && c.HistoryDepth > 0
}

func isPowerOfTwo(x int) bool {
	return x > 0 && bits.OnesCount(uint(x)) == 1
}

// Validate checks the configuration. The returned error wraps
// ErrInvalidConfig.
func (c Config) Validate() error {
	if !isPowerOfTwo(c.Size) {
		return fmt.Errorf("%w: size %d is not a power of two",
			ErrInvalidConfig, c.Size)
	}

	if !isPowerOfTwo(c.BlockSize) {
		return fmt.Errorf("%w: block size %d is not a power of two",
			ErrInvalidConfig, c.BlockSize)
	}

	if !isPowerOfTwo(c.Associativity) {
		return fmt.Errorf("%w: associativity %d is not a power of two",
			ErrInvalidConfig, c.Associativity)
	}

	if c.BlockSize*c.Associativity >= c.Size {
		return fmt.Errorf("%w: block size %d x associativity %d must be "+
			"smaller than size %d", ErrInvalidConfig,
			c.BlockSize, c.Associativity, c.Size)
	}

	if !isPowerOfTwo(c.NumSets()) {
		return fmt.Errorf("%w: set count %d is not a power of two",
			ErrInvalidConfig, c.NumSets())
	}

	if c.Prefetch < 0 {
		return fmt.Errorf("%w: negative prefetch depth %d",
			ErrInvalidConfig, c.Prefetch)
	}

	if c.HistoryDepth < 0 {
		return fmt.Errorf("%w: negative history depth %d",
			ErrInvalidConfig, c.HistoryDepth)
	}

	switch c.Replacement {
	case ReplacementLRU, ReplacementPLRU:
	default:
		return fmt.Errorf("%w: unknown replacement policy %q",
			ErrInvalidConfig, c.Replacement)
	}

	return nil
}
