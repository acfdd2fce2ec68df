// Package cache provides a set-associative cache level that serves requests
// synchronously and delegates misses to a lower level of the hierarchy.
package cache

import (
	"fmt"

	"github.com/sarchlab/cachesim/mem"
	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
	"github.com/sarchlab/cachesim/sim/hooking"
)

// Hook positions of a cache. The hook item is always a mem.AccessEvent.
var (
	HookPosHit       = &hooking.HookPos{Name: "Cache Hit"}
	HookPosMiss      = &hooking.HookPos{Name: "Cache Miss"}
	HookPosBypass    = &hooking.HookPos{Name: "Cache Bypass"}
	HookPosEvict     = &hooking.HookPos{Name: "Cache Evict"}
	HookPosWriteBack = &hooking.HookPos{Name: "Cache Write Back"}
	HookPosPrefetch  = &hooking.HookPos{Name: "Cache Prefetch"}
)

// A Comp is one level of a cache hierarchy.
//
// A Comp is not safe for concurrent use. Every request runs to completion,
// through all the lower levels, before HandleRequest returns.
type Comp struct {
	hooking.HookableBase

	name string

	config       Config
	tags         *tagging.TagArray
	victimFinder tagging.VictimFinder

	lower   mem.Storage
	latency mem.Latency
	stats   mem.Statistics

	// now is the logical clock used to timestamp block visits.
	now uint64
}

// New creates an unconfigured cache. SetConfig and SetLower must be called
// before the first request.
func New(name string) *Comp {
	return &Comp{name: name}
}

// Name returns the name of the cache.
func (c *Comp) Name() string {
	return c.name
}

// SetConfig validates the configuration and rebuilds the cache content. If
// the configuration is invalid, an error wrapping ErrInvalidConfig is
// returned and the cache is left untouched.
func (c *Comp) SetConfig(config Config) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}

	c.config = config
	c.tags = tagging.NewTagArray(
		config.NumSets(),
		config.Associativity,
		config.BlockSize,
		config.HistoryDepth,
	)
	c.victimFinder = createVictimFinder(config.Replacement)
	c.now = 0

	return nil
}

func createVictimFinder(policy ReplacementPolicy) tagging.VictimFinder {
	switch policy {
	case ReplacementLRU:
		return tagging.NewLRUVictimFinder()
	case ReplacementPLRU:
		return tagging.NewPLRUVictimFinder()
	default:
		panic("unknown replace strategy: " + string(policy))
	}
}

// Config returns the current configuration.
func (c *Comp) Config() Config {
	return c.config
}

// SetLower sets the level that serves the misses of this cache.
func (c *Comp) SetLower(lower mem.Storage) {
	c.lower = lower
}

// Lower returns the level below this cache.
func (c *Comp) Lower() mem.Storage {
	return c.lower
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

func (c *Comp) mustBeReady() {
	if c.tags == nil {
		panic(c.name + ": cache is used before it is configured")
	}

	if c.lower == nil {
		panic(c.name + ": cache is used without a lower level")
	}
}

func (c *Comp) invokeHook(pos *hooking.HookPos, event mem.AccessEvent) {
	if c.NumHooks() == 0 {
		return
	}

	event.Level = c.name

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   event,
	})
}
