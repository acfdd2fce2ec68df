// Package mem defines the contract shared by every level of a simulated
// memory hierarchy, together with the statistics each level keeps.
package mem

import (
	"github.com/sarchlab/cachesim/sim/hooking"
)

// Size units.
const (
	KB = 1 << 10
	MB = 1 << 20
	GB = 1 << 30
)

// Storage is a level of the memory hierarchy. Caches and memory both
// implement it.
//
// HandleRequest serves size bytes at address. On reads, the data is copied
// into buf; on writes, buf provides the data. The returned time is the
// simulated latency of the request, including the time spent in lower
// levels.
type Storage interface {
	hooking.Hookable

	HandleRequest(address uint64, size int, isRead bool, buf []byte) (
		hit bool, time int)

	// Stats returns a snapshot of the running counters.
	Stats() Statistics

	// SetStats overwrites the counters. It is meant to be called once, at
	// setup, usually with the zero value.
	SetStats(stats Statistics)

	// SetLatency configures the bus and hit latencies of the level.
	SetLatency(latency Latency)

	// Latency returns the configured latencies.
	Latency() Latency
}

// Latency is the timing parameters of a level, in simulated cycles.
type Latency struct {
	BusLatency int `yaml:"bus" json:"bus"`
	HitLatency int `yaml:"hit" json:"hit"`
}

// Total returns the time of a hit served by the level.
func (l Latency) Total() int {
	return l.BusLatency + l.HitLatency
}
