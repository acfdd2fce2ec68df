package idealmemcontroller

import (
	"github.com/sarchlab/cachesim/mem"
)

// Builder can build ideal memory controllers.
type Builder struct {
	latency  mem.Latency
	capacity uint64
	storage  *mem.BackingStore
}

// MakeBuilder returns a new Builder. The defaults follow the classic
// configuration of a 6-cycle bus in front of a 100-cycle memory.
func MakeBuilder() Builder {
	return Builder{
		latency: mem.Latency{BusLatency: 6, HitLatency: 100},
	}
}

// WithLatency sets the bus and hit latency of the memory.
func (b Builder) WithLatency(latency mem.Latency) Builder {
	b.latency = latency
	return b
}

// WithNewStorage makes the memory keep its data in a new backing store of the
// given capacity.
func (b Builder) WithNewStorage(capacity uint64) Builder {
	b.capacity = capacity
	return b
}

// WithStorage sets the backing store of the memory.
func (b Builder) WithStorage(storage *mem.BackingStore) Builder {
	b.storage = storage
	return b
}

// Build builds a new Comp.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		name:    name,
		latency: b.latency,
	}

	switch {
	case b.storage != nil:
		c.Storage = b.storage
	case b.capacity > 0:
		c.Storage = mem.NewBackingStore(b.capacity)
	}

	return c
}
