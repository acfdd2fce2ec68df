package hooking

import (
	"sync"
)

// EventFilter decides if an event reported at a hook site should be counted.
type EventFilter func(ctx HookCtx) bool

// EventCountTracer counts how many times each hook position fires, per
// domain. It can be attached to any number of hookable objects.
type EventCountTracer struct {
	filter EventFilter
	lock   sync.Mutex

	posNames []string
	counts   map[string]map[string]uint64
}

// NewEventCountTracer creates a new EventCountTracer. A nil filter counts
// every event.
func NewEventCountTracer(filter EventFilter) *EventCountTracer {
	return &EventCountTracer{
		filter: filter,
		counts: make(map[string]map[string]uint64),
	}
}

// Func counts the event.
func (t *EventCountTracer) Func(ctx HookCtx) {
	if t.filter != nil && !t.filter(ctx) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	domain := ""
	if ctx.Domain != nil {
		domain = ctx.Domain.Name()
	}

	perDomain, ok := t.counts[ctx.Pos.Name]
	if !ok {
		perDomain = make(map[string]uint64)
		t.counts[ctx.Pos.Name] = perDomain
		t.posNames = append(t.posNames, ctx.Pos.Name)
	}

	perDomain[domain]++
}

// PosNames returns the hook positions observed so far, in first-seen order.
func (t *EventCountTracer) PosNames() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	names := make([]string, len(t.posNames))
	copy(names, t.posNames)

	return names
}

// Count returns the number of events seen at pos in the named domain.
func (t *EventCountTracer) Count(pos *HookPos, domain string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.counts[pos.Name][domain]
}

// Total returns the number of events seen at pos across all domains.
func (t *EventCountTracer) Total(pos *HookPos) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	total := uint64(0)
	for _, n := range t.counts[pos.Name] {
		total += n
	}

	return total
}
