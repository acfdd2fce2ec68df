package tagging

// History is a bounded FIFO of the tags recently evicted from a set. When
// full, pushing a tag drops the oldest one.
type History struct {
	tags  []uint64
	head  int
	count int
}

// NewHistory creates a history that remembers up to depth tags.
func NewHistory(depth int) History {
	return History{tags: make([]uint64, depth)}
}

// Capacity returns the maximum number of tags remembered.
func (h *History) Capacity() int {
	return len(h.tags)
}

// Len returns the number of tags remembered.
func (h *History) Len() int {
	return h.count
}

// Push records an evicted tag.
func (h *History) Push(tag uint64) {
	if len(h.tags) == 0 {
		return
	}

	tail := (h.head + h.count) % len(h.tags)
	h.tags[tail] = tag

	if h.count == len(h.tags) {
		h.head = (h.head + 1) % len(h.tags)
		return
	}

	h.count++
}

// Contains tells if the tag was evicted recently. It does not change the
// history.
func (h *History) Contains(tag uint64) bool {
	for i := 0; i < h.count; i++ {
		if h.tags[(h.head+i)%len(h.tags)] == tag {
			return true
		}
	}

	return false
}

// Tags returns the remembered tags from the oldest to the newest.
func (h *History) Tags() []uint64 {
	tags := make([]uint64, 0, h.count)
	for i := 0; i < h.count; i++ {
		tags = append(tags, h.tags[(h.head+i)%len(h.tags)])
	}

	return tags
}
