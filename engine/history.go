package engine

import (
	"sync"

	"github.com/sentinelops/lewsboard/model"
)

// History is a ring buffer of acquisition cycles for trend display and the
// watch-mode summary line.
type History struct {
	buf  []model.Cycle
	head int
	size int
	cap  int
	mu   sync.RWMutex
}

// NewHistory creates a ring buffer with the given capacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		buf: make([]model.Cycle, capacity),
		cap: capacity,
	}
}

// Push adds a cycle to the ring buffer.
func (h *History) Push(c model.Cycle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.head] = c
	h.head = (h.head + 1) % h.cap
	if h.size < h.cap {
		h.size++
	}
}

// Len returns the number of cycles stored.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Latest returns a copy of the most recent cycle.
func (h *History) Latest() *model.Cycle {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.size == 0 {
		return nil
	}
	idx := (h.head - 1 + h.cap) % h.cap
	c := h.buf[idx] // copy
	return &c
}

// Get returns a copy of the cycle at position i (0 = oldest in buffer).
func (h *History) Get(i int) *model.Cycle {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i < 0 || i >= h.size {
		return nil
	}
	idx := (h.head - h.size + i + h.cap) % h.cap
	c := h.buf[idx] // copy
	return &c
}
