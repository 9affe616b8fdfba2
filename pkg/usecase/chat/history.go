package chat

import (
	"slices"
	"sync"

	"github.com/m-mizutani/coursedash/pkg/model"
)

// DefaultHistoryCapacity is the number of exchanges a History keeps
const DefaultHistoryCapacity = 10

// History is a bounded FIFO of recent exchanges. Appending beyond capacity evicts the oldest one.
type History struct {
	mu        sync.Mutex
	capacity  int
	exchanges []model.Exchange
}

// NewHistory creates a History. Non-positive capacity falls back to DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		capacity:  capacity,
		exchanges: make([]model.Exchange, 0, capacity),
	}
}

// Append adds an exchange, evicting the oldest one when full
func (h *History) Append(ex model.Exchange) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.exchanges) >= h.capacity {
		h.exchanges = slices.Delete(h.exchanges, 0, len(h.exchanges)-h.capacity+1)
	}
	h.exchanges = append(h.exchanges, ex)
}

// Clear discards every exchange
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exchanges = h.exchanges[:0]
}

// Snapshot returns a copy of exchanges, most recent last
func (h *History) Snapshot() []model.Exchange {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.exchanges)
}

// Len returns the number of stored exchanges
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.exchanges)
}
