package chat

import (
	"slices"
	"sync"
)

// Sessions owns one History per session key. A session is created on first Get and
// lives until Evict.
type Sessions struct {
	mu       sync.Mutex
	capacity int
	sessions map[string]*History
}

// NewSessions creates a session manager whose histories hold up to capacity exchanges
func NewSessions(capacity int) *Sessions {
	return &Sessions{
		capacity: capacity,
		sessions: make(map[string]*History),
	}
}

// Get returns the History of the key, creating an empty one if absent
func (s *Sessions) Get(key string) *History {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.sessions[key]
	if !ok {
		h = NewHistory(s.capacity)
		s.sessions[key] = h
	}
	return h
}

// Clear discards exchanges of the key. It does nothing for an unknown key.
func (s *Sessions) Clear(key string) {
	s.mu.Lock()
	h, ok := s.sessions[key]
	s.mu.Unlock()

	if ok {
		h.Clear()
	}
}

// ClearAll discards exchanges of every session
func (s *Sessions) ClearAll() {
	s.mu.Lock()
	histories := make([]*History, 0, len(s.sessions))
	for _, h := range s.sessions {
		histories = append(histories, h)
	}
	s.mu.Unlock()

	for _, h := range histories {
		h.Clear()
	}
}

// Evict removes the session entirely
func (s *Sessions) Evict(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// Keys returns session keys in sorted order
func (s *Sessions) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.sessions))
	for k := range s.sessions {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
