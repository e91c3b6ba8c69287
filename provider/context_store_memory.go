package provider

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory ContextStore. When created with a capacity it
// evicts the oldest inserted key once full.
type MemoryStore[C any] struct {
	mu       sync.RWMutex
	items    map[string]memEntry[C]
	order    []string
	capacity int
}

type memEntry[C any] struct {
	val       *C
	expiresAt time.Time // zero means no expiration
}

// NewMemoryStore creates an unbounded in-memory ContextStore.
func NewMemoryStore[C any]() *MemoryStore[C] {
	return NewBoundedMemoryStore[C](0)
}

// NewBoundedMemoryStore creates an in-memory ContextStore holding at most
// capacity entries. capacity <= 0 means unbounded.
func NewBoundedMemoryStore[C any](capacity int) *MemoryStore[C] {
	return &MemoryStore[C]{
		items:    make(map[string]memEntry[C]),
		capacity: capacity,
	}
}

// Load retrieves a value. Returns (nil, nil) if key doesn't exist or has expired.
func (s *MemoryStore[C]) Load(_ context.Context, key string) (*C, error) {
	s.mu.RLock()
	entry, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		s.remove(key)
		s.mu.Unlock()
		return nil, nil
	}
	return entry.val, nil
}

// Save persists a value with optional TTL. TTL of 0 means no expiration.
func (s *MemoryStore[C]) Save(_ context.Context, key string, val *C, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memEntry[C]{val: val}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	if _, exists := s.items[key]; !exists {
		s.order = append(s.order, key)
	}
	s.items[key] = entry

	for s.capacity > 0 && len(s.items) > s.capacity {
		s.remove(s.order[0])
	}
	return nil
}

// Delete removes a value.
func (s *MemoryStore[C]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remove(key)
	return nil
}

// Len returns the number of entries (including expired but not yet cleaned up).
func (s *MemoryStore[C]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// remove must be called with the write lock held.
func (s *MemoryStore[C]) remove(key string) {
	if _, ok := s.items[key]; !ok {
		return
	}
	delete(s.items, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// compile-time interface check
var _ ContextStore[any] = (*MemoryStore[any])(nil)
