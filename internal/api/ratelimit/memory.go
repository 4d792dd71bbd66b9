package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process fixed-window store. Expired windows are reset
// lazily on access and swept periodically so idle keys do not accumulate.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	done    chan struct{}
	once    sync.Once

	// now is replaceable in tests.
	now func() time.Time
}

type windowEntry struct {
	count   int64
	resetAt time.Time
}

const sweepInterval = time.Minute

// NewMemoryStore creates a memory store and starts its background sweeper.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*windowEntry),
		done:    make(chan struct{}),
		now:     time.Now,
	}

	go s.sweep()

	return s
}

// Incr implements Store.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !entry.resetAt.After(now) {
		entry = &windowEntry{resetAt: now.Add(window)}
		s.entries[key] = entry
	}

	entry.count++

	return entry.count, entry.resetAt.Sub(now), nil
}

// Close stops the background sweeper.
func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := s.now()
			s.mu.Lock()
			for key, entry := range s.entries {
				if !entry.resetAt.After(now) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
