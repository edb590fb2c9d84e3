package ratelimiter

import (
	"errors"
	"sync"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// Store holds bucket state keyed by source. The in-memory implementation is
// the default; anything fulfilling the interface (e.g. a shared cache) can
// be swapped in.
type Store interface {
	Get(key string) (int, error)
	Set(key string, value int, expiration time.Duration) error
	Close() error
}

type memoryEntry struct {
	value     int
	expiresAt time.Time
}

type memoryStore struct {
	mu        sync.RWMutex
	cache     map[string]memoryEntry
	stopClean chan struct{}
	cleanOnce sync.Once
}

func NewMemoryStore() Store {
	s := &memoryStore{
		cache:     make(map[string]memoryEntry),
		stopClean: make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

func (s *memoryStore) Get(key string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.cache[key]
	if !ok {
		return 0, ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return 0, ErrCacheMiss
	}

	return entry.value, nil
}

func (s *memoryStore) Set(key string, value int, expiration time.Duration) error {
	var expiresAt time.Time
	if expiration > 0 {
		expiresAt = time.Now().Add(expiration)
	}

	s.mu.Lock()
	s.cache[key] = memoryEntry{value: value, expiresAt: expiresAt}
	s.mu.Unlock()

	return nil
}

func (s *memoryStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stopClean:
			return
		}
	}
}

func (s *memoryStore) removeExpired() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.cache {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(s.cache, key)
		}
	}
}

func (s *memoryStore) Close() error {
	s.cleanOnce.Do(func() {
		close(s.stopClean)
	})
	return nil
}
