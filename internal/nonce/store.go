// Package nonce enforces single use of form-token nonces to reject
// replayed submissions.
package nonce

import (
	"sync"
	"time"
)

// Store tracks spent nonces. Implementations must make ConsumeOnce an
// atomic check-and-set: for a given nonce, at most one caller within the
// TTL window may observe true, even under concurrent submissions.
type Store interface {
	// ConsumeOnce marks the nonce spent and returns true on first use.
	// A nonce already spent and not yet expired returns false.
	ConsumeOnce(nonce string, ttl time.Duration) bool
}

// MemoryStore is a process-wide in-memory Store. It is never persisted;
// a restart resets replay protection, which is acceptable because the
// attack being prevented is rapid automated resubmission of a captured
// token, not long-term replay. It does not provide cross-process
// atomicity - multi-instance deployments need a shared Store.
type MemoryStore struct {
	mu          sync.Mutex
	spent       map[string]time.Time
	maxSize     int
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

const defaultMaxSize = 10000

// NewMemoryStore creates an in-memory store holding up to 10,000 spent
// nonces before opportunistic pruning kicks in.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithSize(defaultMaxSize)
}

// NewMemoryStoreWithSize creates an in-memory store with a custom size bound.
func NewMemoryStoreWithSize(maxSize int) *MemoryStore {
	s := &MemoryStore{
		spent:       make(map[string]time.Time),
		maxSize:     maxSize,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}

	go s.cleanup()

	return s
}

// ConsumeOnce implements Store.
func (s *MemoryStore) ConsumeOnce(nonce string, ttl time.Duration) bool {
	// Cache time.Now() to avoid syscall under lock
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if expiry, exists := s.spent[nonce]; exists && now.Before(expiry) {
		return false
	}

	// Prune expired entries before inserting once the map hits the size
	// bound, so a flood of unique nonces cannot grow memory unbounded.
	if len(s.spent) >= s.maxSize {
		for key, expiry := range s.spent {
			if now.After(expiry) {
				delete(s.spent, key)
			}
		}
	}

	s.spent[nonce] = now.Add(ttl)
	return true
}

// Len returns the number of tracked nonces, including expired entries not
// yet pruned.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spent)
}

// cleanup periodically removes expired entries.
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	defer close(s.cleanupDone)

	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for key, expiry := range s.spent {
				if now.After(expiry) {
					delete(s.spent, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Stop gracefully shuts down the cleanup goroutine.
func (s *MemoryStore) Stop() {
	close(s.stopCleanup)
	<-s.cleanupDone
}
