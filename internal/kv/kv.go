// Package kv provides the namespaced string key-value storage the portal keeps
// its records in. Writes are rejected with a QUOTA_EXCEEDED error once the total
// stored size would pass the configured quota.
package kv

import (
	"context"
	"sync"

	"github.com/vytor/prepportal/internal/errors"
)

// Store is the local persistence contract.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Recoverer is implemented by stores that set aside data they could not read
// instead of failing.
type Recoverer interface {
	// TakeRecovered returns where the unreadable data went, once per recovery.
	TakeRecovered() string
}

// usage returns the bytes state would take with key set to value.
func usage(state map[string]string, key, value string) int {
	total := len(key) + len(value)
	for k, v := range state {
		if k == key {
			continue
		}
		total += len(k) + len(v)
	}
	return total
}

// MemoryStore is an in-process Store. A quota of 0 means unlimited.
type MemoryStore struct {
	mu    sync.RWMutex
	state map[string]string
	quota int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(quota int) *MemoryStore {
	return &MemoryStore{state: make(map[string]string), quota: quota}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.state[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quota > 0 {
		if size := usage(s.state, key, value); size > s.quota {
			return errors.NewQuotaExceededError(key, size, s.quota)
		}
	}
	s.state[key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, key)
	return nil
}
