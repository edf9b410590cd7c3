// Package memstore provides an in-memory store.Store used by tests and by
// dev mode when no database path is configured.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"valeshop/internal/store"
)

type record struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Store is a process-local key-value store with per-key expiry.
// The clock is injectable so expiry behavior can be tested deterministically.
type Store struct {
	mu      sync.RWMutex
	records map[string]record
	now     func() time.Time
}

// New creates an empty in-memory store using the wall clock.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates a store that reads time from now.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		records: make(map[string]record),
		now:     now,
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	rec, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	if !rec.expiresAt.IsZero() && s.now().After(rec.expiresAt) {
		// The read lock was dropped above; a concurrent Put may have
		// replaced the record. Only reap what is still expired.
		s.mu.Lock()
		if cur, ok := s.records[key]; ok &&
			!cur.expiresAt.IsZero() && s.now().After(cur.expiresAt) {
			delete(s.records, key)
		}
		s.mu.Unlock()
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(rec.value))
	copy(out, rec.value)
	return out, nil
}

func (s *Store) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	rec := record{value: make([]byte, len(value))}
	copy(rec.value, value)
	if ttl > 0 {
		rec.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.records[key] = rec
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) List(_ context.Context, prefix string, limit int, cursor string) (store.Page, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	now := s.now()
	keys := make([]string, 0, len(s.records))
	for k, rec := range s.records {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if !rec.expiresAt.IsZero() && now.After(rec.expiresAt) {
			continue
		}
		if cursor != "" && k <= cursor {
			continue
		}
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Strings(keys)

	page := store.Page{}
	if len(keys) > limit {
		page.Keys = keys[:limit]
		page.NextCursor = keys[limit-1]
		page.HasMore = true
	} else {
		page.Keys = keys
	}
	return page, nil
}
