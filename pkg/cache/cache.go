package cache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/artem13815/curricula/pkg/logger"
)

// Store is the persistence port for cache entries. Get must atomically bump
// the entry's access counter; only valid entries are returned.
type Store interface {
	Get(ctx context.Context, key string) (payload []byte, ok bool, err error)
	Put(ctx context.Context, key string, kind Kind, payload []byte) error
	Invalidate(ctx context.Context, key string) error
	InvalidateAll(ctx context.Context) error
}

// Cache makes expensive, non-deterministic computations idempotent per key.
// Concurrent requests for the same absent key are collapsed to one execution
// of the compute function; losers wait for the winner's result. A failed
// computation stores nothing, so the next request retries cleanly.
type Cache struct {
	store Store
	sf    singleflight.Group
	log   *logger.Logger
}

func New(store Store, log *logger.Logger) *Cache {
	return &Cache{store: store, log: log.With("component", "cache")}
}

// GetOrCompute returns the cached payload for key, computing and storing it
// on a miss. At most one concurrent execution of compute runs per key.
func (c *Cache) GetOrCompute(ctx context.Context, key string, kind Kind, compute func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if payload, ok, err := c.store.Get(ctx, key); err == nil && ok {
		c.log.Debug("cache hit", "key", key)
		return payload, nil
	} else if err != nil {
		c.log.Warn("cache read failed, computing", "key", key, "error", err)
	}

	v, err, shared := c.sf.Do(key, func() (any, error) {
		// Re-check under the flight: another process may have stored the
		// entry between our miss and winning the key.
		if payload, ok, err := c.store.Get(ctx, key); err == nil && ok {
			return payload, nil
		}
		payload, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.store.Put(ctx, key, kind, payload); err != nil {
			// The result is still good; losing the cache write only costs a
			// recompute later.
			c.log.Warn("cache write failed", "key", key, "error", err)
		}
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.log.Debug("cache flight shared", "key", key)
	}
	return v.([]byte), nil
}

// Invalidate drops one entry. Administrative action; entries never expire by
// time on their own.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.store.Invalidate(ctx, key)
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	return c.store.InvalidateAll(ctx)
}

// MemoryStore is an in-process Store used in tests and when no database is
// configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memEntry
}

type memEntry struct {
	payload     []byte
	kind        Kind
	valid       bool
	accessCount int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memEntry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !e.valid {
		return nil, false, nil
	}
	e.accessCount++
	return e.payload, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, kind Kind, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &memEntry{payload: payload, kind: kind, valid: true}
	return nil
}

func (s *MemoryStore) Invalidate(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.valid = false
	}
	return nil
}

func (s *MemoryStore) InvalidateAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.valid = false
	}
	return nil
}

// AccessCount reports how often a key was read; used by tests.
func (s *MemoryStore) AccessCount(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e.accessCount
	}
	return 0
}
