// Package cache provides the in-process TTL cache behind the repository
// decorators and the computed leaderboard store.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/leagueroom/fantasy-blocks/internal/platform/resilience"
)

type item struct {
	value    any
	deadline time.Time
}

func (it *item) expired(now time.Time) bool {
	return !it.deadline.IsZero() && !now.Before(it.deadline)
}

// Store is a keyed cache with request coalescing on the load path. A ttl of
// zero or less disables expiry.
type Store struct {
	mu     sync.RWMutex
	items  map[string]*item
	ttl    time.Duration
	clock  func() time.Time
	flight resilience.SingleFlight
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		items: make(map[string]*item),
		ttl:   ttl,
		clock: time.Now,
	}
}

func (s *Store) Get(_ context.Context, key string) (any, bool) {
	if key == "" {
		return nil, false
	}

	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if it.expired(s.clock()) {
		s.evict(key, it)
		return nil, false
	}

	return it.value, true
}

// evict removes key only while it still holds the expired item, so a Set
// racing the expiry is never wiped out.
func (s *Store) evict(key string, stale *item) {
	s.mu.Lock()
	if current, ok := s.items[key]; ok && current == stale {
		delete(s.items, key)
	}
	s.mu.Unlock()
}

func (s *Store) Set(_ context.Context, key string, value any) {
	if key == "" {
		return
	}

	it := &item{value: value}
	if s.ttl > 0 {
		it.deadline = s.clock().Add(s.ttl)
	}

	s.mu.Lock()
	s.items[key] = it
	s.mu.Unlock()
}

func (s *Store) Delete(_ context.Context, key string) {
	if key == "" {
		return
	}

	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

func (s *Store) DeletePrefix(_ context.Context, prefix string) {
	if prefix == "" {
		return
	}

	s.mu.Lock()
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			delete(s.items, key)
		}
	}
	s.mu.Unlock()
}

// GetOrLoad returns the cached value for key, running loader to fill the
// miss. Concurrent misses on the same key share one loader call.
func (s *Store) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	if loader == nil {
		return nil, fmt.Errorf("cache: loader is required")
	}
	if key == "" {
		return loader(ctx)
	}

	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	value, err, _ := s.flight.Do(key, func() (any, error) {
		// The flight winner may have filled the key while we queued.
		if value, ok := s.Get(ctx, key); ok {
			return value, nil
		}

		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		s.Set(ctx, key, loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	return value, nil
}
