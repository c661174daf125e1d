package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStoreExpiresAfterTTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	store := NewStore(time.Minute)
	store.clock = func() time.Time { return now }

	ctx := t.Context()
	store.Set(ctx, "leaderboard:block:1", "standings")

	if _, ok := store.Get(ctx, "leaderboard:block:1"); !ok {
		t.Fatal("expected a hit before the deadline")
	}

	now = now.Add(time.Minute)
	if _, ok := store.Get(ctx, "leaderboard:block:1"); ok {
		t.Fatal("expected a miss once the deadline passes")
	}
}

func TestStoreZeroTTLNeverExpires(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	store := NewStore(0)
	store.clock = func() time.Time { return now }

	ctx := t.Context()
	store.Set(ctx, "season", "totals")

	now = now.Add(240 * time.Hour)
	if _, ok := store.Get(ctx, "season"); !ok {
		t.Fatal("zero ttl entries must not expire")
	}
}

func TestStoreDeletePrefix(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	ctx := t.Context()
	store.Set(ctx, "leaderboard:block:1", "a")
	store.Set(ctx, "leaderboard:block:2", "b")
	store.Set(ctx, "leaderboard:season", "c")
	store.Set(ctx, "blocks:list", "d")

	store.DeletePrefix(ctx, "leaderboard:")

	for _, key := range []string{"leaderboard:block:1", "leaderboard:block:2", "leaderboard:season"} {
		if _, ok := store.Get(ctx, key); ok {
			t.Fatalf("key %q should have been deleted", key)
		}
	}
	if _, ok := store.Get(ctx, "blocks:list"); !ok {
		t.Fatal("unrelated key must survive a prefix delete")
	}
}

func TestStoreCoalescesConcurrentLoads(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	ctx := t.Context()
	var calls atomic.Int32
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "standings", nil
	}

	const workers = 24
	start := make(chan struct{})
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			value, err := store.GetOrLoad(ctx, "leaderboard:block:1", loader)
			if err != nil {
				results <- err
				return
			}
			if got, _ := value.(string); got != "standings" {
				results <- errors.New("loaded value mismatch")
			}
		}()
	}

	close(start)
	wg.Wait()
	close(results)
	for err := range results {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("loader ran %d times, want 1", got)
	}
}

func TestStoreServesCacheOnSecondLoad(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	ctx := t.Context()
	var calls atomic.Int32
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		return "standings", nil
	}

	for i := 0; i < 3; i++ {
		if _, err := store.GetOrLoad(ctx, "leaderboard:block:2", loader); err != nil {
			t.Fatalf("GetOrLoad %d: %v", i, err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("loader ran %d times, want 1", got)
	}
}

func TestStoreDoesNotCacheLoaderErrors(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	ctx := t.Context()
	boom := errors.New("store offline")
	var calls atomic.Int32

	failing := func(context.Context) (any, error) {
		calls.Add(1)
		return nil, boom
	}
	if _, err := store.GetOrLoad(ctx, "leaderboard:block:3", failing); !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}

	if _, err := store.GetOrLoad(ctx, "leaderboard:block:3", func(context.Context) (any, error) {
		calls.Add(1)
		return "recovered", nil
	}); err != nil {
		t.Fatalf("recovery load: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("loader ran %d times, want 2", got)
	}
}
