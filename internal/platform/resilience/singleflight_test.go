package resilience

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlightRunsOncePerKey(t *testing.T) {
	t.Parallel()

	var sf SingleFlight
	var runs atomic.Int32
	var sharedCount atomic.Int32

	const callers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			val, err, shared := sf.Do("blocks:rebuild", func() (any, error) {
				runs.Add(1)
				time.Sleep(15 * time.Millisecond)
				return 4, nil
			})
			if err != nil {
				t.Errorf("Do: %v", err)
			}
			if val != 4 {
				t.Errorf("val = %v, want 4", val)
			}
			if shared {
				sharedCount.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := runs.Load(); got != 1 {
		t.Fatalf("fn ran %d times, want 1", got)
	}
	if got := sharedCount.Load(); got != callers-1 {
		t.Fatalf("shared reported for %d callers, want %d", got, callers-1)
	}
}

func TestSingleFlightWaitersSeeWinnerError(t *testing.T) {
	t.Parallel()

	var sf SingleFlight
	boom := errors.New("feed offline")
	ready := make(chan struct{})

	go func() {
		_, _, _ = sf.Do("prices:ensure:1", func() (any, error) {
			close(ready)
			time.Sleep(15 * time.Millisecond)
			return nil, boom
		})
	}()

	<-ready
	_, err, shared := sf.Do("prices:ensure:1", func() (any, error) {
		t.Error("waiter must not run its own fn")
		return nil, nil
	})
	if !shared {
		t.Fatal("expected a shared result")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the winner's error", err)
	}
}

func TestSingleFlightSequentialCallsRunAgain(t *testing.T) {
	t.Parallel()

	var sf SingleFlight
	var runs int
	for i := 0; i < 3; i++ {
		_, _, shared := sf.Do("k", func() (any, error) {
			runs++
			return nil, nil
		})
		if shared {
			t.Fatalf("call %d unexpectedly shared", i)
		}
	}
	if runs != 3 {
		t.Fatalf("fn ran %d times, want 3", runs)
	}
}
