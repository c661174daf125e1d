package resilience

import "sync"

// SingleFlight collapses concurrent calls for the same key into one
// execution. The zero value is ready to use.
type SingleFlight struct {
	mu       sync.Mutex
	inflight map[string]*flight
}

type flight struct {
	done chan struct{}
	val  any
	err  error
}

// Do runs fn once per key at a time. Callers arriving while a flight is in
// progress block until it lands and take its result; shared reports whether
// the caller received another caller's result. A panicking fn still
// releases its waiters.
func (f *SingleFlight) Do(key string, fn func() (any, error)) (val any, err error, shared bool) {
	f.mu.Lock()
	if f.inflight == nil {
		f.inflight = make(map[string]*flight)
	}
	if fl, ok := f.inflight[key]; ok {
		f.mu.Unlock()
		<-fl.done
		return fl.val, fl.err, true
	}

	fl := &flight{done: make(chan struct{})}
	f.inflight[key] = fl
	f.mu.Unlock()

	func() {
		defer func() {
			f.mu.Lock()
			delete(f.inflight, key)
			f.mu.Unlock()
			close(fl.done)
		}()
		fl.val, fl.err = fn()
	}()

	return fl.val, fl.err, false
}
