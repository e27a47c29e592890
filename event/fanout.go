package event

import (
	"sync"
)

// Fanout forwards every event to all attached sinks. Attach hands back a
// Registration whose Close detaches the sink again; closing is idempotent,
// so deferred teardown can never double-remove or leave a dangling sink.
// Attach/Close are safe to call concurrently with Dispatch.
type Fanout struct {
	mu    sync.RWMutex
	next  uint64
	sinks map[uint64]Sink
}

// NewFanout returns an empty fanout.
func NewFanout() *Fanout {
	return &Fanout{sinks: make(map[uint64]Sink)}
}

// Registration is a handle for one attached sink.
type Registration struct {
	f    *Fanout
	id   uint64
	once sync.Once
}

// Close detaches the sink. Safe to call more than once.
func (r *Registration) Close() {
	r.once.Do(func() {
		r.f.mu.Lock()
		delete(r.f.sinks, r.id)
		r.f.mu.Unlock()
	})
}

// Attach adds a sink and returns its registration.
func (f *Fanout) Attach(s Sink) *Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.next
	f.next++
	f.sinks[id] = s
	return &Registration{f: f, id: id}
}

// Dispatch implements Sink.
func (f *Fanout) Dispatch(ev Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.sinks {
		s.Dispatch(ev)
	}
}

// Len returns the number of attached sinks.
func (f *Fanout) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sinks)
}
