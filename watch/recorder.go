package watch

import (
	"sync"

	"github.com/distr1/buildset"
)

// Recorder is an in-memory buildset.Watcher that appends every notification
// it receives, for tests that want to assert on the exact call sequence a
// BuildSet produces rather than just its final result.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Event is one recorded notification.
type Event struct {
	Kind   string // "hope_lost", "success", or "finished"
	Result buildset.Result
}

// HopeLost implements buildset.Watcher.
func (r *Recorder) HopeLost() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: "hope_lost"})
}

// Success implements buildset.Watcher.
func (r *Recorder) Success(result buildset.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: "success", Result: result})
}

// Finished implements buildset.Watcher.
func (r *Recorder) Finished(result buildset.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: "finished", Result: result})
}

// Events returns a copy of every notification recorded so far, in the order
// received.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
