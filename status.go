package buildset

import "sync"

// Watcher receives the three notification hooks a BuildSet's Status fires:
// hope lost (first FAILURE), success-or-known-failure (the hope-lost/
// all-success milestone), and all-finished. Status reporting sinks are
// external collaborators per §1/§4.4; Watcher is the hook contract they
// implement. See package watch for concrete adapters (GitHub commit status,
// terminal redraw).
type Watcher interface {
	HopeLost()
	Success(result Result)
	Finished(result Result)
}

// RequestWatcher is an optional extension of Watcher for a watcher that
// also wants a live per-request status line, not just the three set-level
// milestones: "running" the moment a request is submitted, then its
// terminal result string once it finishes. Status detects this with a type
// assertion rather than folding it into Watcher itself, so collaborators
// that only care about set-level milestones (GitHub commit status, the
// in-memory test Recorder) never need a no-op implementation of it.
type RequestWatcher interface {
	RequestStatus(builder, status string)
}

// StatusSink is the collaborator contract §4.4 requires of the status
// object the orchestrator drives. The orchestrator is agnostic to how a
// StatusSink delivers these calls onward (direct calls, channels, an event
// bus); it only requires that WaitUntilSuccess/WaitUntilFinished each
// deliver exactly once.
type StatusSink interface {
	SetRequestStatuses(statuses []*BuildRequest)
	SetRequestStatus(builder, status string)
	SetResults(result Result)
	GiveUpHope()
	NotifySuccessWatchers(result Result)
	NotifyFinishedWatchers(result Result)
	WaitUntilSuccess() <-chan Result
	WaitUntilFinished() <-chan Result
}

// Status is the default in-process StatusSink: it records the request
// statuses and rolling result it is given, fans the three notifications out
// to any registered Watcher, and exposes WaitUntilSuccess/WaitUntilFinished
// as futures resolved by NotifySuccessWatchers/NotifyFinishedWatchers
// respectively.
type Status struct {
	mu       sync.Mutex
	requests []*BuildRequest
	result   Result
	watchers []Watcher

	success  *future
	finished *future
}

// NewStatus returns a ready, empty Status with no watchers registered.
func NewStatus() *Status {
	return &Status{
		success:  newFuture(),
		finished: newFuture(),
	}
}

// AddWatcher registers w to receive this Status's notification hooks. It
// must be called before Start, like distri's autobuilder registering a
// GitHub status updater before kicking off a build.
func (s *Status) AddWatcher(w Watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, w)
}

func (s *Status) snapshotWatchers() []Watcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Watcher, len(s.watchers))
	copy(out, s.watchers)
	return out
}

// SetRequestStatuses records the set's request handles, in submission
// order, for watchers that want to inspect individual request state.
func (s *Status) SetRequestStatuses(statuses []*BuildRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append([]*BuildRequest(nil), statuses...)
}

// Requests returns the request handles last recorded by SetRequestStatuses,
// in submission order. Callers use this to render a status page without the
// orchestrator needing to know anything about how it is displayed.
func (s *Status) Requests() []*BuildRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*BuildRequest(nil), s.requests...)
}

// SetRequestStatus reports builder's current per-request status string
// (e.g. "running", or a terminal Result's String()) to every watcher that
// implements RequestWatcher. Watchers that only implement Watcher are
// silently skipped.
func (s *Status) SetRequestStatus(builder, status string) {
	for _, w := range s.snapshotWatchers() {
		if rw, ok := w.(RequestWatcher); ok {
			rw.RequestStatus(builder, status)
		}
	}
}

// SetResults records the rolling set-level result.
func (s *Status) SetResults(result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
}

// GiveUpHope fires the hope-lost notification: overall success is no
// longer possible. It is invoked at most once per BuildSet.
func (s *Status) GiveUpHope() {
	for _, w := range s.snapshotWatchers() {
		w.HopeLost()
	}
}

// NotifySuccessWatchers fires the combined hope-lost/all-success milestone:
// either the now-known FAILURE (called from the aggregator's first-failure
// branch) or the final non-FAILURE result (called once outstanding drains
// with still-hopeful still true). It resolves WaitUntilSuccess.
func (s *Status) NotifySuccessWatchers(result Result) {
	s.success.resolve(result)
	for _, w := range s.snapshotWatchers() {
		w.Success(result)
	}
}

// NotifyFinishedWatchers fires the all-finished milestone exactly once per
// BuildSet, after NotifySuccessWatchers if both fire. It resolves
// WaitUntilFinished.
func (s *Status) NotifyFinishedWatchers(result Result) {
	s.finished.resolve(result)
	for _, w := range s.snapshotWatchers() {
		w.Finished(result)
	}
}

// WaitUntilSuccess returns a future fulfilled by the hope-lost/all-success
// milestone, whichever observes first.
func (s *Status) WaitUntilSuccess() <-chan Result { return s.success.wait() }

// WaitUntilFinished returns a future fulfilled by the all-finished
// milestone.
func (s *Status) WaitUntilFinished() <-chan Result { return s.finished.wait() }
