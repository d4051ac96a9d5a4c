package buildset

import "sync"

// Builder is the external collaborator that actually schedules build
// slaves. The orchestrator only needs its name and its ability to accept a
// submitted request; everything else (queueing, slave selection, retries)
// is the Builder pool's business.
type Builder interface {
	Name() string
	SubmitBuildRequest(req *BuildRequest)
}

// BuildRequest is a per-builder unit of work. It is created by the
// orchestrator before any submission, submitted at most once, and reaches a
// terminal Result exactly once. BuildRequest is also its own status handle
// (§3): a StatusSink is given the *BuildRequest values themselves via
// SetRequestStatuses.
type BuildRequest struct {
	Reason      string
	Source      SourceStamp
	Builder     string // builder name this request targets
	Properties  Properties

	mu        sync.Mutex
	submitted bool
	finished  bool
	result    Result
	done      chan struct{}
}

// NewBuildRequest creates a request targeting builder, carrying reason,
// source, and an independent snapshot of properties. It is not yet
// submitted.
func NewBuildRequest(builder, reason string, source SourceStamp, properties Properties) *BuildRequest {
	return &BuildRequest{
		Reason:     reason,
		Source:     source,
		Builder:    builder,
		Properties: properties.Snapshot(),
		done:       make(chan struct{}),
	}
}

// BuilderName implements chain.Request.
func (r *BuildRequest) BuilderName() string { return r.Builder }

// Done implements chain.Request: it closes exactly once, when Finish is
// first called.
func (r *BuildRequest) Done() <-chan struct{} { return r.done }

// markSubmitted records that the request has been handed to its Builder.
// It panics on a double submission: submission exactly once is an
// invariant the orchestrator itself must uphold (§3), not a condition a
// well-behaved caller can trigger in normal operation.
func (r *BuildRequest) markSubmitted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.submitted {
		panic("buildset: request for " + r.Builder + " submitted more than once")
	}
	r.submitted = true
}

// Finish records req's terminal result and closes its completion signal.
// Finish is idempotent: only the first call has any effect, matching the
// spec's "completion signal fires exactly once" invariant even if a Builder
// pool implementation calls back twice.
func (r *BuildRequest) Finish(result Result) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	r.result = result
	r.mu.Unlock()
	close(r.done)
}

// Result returns the request's terminal result. It is only meaningful after
// Done() has closed.
func (r *BuildRequest) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}
