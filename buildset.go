package buildset

import (
	"log"
	"sort"
	"sync"

	"github.com/distr1/buildset/internal/chain"
	"github.com/distr1/buildset/internal/plan"
	"github.com/distr1/buildset/internal/trace"
)

// BuildSet coordinates one SourceStamp's fan-out across many builders: it
// creates one BuildRequest per builder, drives their submission either
// simultaneously or in dependency-ordered cohorts, and aggregates their
// completions into a rolling set-level Result with hope-lost/all-finished
// notification milestones (§3).
//
// This generalizes distri's internal/batch.scheduler (a graph-driven worker
// pool building one package repository) into a reusable dispatch core: the
// graph algorithm moves to internal/plan, the cohort linearization to
// internal/chain, and what remains here is pure orchestration — creating
// requests, submitting them in the right order, and aggregating results.
type BuildSet struct {
	Source     SourceStamp
	Reason     string
	properties Properties

	status StatusSink
	log    *log.Logger

	// StopOnFirstFailure, when true, deviates from §9's matched-source
	// early-failure policy: once still-hopeful flips false, cohorts that
	// have not yet been submitted are finished with SKIPPED instead of
	// being submitted to their Builder. This intentionally breaks the §3
	// invariant "every created request is submitted exactly once" for
	// those requests, which is why it defaults to false and must be opted
	// into explicitly (SPEC_FULL.md open question #3).
	StopOnFirstFailure bool

	mu            sync.Mutex
	started       bool
	requests      map[string]*BuildRequest
	outstanding   map[string]bool
	stillHopeful  bool
	worstSeverity int
	result        Result
	ancestorsOf   map[string]map[string]bool // ordered mode only; for DoomedDescendants
}

// NewBuildSet creates a new, unstarted BuildSet. properties is snapshotted
// immediately, per §3 ("Copied by value into each request at creation;
// subsequent mutations do not propagate").
func NewBuildSet(source SourceStamp, reason string, properties Properties, status StatusSink, logger *log.Logger) *BuildSet {
	if logger == nil {
		logger = log.Default()
	}
	return &BuildSet{
		Source:     source,
		Reason:     reason,
		properties: properties.Snapshot(),
		status:     status,
		log:        logger,
		result:     SUCCESS,
	}
}

// GetProperties returns the set's properties snapshot. Per §3 it is a
// read-only view: callers get their own copy and cannot affect requests
// already created.
func (s *BuildSet) GetProperties() Properties {
	return s.properties.Snapshot()
}

// WaitUntilFinished returns a future fulfilled by the all-finished
// notification.
func (s *BuildSet) WaitUntilFinished() <-chan Result { return s.status.WaitUntilFinished() }

// WaitUntilSuccess returns a future fulfilled by the hope-lost/all-success
// milestone, whichever observes first.
func (s *BuildSet) WaitUntilSuccess() <-chan Result { return s.status.WaitUntilSuccess() }

func (s *BuildSet) markStarted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		panic("buildset: Start called more than once on the same BuildSet")
	}
	s.started = true
	return nil
}

// StartSimultaneous starts the set in simultaneous mode (§4.3): one request
// per builder, all submitted with no ordering constraints between them.
func (s *BuildSet) StartSimultaneous(builders map[string]Builder) error {
	if len(builders) == 0 {
		return &EmptyBuilderSetError{}
	}
	if err := s.markStarted(); err != nil {
		return err
	}

	order := make([]string, 0, len(builders))
	for name := range builders {
		order = append(order, name)
	}
	sort.Strings(order)

	requests := make(map[string]*BuildRequest, len(order))
	statuses := make([]*BuildRequest, 0, len(order))
	for _, name := range order {
		req := NewBuildRequest(name, s.Reason, s.Source, s.properties)
		requests[name] = req
		statuses = append(statuses, req)
	}

	s.mu.Lock()
	s.requests = requests
	s.outstanding = make(map[string]bool, len(requests))
	for name := range requests {
		s.outstanding[name] = true
	}
	s.stillHopeful = true
	s.mu.Unlock()

	s.status.SetRequestStatuses(statuses)

	for _, name := range order {
		req := requests[name]
		s.attach(req, nil)
	}
	for _, name := range order {
		req := requests[name]
		req.markSubmitted()
		s.status.SetRequestStatus(name, "running")
		builders[name].SubmitBuildRequest(req)
	}
	return nil
}

// StartOrdered starts the set in ordered mode (§4.3): dep is planned into
// cohorts (internal/plan), every request is created up front, and the
// resulting chain (internal/chain) is driven cohort by cohort, never more
// than one cohort in flight.
func (s *BuildSet) StartOrdered(builders map[string]Builder, dep map[string][]string) error {
	if len(builders) == 0 {
		return &EmptyBuilderSetError{}
	}

	cohorts, err := plan.Plan(dep)
	if err != nil {
		return wrapPlanError(err)
	}

	if err := s.markStarted(); err != nil {
		return err
	}

	cohortNames := make([][]string, len(cohorts))
	var flatOrder []string
	requests := make(map[string]*BuildRequest)
	for i, c := range cohorts {
		names := make([]string, len(c))
		copy(names, c)
		cohortNames[i] = names
		for _, name := range names {
			requests[name] = NewBuildRequest(name, s.Reason, s.Source, s.properties)
			flatOrder = append(flatOrder, name)
		}
	}

	chainReqs := make(map[string]chain.Request, len(requests))
	for name, r := range requests {
		chainReqs[name] = r
	}
	built, err := chain.Build(cohortNames, chainReqs)
	if err != nil {
		return err
	}

	s.log.Printf("buildset: starting ordered run of %d builders across %d cohorts (properties: %v)",
		len(requests), len(cohorts), s.properties.Names())

	s.mu.Lock()
	s.requests = requests
	s.outstanding = make(map[string]bool, len(requests))
	for name := range requests {
		s.outstanding[name] = true
	}
	s.stillHopeful = true
	s.ancestorsOf = computeAncestorsOf(dep)
	s.mu.Unlock()

	statuses := make([]*BuildRequest, 0, len(flatOrder))
	for _, name := range flatOrder {
		statuses = append(statuses, requests[name])
	}
	s.status.SetRequestStatuses(statuses)

	s.driveNode(built.Head, builders)
	return nil
}

// cohortGate tracks one cohort's outstanding member count so the aggregator
// can tell, from inside its own serialized turn, exactly when a cohort has
// drained and whether the chain should advance to next or cascade a skip
// through it. It is created once per driveNodeLocked call and shared by
// every request attached for that cohort; there is no separate "wait for
// this cohort, then decide" continuation anywhere else, which is what makes
// the stop decision race-free (see onComplete).
type cohortGate struct {
	remaining int
	next      *chain.Node
	builders  map[string]Builder
}

// driveNode submits n's cohort (or, once StopOnFirstFailure has tripped,
// finishes it with SKIPPED instead) and returns immediately; it never waits
// on the cohort to complete. The chain advances to n.Next from inside
// onComplete, the moment the last member of n's cohort reaches a terminal
// result, so the stop-or-continue decision for n.Next is always made by the
// same serialized turn that last updated still-hopeful — never by an
// independent goroutine racing that flag. driveNode itself is only ever
// called from Start, for the head node; every later cohort is driven by
// onComplete via driveNodeLocked.
func (s *BuildSet) driveNode(n *chain.Node, builders map[string]Builder) {
	if n == nil {
		return // terminal sentinel
	}
	s.mu.Lock()
	s.driveNodeLocked(n, builders)
	s.mu.Unlock()
}

// driveNodeLocked is driveNode's body, callable either with s.mu freshly
// acquired (from driveNode) or from within onComplete's own critical
// section (the recursive cascade case), since it never locks or unlocks
// s.mu itself.
func (s *BuildSet) driveNodeLocked(n *chain.Node, builders map[string]Builder) {
	if n == nil {
		return
	}

	gate := &cohortGate{remaining: len(n.Requests), next: n.Next, builders: builders}

	if s.StopOnFirstFailure && !s.stillHopeful {
		s.log.Printf("buildset: StopOnFirstFailure tripped; skipping cohort %v", n.Cohort)
		for _, r := range n.Requests {
			req := r.(*BuildRequest)
			s.attach(req, gate)
			req.Finish(SKIPPED)
		}
		return
	}

	s.log.Printf("buildset: submitting cohort %v (parallel: %v)", n.Cohort, plan.Cohort(n.Cohort).Parallel())
	for _, r := range n.Requests {
		s.attach(r.(*BuildRequest), gate)
	}
	for _, r := range n.Requests {
		req := r.(*BuildRequest)
		req.markSubmitted()
		s.status.SetRequestStatus(req.Builder, "running")
		builders[req.Builder].SubmitBuildRequest(req)
	}
}

// attach arms the aggregator callback for req: it blocks on req's
// completion signal in its own goroutine and then invokes onComplete. This
// is the "register a continuation, never block a thread" suspension point
// §5 calls for. It also opens req's trace span, closed once onComplete
// observes the request's terminal result, the way batch.scheduler.run
// brackets each build with a begin/end trace.Event. gate is the ordered-mode
// cohort req belongs to, or nil in simultaneous mode where there is no next
// cohort to advance.
func (s *BuildSet) attach(req *BuildRequest, gate *cohortGate) {
	ev := trace.Event(req.Builder, 0)
	go func() {
		<-req.Done()
		ev.Done()
		s.onComplete(req, gate)
	}()
}

// onComplete is the aggregator (§4.3): it removes req from outstanding,
// updates still-hopeful and the rolling result, fires the hope-lost and
// all-finished notifications at the moments §3/§8 pin down, and — in
// ordered mode — advances the chain once gate's cohort drains. The entire
// function runs under s.mu, including the watcher notifications and the
// next-cohort submission, not just the field mutations: onComplete is
// called concurrently from one goroutine per completing request, and §5
// requires every one of its invocations to serialize into a single logical
// execution context. Holding s.mu across the notification dispatch is what
// guarantees hope-lost is observed strictly before all-finished (§8) even
// when the failing request and the draining request complete in different
// goroutines at nearly the same instant; holding it across the cascade into
// driveNodeLocked is what guarantees the StopOnFirstFailure decision always
// sees the still-hopeful value this very completion just set, rather than a
// stale read from a goroutine racing this one. Watchers and Builders are
// external collaborators that never call back into the BuildSet, so this
// does not risk deadlock.
func (s *BuildSet) onComplete(req *BuildRequest, gate *cohortGate) {
	result := req.Result()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.SetRequestStatus(req.Builder, result.String())
	delete(s.outstanding, req.Builder)

	hopeLostNow := false
	if result == FAILURE && s.stillHopeful {
		s.stillHopeful = false
		hopeLostNow = true
	} else if s.stillHopeful {
		if sev := aggregateSeverity(result); sev > s.worstSeverity {
			s.worstSeverity = sev
		}
	}

	outstandingEmpty := len(s.outstanding) == 0
	fireSuccessAtDrain := outstandingEmpty && s.stillHopeful

	var finalResult Result
	if outstandingEmpty {
		if fireSuccessAtDrain {
			finalResult = severityResult(s.worstSeverity)
		} else {
			finalResult = FAILURE
		}
		s.result = finalResult
	}

	if hopeLostNow {
		s.status.SetResults(FAILURE)
		s.status.GiveUpHope()
		s.status.NotifySuccessWatchers(FAILURE)
	}

	if outstandingEmpty {
		if fireSuccessAtDrain {
			s.status.SetResults(finalResult)
			s.status.NotifySuccessWatchers(finalResult)
		}
		s.status.NotifyFinishedWatchers(finalResult)
	}

	if gate != nil {
		gate.remaining--
		if gate.remaining == 0 {
			s.driveNodeLocked(gate.next, gate.builders)
		}
	}
}

// DoomedDescendants returns, in ordered mode, every builder whose
// prerequisite closure transitively includes failed. Per §9 this package
// never cancels those builders — the chain keeps advancing and they still
// run — but a host that wants to act on "these can no longer meaningfully
// succeed" (as distri's batch.scheduler.markFailed does when a package
// build fails) gets the closure computed for it via internal/plan.Ancestors.
func (s *BuildSet) DoomedDescendants(failed string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doomed []string
	for name, ancestors := range s.ancestorsOf {
		if ancestors[failed] {
			doomed = append(doomed, name)
		}
	}
	sort.Strings(doomed)
	return doomed
}

func computeAncestorsOf(dep map[string][]string) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(dep))
	for name := range dep {
		ancestors, err := plan.Ancestors(name, dep, false)
		if err != nil {
			// dep is already known-acyclic (Plan succeeded before this is
			// called) and name is always a key, so Ancestors cannot fail
			// here; skip defensively rather than propagate an error this
			// helper's signature has no room for.
			continue
		}
		set := make(map[string]bool, len(ancestors))
		for _, a := range ancestors {
			set[a] = true
		}
		out[name] = set
	}
	return out
}
