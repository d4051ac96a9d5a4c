package plan

import (
	"fmt"
	"sort"
)

// CyclicDependencyError is raised when a prerequisite mapping cannot be
// layered into cohorts (Plan) or walked to completion (Ancestors) because it
// contains a cycle. Exactly one of (Pending) or (From, To) is populated,
// depending on which operation detected the cycle.
type CyclicDependencyError struct {
	// Pending holds the builders that never became ready, set by Plan.
	Pending []string

	// From, To name the edge that closed the cycle, set by Ancestors.
	From, To string
}

func (e *CyclicDependencyError) Error() string {
	if e.From != "" || e.To != "" {
		return fmt.Sprintf("plan: cyclic dependency via edge %s -> %s", e.From, e.To)
	}
	pending := append([]string(nil), e.Pending...)
	sort.Strings(pending)
	return fmt.Sprintf("plan: cyclic dependency, builders never became ready: %v", pending)
}

// UnknownBuilderError is raised when Ancestors is asked about a builder that
// is not a key of the prerequisite mapping.
type UnknownBuilderError struct {
	Builder string
}

func (e *UnknownBuilderError) Error() string {
	return fmt.Sprintf("plan: unknown builder %q", e.Builder)
}
