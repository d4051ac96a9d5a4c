package buildset

import (
	"fmt"

	"github.com/distr1/buildset/internal/plan"
)

// EmptyBuilderSetError is raised by Start when called with zero builders.
// It is fatal at entry: no request is created and no side effect occurs.
type EmptyBuilderSetError struct{}

func (e *EmptyBuilderSetError) Error() string {
	return "buildset: cannot start a set with zero builders"
}

// CyclicDependencyError is raised when an ordered-mode prerequisite mapping
// contains a cycle. It wraps the planner's own error so callers can inspect
// which builders never became ready.
type CyclicDependencyError struct {
	Err error
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("buildset: %v", e.Err)
}

func (e *CyclicDependencyError) Unwrap() error { return e.Err }

// wrapPlanError wraps a plan.CyclicDependencyError in our own exported
// error type, leaving every other error (there should be none) untouched.
func wrapPlanError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*plan.CyclicDependencyError); ok {
		return &CyclicDependencyError{Err: err}
	}
	return err
}
