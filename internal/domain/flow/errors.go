package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPredecessor indicates a relation was requested without a
	// valid predecessor kind.
	ErrNoPredecessor = errors.New("flow: a valid predecessor step is required")
	// ErrGoalChain indicates an attempt to chain two goal steps
	// directly. Two goals must never be connected without an
	// intermediate step.
	ErrGoalChain = errors.New("flow: a goal step cannot directly follow another goal")
	// ErrStepNotFound indicates the step id is not in the graph.
	ErrStepNotFound = errors.New("flow: step not found in graph")
	// ErrRemoveStart indicates an attempt to delete the start step.
	ErrRemoveStart = errors.New("flow: the start step cannot be removed")
	// ErrStepHasSuccessor indicates an attempt to delete a non-leaf
	// step. Deletion never cascades.
	ErrStepHasSuccessor = errors.New("flow: step has successors and cannot be removed")
)

// TransitionError reports an illegal step status transition, raised by
// the governed mutation path before any network call.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("flow: illegal status transition %s -> %s", e.From, e.To)
}
