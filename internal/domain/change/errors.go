package change

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActions indicates a proposal with an empty action list.
	ErrNoActions = errors.New("change: a proposal needs at least one action")
	// ErrUnknownChangeSet indicates a commit or reject referenced a
	// change set this process never proposed.
	ErrUnknownChangeSet = errors.New("change: unknown change set")
)

// LifecycleError reports an event fired against a change set that has
// already been consumed, for example committing a rejected proposal.
type LifecycleError struct {
	Status string
	Event  string
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("change: cannot %s a %s change set", e.Event, e.Status)
}
