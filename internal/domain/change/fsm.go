package change

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Change-set lifecycle events.
const (
	EventApprove = "approve"
	EventReject  = "reject"
	EventUndo    = "undo"
)

type lifecycleContext struct {
	ChangeSetID string
}

// Lifecycle tracks one proposal through the governed protocol. A
// proposal is consumed exactly once: either approved into a commit or
// rejected, and a commit may later be reverted. Every other event is
// illegal and leaves the machine in place.
type Lifecycle struct {
	changeSetID string
	interpreter *statekit.Interpreter[lifecycleContext]
}

// NewLifecycle builds a lifecycle machine positioned at the given
// status, usually StatusProposed for a fresh dry-run result.
func NewLifecycle(initial, changeSetID string) (*Lifecycle, error) {
	builder := statekit.NewMachine[lifecycleContext]("change-set").
		WithInitial(statekit.StateID(initial)).
		WithContext(lifecycleContext{ChangeSetID: changeSetID})

	builder.State(statekit.StateID(StatusProposed)).
		On(EventApprove).Target(statekit.StateID(StatusCommitted)).
		On(EventReject).Target(statekit.StateID(StatusRejected)).
		Done()

	builder.State(statekit.StateID(StatusCommitted)).
		On(EventUndo).Target(statekit.StateID(StatusReverted)).
		Done()

	builder.State(statekit.StateID(StatusRejected)).
		Done()

	builder.State(statekit.StateID(StatusReverted)).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build change-set lifecycle: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return &Lifecycle{changeSetID: changeSetID, interpreter: interpreter}, nil
}

// Fire attempts a lifecycle event. An event that does not move the
// machine is illegal for the current status.
func (l *Lifecycle) Fire(event string) error {
	before := l.Current()
	l.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	after := l.Current()
	if before == after {
		return &LifecycleError{Status: before, Event: event}
	}
	return nil
}

// Can checks whether an event is legal for the current status without
// consuming it. Callers use this to refuse an operation up front and
// fire the real event only once the store has accepted it.
func (l *Lifecycle) Can(event string) error {
	scratch, err := NewLifecycle(l.Current(), l.changeSetID)
	if err != nil {
		return err
	}
	return scratch.Fire(event)
}

// Current returns the lifecycle's current status.
func (l *Lifecycle) Current() string {
	return string(l.interpreter.State().Value)
}
