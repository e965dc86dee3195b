package flow

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Step status events.
const (
	EventBegin  = "begin"
	EventFinish = "finish"
	EventRemove = "remove"
)

type stepContext struct {
	StepID string
}

// StepStateMachine enforces the legal step status transitions:
// waiting -> execute -> done, plus removed as a terminal state reachable
// from anywhere. The graph model itself is read-only; this machine backs
// the governed mutation path, which is the sole writer.
type StepStateMachine struct {
	interpreter *statekit.Interpreter[stepContext]
}

// NewStepStateMachine builds a machine positioned at the step's current
// normalized status.
func NewStepStateMachine(initial Status, stepID string) (*StepStateMachine, error) {
	builder := statekit.NewMachine[stepContext]("step-status").
		WithInitial(statekit.StateID(initial)).
		WithContext(stepContext{StepID: stepID})

	builder.State(statekit.StateID(StatusWaiting)).
		On(EventBegin).Target(statekit.StateID(StatusExecute)).
		On(EventRemove).Target(statekit.StateID(StatusRemoved)).
		Done()

	builder.State(statekit.StateID(StatusExecute)).
		On(EventFinish).Target(statekit.StateID(StatusDone)).
		On(EventRemove).Target(statekit.StateID(StatusRemoved)).
		Done()

	builder.State(statekit.StateID(StatusDone)).
		On(EventRemove).Target(statekit.StateID(StatusRemoved)).
		Done()

	builder.State(statekit.StateID(StatusRemoved)).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build step state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return &StepStateMachine{interpreter: interpreter}, nil
}

// Fire attempts a transition event. The machine stays put on an illegal
// event, which is reported as an error.
func (m *StepStateMachine) Fire(event string) error {
	before := m.Current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	after := m.Current()
	if before == after {
		return fmt.Errorf("flow: event %q is not allowed in status %q", event, before)
	}
	return nil
}

// Current returns the machine's current status.
func (m *StepStateMachine) Current() Status {
	return Status(m.interpreter.State().Value)
}

// ValidateTransition checks a from -> to status change against the
// machine. A no-op change is allowed.
func ValidateTransition(from, to Status, stepID string) error {
	if from == to {
		return nil
	}
	var event string
	switch to {
	case StatusExecute:
		event = EventBegin
	case StatusDone:
		event = EventFinish
	case StatusRemoved:
		event = EventRemove
	default:
		return &TransitionError{From: from, To: to}
	}
	m, err := NewStepStateMachine(from, stepID)
	if err != nil {
		return err
	}
	if err := m.Fire(event); err != nil {
		return &TransitionError{From: from, To: to}
	}
	return nil
}
