package cli

import (
	"errors"
	"net/http"
	"testing"

	"github.com/openclaw/routekit/internal/application"
	"github.com/openclaw/routekit/internal/domain/change"
	"github.com/openclaw/routekit/internal/domain/flow"
	"github.com/openclaw/routekit/pkg/sdk"
)

func TestMapErrorKnownDomainErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"task not found", application.ErrTaskNotFound},
		{"goal chain", flow.ErrGoalChain},
		{"step has successor", flow.ErrStepHasSuccessor},
		{"remove start", flow.ErrRemoveStart},
		{"transition", &flow.TransitionError{From: flow.StatusWaiting, To: flow.StatusDone}},
		{"lifecycle", &change.LifecycleError{Status: change.StatusRejected, Event: change.EventApprove}},
		{"validation", &change.ValidationError{Action: change.ActionCreateTask, Detail: "title is required"}},
		{"missing reason", sdk.ErrMissingReason},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := MapError(tc.err)
			var cliErr *CLIError
			if !errors.As(mapped, &cliErr) {
				t.Fatalf("MapError(%v) = %T, want *CLIError", tc.err, mapped)
			}
			if cliErr.Message == "" {
				t.Error("empty message")
			}
			if !errors.Is(mapped, tc.err) && !isWrapped(mapped, tc.err) {
				t.Error("mapped error does not unwrap to the original")
			}
		})
	}
}

func isWrapped(outer, inner error) bool {
	var cliErr *CLIError
	return errors.As(outer, &cliErr) && cliErr.Err == inner
}

func TestMapErrorAPIErrorHints(t *testing.T) {
	err := &sdk.APIError{StatusCode: http.StatusUnauthorized, Method: "GET", Path: "/api/v1/tasks"}
	mapped := MapError(err)
	var cliErr *CLIError
	if !errors.As(mapped, &cliErr) {
		t.Fatalf("MapError = %T, want *CLIError", mapped)
	}
	if cliErr.Hint == "" {
		t.Error("401 should carry a credentials hint")
	}
}

func TestMapErrorPassesUnknownThrough(t *testing.T) {
	plain := errors.New("plain")
	if got := MapError(plain); got != plain {
		t.Errorf("MapError(plain) = %v, want the same error", got)
	}
	if got := MapError(nil); got != nil {
		t.Errorf("MapError(nil) = %v, want nil", got)
	}
}
