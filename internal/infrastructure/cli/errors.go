package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/openclaw/routekit/internal/application"
	"github.com/openclaw/routekit/internal/domain/change"
	"github.com/openclaw/routekit/internal/domain/flow"
	"github.com/openclaw/routekit/pkg/sdk"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var validationErr *change.ValidationError
	if errors.As(err, &validationErr) {
		return NewCLIError(
			validationErr.Error(),
			"Check the required fields for this action and retry",
			err,
		)
	}

	var transitionErr *flow.TransitionError
	if errors.As(err, &transitionErr) {
		return NewCLIError(
			transitionErr.Error(),
			fmt.Sprintf("A step goes waiting -> execute -> done; it cannot jump from '%s' to '%s'", transitionErr.From, transitionErr.To),
			err,
		)
	}

	var lifecycleErr *change.LifecycleError
	if errors.As(err, &lifecycleErr) {
		return NewCLIError(
			lifecycleErr.Error(),
			"A change set is consumed exactly once; propose a new one",
			err,
		)
	}

	var apiErr *sdk.APIError
	if errors.As(err, &apiErr) {
		hint := "Check the record store status and retry"
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			hint = "Check ROUTEKIT_API_KEY and the actor's permissions"
		case http.StatusNotFound:
			hint = "The referenced record does not exist; list it first"
		case http.StatusConflict:
			hint = "A concurrent change won; refetch and retry"
		}
		return NewCLIError(
			fmt.Sprintf("store returned %d for %s %s", apiErr.StatusCode, apiErr.Method, apiErr.Path),
			hint,
			err,
		)
	}

	switch {
	case errors.Is(err, application.ErrTaskNotFound):
		return NewCLIError("task not found", "Run 'routekit task list' to browse tasks", err)
	case errors.Is(err, flow.ErrGoalChain):
		return NewCLIError("a goal step cannot directly follow another goal", "Insert an idea step between the two goals", err)
	case errors.Is(err, flow.ErrStepNotFound):
		return NewCLIError("step not found in this route", "Run 'routekit task snapshot' to list steps", err)
	case errors.Is(err, flow.ErrRemoveStart):
		return NewCLIError("the start step cannot be removed", "", err)
	case errors.Is(err, flow.ErrStepHasSuccessor):
		return NewCLIError("step still has successors", "Remove or re-chain its successors first; deletion never cascades", err)
	case errors.Is(err, change.ErrNoActions):
		return NewCLIError("nothing to propose", "Supply at least one action", err)
	case errors.Is(err, sdk.ErrMissingReason):
		return NewCLIError("undo requires a reason", "Pass --reason; it is persisted for audit", err)
	}

	return err
}
