package sdk

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRelayPath indicates a relay path outside the /api/v1/ namespace.
	ErrRelayPath = errors.New("sdk: relay path must start with /api/v1/")
	// ErrRelayQuery indicates a relay path carrying its own query string.
	ErrRelayQuery = errors.New("sdk: relay path must not contain a query string")
	// ErrRelayAbsoluteURL indicates a relay path containing a URL scheme.
	ErrRelayAbsoluteURL = errors.New("sdk: relay path must not be an absolute URL")
	// ErrMissingChangeSetID indicates a commit or reject without a change set id.
	ErrMissingChangeSetID = errors.New("sdk: change_set_id is required")
	// ErrMissingReason indicates an undo request without a reason.
	ErrMissingReason = errors.New("sdk: undo reason is required")
)

// APIError is a terminal failure from the record store. It carries the
// original status and body so callers can tell a permission problem from a
// data problem from an exhausted transient outage.
type APIError struct {
	StatusCode int
	Body       string
	Method     string
	Path       string
	Attempts   int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sdk: %s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a store 404.
func IsNotFound(err error) bool {
	return isStatus(err, http.StatusNotFound)
}

// IsConflict reports whether err is a store 409 that survived its single retry.
func IsConflict(err error) bool {
	return isStatus(err, http.StatusConflict)
}

// IsClientError reports whether err is a non-retryable 4xx from the store.
func IsClientError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}

func isStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
