package sdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastWritePolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries429: 3,
		MaxRetries500: 2,
		RetryConflict: true,
		BaseDelay:     time.Millisecond,
		ConflictDelay: time.Millisecond,
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(srv.URL, "test-key",
		WithWritePolicy(fastWritePolicy()),
		WithReadPolicy(RetryPolicy{BaseDelay: time.Millisecond, ConflictDelay: time.Millisecond}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, srv
}

func TestRetryOn429ThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"change_set_id":"cs-1","status":"proposed"}`))
	}))

	cs, err := client.ProposeChanges(context.Background(),
		[]Action{{Type: "create_task", Payload: map[string]any{"title": "x", "source": "test"}}},
		Actor{Type: "agent", ID: "t"}, "test")
	if err != nil {
		t.Fatalf("ProposeChanges: %v", err)
	}
	if got := attempts.Load(); got != 4 {
		t.Errorf("attempts = %d, want 4", got)
	}
	if cs.ChangeSetID != "cs-1" {
		t.Errorf("change set id = %q, want cs-1", cs.ChangeSetID)
	}
}

func TestRetryExhaustedOn429(t *testing.T) {
	var attempts atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.ProposeChanges(context.Background(),
		[]Action{{Type: "create_task", Payload: map[string]any{}}},
		Actor{}, "")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := attempts.Load(); got != 4 {
		t.Errorf("attempts = %d, want 4", got)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", apiErr.StatusCode)
	}
}

func TestRetryOn500StopsAtLimit(t *testing.T) {
	var attempts atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.ProposeChanges(context.Background(),
		[]Action{{Type: "create_task", Payload: map[string]any{}}},
		Actor{}, "")
	if err == nil {
		t.Fatal("expected error")
	}
	// Limit for 500 is 2 retries: 3 attempts total.
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestClientErrorIsTerminal(t *testing.T) {
	var attempts atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"title is required"}`))
	}))

	_, err := client.ProposeChanges(context.Background(),
		[]Action{{Type: "create_task", Payload: map[string]any{}}},
		Actor{}, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", apiErr.StatusCode)
	}
	if apiErr.Body == "" {
		t.Error("terminal error should carry the response body")
	}
}

func TestConflictRetriedOnce(t *testing.T) {
	var attempts atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusConflict)
	}))

	_, err := client.CommitChanges(context.Background(), "cs-1", Actor{Type: "user", ID: "u"}, "req-1")
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2 (one conflict retry)", got)
	}
	if !IsConflict(err) {
		t.Errorf("IsConflict = false, want true")
	}
}

func TestConflictRetryIndependentOfBackoffBudget(t *testing.T) {
	// Three 429s use up the rate-limit budget; a 409 on the final slot
	// still gets its own extra attempt.
	var attempts atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch n := attempts.Add(1); {
		case n <= 3:
			w.WriteHeader(http.StatusTooManyRequests)
		case n == 4:
			w.WriteHeader(http.StatusConflict)
		default:
			w.Write([]byte(`{"commit_id":"cm-1","change_set_id":"cs-1","status":"committed"}`))
		}
	}))

	commit, err := client.CommitChanges(context.Background(), "cs-1", Actor{Type: "user", ID: "u"}, "req-1")
	if err != nil {
		t.Fatalf("CommitChanges: %v", err)
	}
	if got := attempts.Load(); got != 5 {
		t.Errorf("attempts = %d, want 5 (conflict retry on top of the 429 budget)", got)
	}
	if commit.CommitID != "cm-1" {
		t.Errorf("commit id = %q, want cm-1", commit.CommitID)
	}
}

func TestConflictAfterExhaustedBudgetSurfacesAPIError(t *testing.T) {
	var attempts atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"change set already committed"}`))
	}))

	_, err := client.CommitChanges(context.Background(), "cs-1", Actor{Type: "user", ID: "u"}, "req-1")
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if got := attempts.Load(); got != 5 {
		t.Errorf("attempts = %d, want 5", got)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", apiErr.StatusCode)
	}
	if apiErr.Body == "" {
		t.Error("terminal conflict should carry the response body")
	}
}

func TestReadsDoNotRetry(t *testing.T) {
	var attempts atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.ListTasks(context.Background(), ListTasksParams{})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (reads default to zero retries)", got)
	}
}

func TestCancellationStopsRetries(t *testing.T) {
	var attempts atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.ProposeChanges(ctx,
		[]Action{{Type: "create_task", Payload: map[string]any{}}},
		Actor{}, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRelayGuards(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	cases := []struct {
		name string
		path string
		want error
	}{
		{"absolute URL", "https://evil.example/api/v1/tasks", ErrRelayAbsoluteURL},
		{"embedded query", "/api/v1/tasks?page=2", ErrRelayQuery},
		{"outside prefix", "/api/v2/tasks", ErrRelayPath},
		{"bare path", "tasks", ErrRelayPath},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.Relay(context.Background(), http.MethodGet, tc.path, nil, nil)
			if !errors.Is(err, tc.want) {
				t.Errorf("Relay(%q) err = %v, want %v", tc.path, err, tc.want)
			}
		})
	}

	if _, err := client.Relay(context.Background(), http.MethodGet, "/api/v1/topics", nil, nil); err != nil {
		t.Errorf("Relay(/api/v1/topics) err = %v, want nil", err)
	}
}

func TestUndoRequiresReason(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))

	_, err := client.UndoLastCommit(context.Background(), Actor{Type: "user", ID: "u"}, "   ", "")
	if !errors.Is(err, ErrMissingReason) {
		t.Fatalf("err = %v, want ErrMissingReason", err)
	}
}

func TestAuthHeaderSet(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", got)
		}
		w.Write([]byte(`{"items":[],"page":1,"page_size":20,"total":0}`))
	}))

	if _, err := client.ListTasks(context.Background(), ListTasksParams{}); err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
}
