package application

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openclaw/routekit/pkg/sdk"
)

func newTestSDK(t *testing.T, handler http.Handler) *sdk.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := sdk.New(srv.URL, "test-key")
	if err != nil {
		t.Fatalf("sdk.New: %v", err)
	}
	return client
}

func TestNormalizeTitle(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Agent-First SaaS", "agent first saas"},
		{"  Route   Upgrade!! ", "route upgrade"},
		{"ROUTE_upgrade (v2)", "route upgrade v2"},
		{"日本語のタイトル", "日本語のタイトル"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := NormalizeTitle(tc.in); got != tc.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveDirectMatch(t *testing.T) {
	client := newTestSDK(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"id":"t1","title":"Agent-First SaaS","status":"in_progress",
			 "created_at":"2026-08-01T10:00:00Z","updated_at":"2026-08-20T10:00:00Z"}
		],"page":1,"page_size":50,"total":1}`))
	}))
	resolver := NewResolverService(client, nil)

	res, err := resolver.Resolve(context.Background(), "agent-first saas")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.NeedsDisambiguation {
		t.Fatal("NeedsDisambiguation = true, want false")
	}
	if res.Task == nil || res.Task.ID != "t1" {
		t.Fatalf("Task = %v, want t1", res.Task)
	}
}

func TestResolveDisambiguation(t *testing.T) {
	client := newTestSDK(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"id":"t1","title":"Route Upgrade","status":"done",
			 "created_at":"2026-07-01T10:00:00Z","updated_at":"2026-07-10T10:00:00Z"},
			{"id":"t2","title":"route upgrade!","status":"done",
			 "created_at":"2026-08-01T10:00:00Z","updated_at":"2026-08-15T10:00:00Z"}
		],"page":1,"page_size":50,"total":2}`))
	}))
	resolver := NewResolverService(client, nil)

	res, err := resolver.Resolve(context.Background(), "route upgrade")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.NeedsDisambiguation {
		t.Fatal("NeedsDisambiguation = false, want true")
	}
	if res.Task != nil {
		t.Errorf("Task = %v, want nil", res.Task)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(res.Candidates))
	}
	// Most recently updated first.
	if res.Candidates[0].ID != "t2" || res.Candidates[1].ID != "t1" {
		t.Errorf("candidate order = [%s %s], want [t2 t1]",
			res.Candidates[0].ID, res.Candidates[1].ID)
	}
}

func TestResolveCollisionWithSingleOpenTask(t *testing.T) {
	client := newTestSDK(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"id":"t1","title":"Route Upgrade","status":"done",
			 "created_at":"2026-07-01T10:00:00Z","updated_at":"2026-07-10T10:00:00Z"},
			{"id":"t2","title":"route upgrade","status":"todo",
			 "created_at":"2026-08-01T10:00:00Z","updated_at":"2026-08-15T10:00:00Z"}
		],"page":1,"page_size":50,"total":2}`))
	}))
	resolver := NewResolverService(client, nil)

	res, err := resolver.Resolve(context.Background(), "route upgrade")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.NeedsDisambiguation {
		t.Fatal("NeedsDisambiguation = true, want false (one open match)")
	}
	if res.Task.ID != "t2" {
		t.Errorf("Task = %s, want t2 (the open one)", res.Task.ID)
	}
}

func TestResolveNotFound(t *testing.T) {
	client := newTestSDK(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"id":"t1","title":"something else entirely","status":"todo",
			 "created_at":"2026-07-01T10:00:00Z","updated_at":"2026-07-10T10:00:00Z"}
		],"page":1,"page_size":50,"total":1}`))
	}))
	resolver := NewResolverService(client, nil)

	_, err := resolver.Resolve(context.Background(), "missing task")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("err = %v, want ErrTaskNotFound", err)
	}
}

func TestResolveByID(t *testing.T) {
	client := newTestSDK(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"id":"t42","title":"whatever the title","status":"todo",
			 "created_at":"2026-07-01T10:00:00Z","updated_at":"2026-07-10T10:00:00Z"}
		],"page":1,"page_size":50,"total":1}`))
	}))
	resolver := NewResolverService(client, nil)

	res, err := resolver.ResolveByID(context.Background(), "t42")
	if err != nil {
		t.Fatalf("ResolveByID: %v", err)
	}
	if res.Task.ID != "t42" {
		t.Errorf("Task = %s, want t42", res.Task.ID)
	}

	if _, err := resolver.ResolveByID(context.Background(), "t999"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("err = %v, want ErrTaskNotFound", err)
	}
}
