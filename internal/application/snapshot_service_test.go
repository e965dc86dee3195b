package application

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/openclaw/routekit/internal/domain/flow"
	"github.com/openclaw/routekit/pkg/sdk"
)

const testGraphJSON = `{"route_id":"r2","nodes":[
	{"id":"n0","title":"flow start","node_type":"start","status":"done","order_hint":0},
	{"id":"n1","title":"first milestone","node_type":"goal","status":"in_progress","order_hint":1,"has_logs":true},
	{"id":"n2","title":"polish","node_type":"idea","status":"todo","order_hint":2}
],"edges":[
	{"id":"e1","from_node_id":"n0","to_node_id":"n1","relation":"initiate"},
	{"id":"e2","from_node_id":"n1","to_node_id":"n2","relation":"handoff"}
]}`

func snapshotTestMux(t *testing.T, logStatus int) (*http.ServeMux, *atomic.Int32) {
	t.Helper()
	var logCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/routes", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[
			{"id":"r1","task_id":"t1","name":"old plan","status":"parked",
			 "created_at":"2026-08-01T10:00:00Z","updated_at":"2026-08-01T10:00:00Z"},
			{"id":"r2","task_id":"t1","name":"current plan","status":"active",
			 "created_at":"2026-08-02T10:00:00Z","updated_at":"2026-08-02T10:00:00Z"}
		],"page":1,"page_size":20,"total":2}`))
	})
	mux.HandleFunc("/api/v1/routes/r1/graph", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"route_id":"r1","nodes":[],"edges":[]}`))
	})
	mux.HandleFunc("/api/v1/routes/r2/graph", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testGraphJSON))
	})
	mux.HandleFunc("/api/v1/routes/r2/nodes/n1/logs", func(w http.ResponseWriter, r *http.Request) {
		logCalls.Add(1)
		if logStatus != http.StatusOK {
			w.WriteHeader(logStatus)
			return
		}
		w.Write([]byte(`{"items":[
			{"id":"l1","route_id":"r2","entity_id":"n1","content":"kickoff done",
			 "created_at":"2026-08-10T10:00:00Z","updated_at":"2026-08-10T10:00:00Z"}
		],"page":1,"page_size":20,"total":1}`))
	})
	return mux, &logCalls
}

func testTask() sdk.Task {
	return sdk.Task{ID: "t1", Title: "ship the plan", Status: "in_progress"}
}

func TestTaskSnapshotSelectsActiveRoute(t *testing.T) {
	mux, _ := snapshotTestMux(t, http.StatusOK)
	client := newTestSDK(t, mux)
	svc := NewSnapshotService(client, nil)

	snap, err := svc.TaskSnapshot(context.Background(), testTask(), SnapshotOptions{})
	if err != nil {
		t.Fatalf("TaskSnapshot: %v", err)
	}
	if snap.Route == nil {
		t.Fatal("Route = nil")
	}
	if snap.Route.Route.ID != "r2" {
		t.Errorf("selected route = %s, want r2 (first active)", snap.Route.Route.ID)
	}
	if snap.Route.Current == nil || snap.Route.Current.ID != "n1" {
		t.Fatalf("current step = %v, want n1", snap.Route.Current)
	}
	if len(snap.Route.Previous) != 1 || snap.Route.Previous[0].ID != "n0" {
		t.Errorf("previous = %v, want [n0]", snap.Route.Previous)
	}
	if got := snap.Route.Levels["n2"]; got != 2 {
		t.Errorf("level(n2) = %d, want 2", got)
	}
	if snap.Route.CycleDetected {
		t.Error("CycleDetected = true for an acyclic graph")
	}
	if snap.Route.Logs != nil {
		t.Error("logs fetched without IncludeLogs")
	}
}

func TestTaskSnapshotIncludeLogs(t *testing.T) {
	mux, logCalls := snapshotTestMux(t, http.StatusOK)
	client := newTestSDK(t, mux)
	svc := NewSnapshotService(client, nil)

	snap, err := svc.TaskSnapshot(context.Background(), testTask(), SnapshotOptions{IncludeLogs: true})
	if err != nil {
		t.Fatalf("TaskSnapshot: %v", err)
	}
	if got := logCalls.Load(); got != 1 {
		t.Fatalf("log fetches = %d, want 1 (only n1 is flagged)", got)
	}
	logs := snap.Route.Logs["n1"]
	if len(logs) != 1 || logs[0].Content != "kickoff done" {
		t.Errorf("logs[n1] = %v, want the kickoff entry", logs)
	}
	// Unflagged steps still get an entry, just an empty one.
	for _, id := range []string{"n0", "n2"} {
		entry, ok := snap.Route.Logs[id]
		if !ok {
			t.Errorf("logs[%s] missing, want an empty entry", id)
		}
		if len(entry) != 0 {
			t.Errorf("logs[%s] = %v, want empty", id, entry)
		}
	}
}

func TestTaskSnapshotLogFailureIsSwallowed(t *testing.T) {
	mux, _ := snapshotTestMux(t, http.StatusInternalServerError)
	client := newTestSDK(t, mux)
	svc := NewSnapshotService(client, nil)

	snap, err := svc.TaskSnapshot(context.Background(), testTask(), SnapshotOptions{IncludeLogs: true})
	if err != nil {
		t.Fatalf("TaskSnapshot: %v (log failures must not fail the snapshot)", err)
	}
	if len(snap.Route.Logs["n1"]) != 0 {
		t.Errorf("logs[n1] = %v, want empty after failed fetch", snap.Route.Logs["n1"])
	}
}

func TestTaskSnapshotAllRoutes(t *testing.T) {
	mux, _ := snapshotTestMux(t, http.StatusOK)
	client := newTestSDK(t, mux)
	svc := NewSnapshotService(client, nil)

	snap, err := svc.TaskSnapshot(context.Background(), testTask(), SnapshotOptions{AllRoutes: true})
	if err != nil {
		t.Fatalf("TaskSnapshot: %v", err)
	}
	if len(snap.Routes) != 2 {
		t.Fatalf("routes = %d, want 2", len(snap.Routes))
	}
	// Selected route first, then store order.
	if snap.Routes[0].Route.ID != "r2" || snap.Routes[1].Route.ID != "r1" {
		t.Errorf("route order = [%s %s], want [r2 r1]",
			snap.Routes[0].Route.ID, snap.Routes[1].Route.ID)
	}
}

func TestTaskSnapshotNoRoutes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/routes", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[],"page":1,"page_size":20,"total":0}`))
	})
	client := newTestSDK(t, mux)
	svc := NewSnapshotService(client, nil)

	snap, err := svc.TaskSnapshot(context.Background(), testTask(), SnapshotOptions{})
	if err != nil {
		t.Fatalf("TaskSnapshot: %v (no routes is an empty snapshot, not an error)", err)
	}
	if snap.Route != nil || len(snap.Routes) != 0 {
		t.Errorf("snapshot = %+v, want empty", snap)
	}
	if snap.Task.ID != "t1" {
		t.Errorf("task = %s, want t1", snap.Task.ID)
	}
}

func TestStepFromNode(t *testing.T) {
	n := sdk.Node{ID: "n1", Title: "x", NodeType: "goal", Status: "in_progress", OrderHint: 1.5, HasLogs: true}
	st := stepFromNode(n)
	if st.Kind != flow.KindGoal {
		t.Errorf("kind = %q, want goal", st.Kind)
	}
	if st.Status() != flow.StatusExecute {
		t.Errorf("status = %q, want execute", st.Status())
	}
	if !st.HasLogs {
		t.Error("HasLogs not carried over")
	}
}
