package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"golang.org/x/sync/errgroup"

	"github.com/openclaw/routekit/internal/domain/flow"
	"github.com/openclaw/routekit/pkg/sdk"
)

const logFetchConcurrency = 8

// RouteSnapshot is the derived execution state of one route.
type RouteSnapshot struct {
	Route         sdk.Route
	Steps         []flow.Step
	Edges         []flow.Edge
	Current       *flow.Step
	Previous      []flow.Step
	Executing     []flow.Step
	Done          []flow.Step
	Waiting       []flow.Step
	Levels        map[string]int
	CycleDetected bool
	Logs          map[string][]sdk.EntityLog
}

// TaskSnapshot bundles a task with its selected route's execution state.
// Routes is populated only in all-routes mode; the selected route always
// comes first there, the rest in store order. A task without routes gets
// an explicit empty snapshot, not an error.
type TaskSnapshot struct {
	Task   sdk.Task
	Route  *RouteSnapshot
	Routes []*RouteSnapshot
}

// SnapshotOptions controls how much a snapshot fetches.
type SnapshotOptions struct {
	IncludeLogs bool
	AllRoutes   bool
}

// SnapshotService assembles route/execution snapshots.
type SnapshotService struct {
	client *sdk.Client
	logger *slog.Logger
}

func NewSnapshotService(client *sdk.Client, logger *slog.Logger) *SnapshotService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotService{client: client, logger: logger}
}

// TaskSnapshot builds the execution snapshot for one resolved task.
func (s *SnapshotService) TaskSnapshot(ctx context.Context, task sdk.Task, opts SnapshotOptions) (*TaskSnapshot, error) {
	routes, err := s.client.ListRoutes(ctx, sdk.ListRoutesParams{TaskID: task.ID})
	if err != nil {
		return nil, err
	}
	snapshot := &TaskSnapshot{Task: task}
	if len(routes.Items) == 0 {
		return snapshot, nil
	}

	selected := routes.Items[0]
	for _, r := range routes.Items {
		if r.Status == "active" {
			selected = r
			break
		}
	}

	snapshot.Route, err = s.RouteSnapshot(ctx, selected, opts.IncludeLogs)
	if err != nil {
		return nil, err
	}
	if !opts.AllRoutes {
		return snapshot, nil
	}

	snapshot.Routes = append(snapshot.Routes, snapshot.Route)
	for _, r := range routes.Items {
		if r.ID == selected.ID {
			continue
		}
		rs, err := s.RouteSnapshot(ctx, r, opts.IncludeLogs)
		if err != nil {
			return nil, err
		}
		snapshot.Routes = append(snapshot.Routes, rs)
	}
	return snapshot, nil
}

// RouteSnapshot fetches one route's graph and runs the derivations.
func (s *SnapshotService) RouteSnapshot(ctx context.Context, route sdk.Route, includeLogs bool) (*RouteSnapshot, error) {
	g, err := s.client.GetRouteGraph(ctx, route.ID)
	if err != nil {
		return nil, err
	}

	steps := make([]flow.Step, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		steps = append(steps, stepFromNode(n))
	}
	edges := make([]flow.Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		edges = append(edges, flow.Edge{
			ID:          e.ID,
			FromStepID:  e.FromNodeID,
			ToStepID:    e.ToNodeID,
			Relation:    flow.Relation(e.Relation),
			Description: e.Description,
		})
	}
	graph := flow.NewGraph(route.ID, steps, edges)

	snap := &RouteSnapshot{
		Route:         route,
		Steps:         graph.Steps(),
		Edges:         graph.Edges(),
		Executing:     graph.StepsByStatus(flow.StatusExecute),
		Done:          graph.StepsByStatus(flow.StatusDone),
		Waiting:       graph.StepsByStatus(flow.StatusWaiting),
		Levels:        make(map[string]int, len(steps)),
		CycleDetected: graph.CycleDetected(),
	}
	for _, st := range graph.Steps() {
		snap.Levels[st.ID] = graph.Level(st.ID)
	}
	if current, ok := graph.CurrentStep(); ok {
		snap.Current = &current
		snap.Previous = graph.PreviousSteps(current.ID)
	}
	if snap.CycleDetected {
		s.logger.Warn("dependency cycle in route graph", "route_id", route.ID)
	}

	if includeLogs {
		snap.Logs = s.fetchLogs(ctx, route.ID, graph.Steps())
	}
	return snap, nil
}

// fetchLogs pulls logs concurrently. Every step gets an entry in the
// returned map; only steps flagged as having logs are actually fetched,
// the rest start out empty. A failed log read leaves that step's entry
// empty; the snapshot itself never fails because of a log fetch.
func (s *SnapshotService) fetchLogs(ctx context.Context, routeID string, steps []flow.Step) map[string][]sdk.EntityLog {
	logs := make(map[string][]sdk.EntityLog, len(steps))
	for _, st := range steps {
		logs[st.ID] = []sdk.EntityLog{}
	}
	var mu sync.Mutex

	r := retry.New[*sdk.List[sdk.EntityLog]](retry.Config{
		MaxAttempts:   2,
		InitialDelay:  100 * time.Millisecond,
		BackoffPolicy: retry.BackoffExponential,
	})

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(logFetchConcurrency)
	for _, st := range steps {
		if !st.HasLogs {
			continue
		}
		group.Go(func() error {
			list, err := r.Do(gctx, func(ctx context.Context) (*sdk.List[sdk.EntityLog], error) {
				return s.client.GetNodeLogs(ctx, routeID, st.ID)
			})
			if err != nil {
				s.logger.Debug("log fetch failed",
					"route_id", routeID, "step_id", st.ID, "error", err)
				return nil
			}
			mu.Lock()
			logs[st.ID] = list.Items
			mu.Unlock()
			return nil
		})
	}
	// Errors are swallowed above, so this only waits.
	_ = group.Wait()
	return logs
}

func stepFromNode(n sdk.Node) flow.Step {
	return flow.Step{
		ID:           n.ID,
		Title:        n.Title,
		Description:  n.Description,
		Kind:         flow.Kind(n.NodeType),
		RawStatus:    n.Status,
		OrderHint:    n.OrderHint,
		CreatedAt:    n.CreatedAt,
		AssigneeType: n.AssigneeType,
		AssigneeID:   n.AssigneeID,
		HasLogs:      n.HasLogs,
	}
}
