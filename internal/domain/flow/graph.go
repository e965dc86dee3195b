package flow

import "sort"

// Graph is the in-memory model of one route's steps and edges. It is
// rebuilt from scratch on every fetch and never mutated in place; all
// methods are read-only derivations.
type Graph struct {
	routeID string
	steps   []Step
	byID    map[string]Step
	deps    map[string][]string
	succ    map[string]int
	edges   []Edge
	levels  map[string]int
	cyclic  bool
}

// NewGraph builds the graph model from a flat node/edge listing. Steps
// are sorted deterministically; edges referencing ids outside the step
// set are kept for rendering but ignored by the derivations.
func NewGraph(routeID string, steps []Step, edges []Edge) *Graph {
	g := &Graph{
		routeID: routeID,
		steps:   SortSteps(steps),
		byID:    make(map[string]Step, len(steps)),
		deps:    make(map[string][]string),
		succ:    make(map[string]int),
		edges:   edges,
	}
	for _, s := range g.steps {
		g.byID[s.ID] = s
	}
	for _, e := range edges {
		if _, ok := g.byID[e.FromStepID]; !ok {
			continue
		}
		if _, ok := g.byID[e.ToStepID]; !ok {
			continue
		}
		g.deps[e.ToStepID] = append(g.deps[e.ToStepID], e.FromStepID)
		g.succ[e.FromStepID]++
	}
	g.computeLevels()
	return g
}

// SortSteps orders steps by order hint ascending, ties broken by creation
// time, then by id. Every derivation iterates in this order so level
// assignment and current-step selection are deterministic.
func SortSteps(steps []Step) []Step {
	sorted := make([]Step, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.OrderHint != b.OrderHint {
			return a.OrderHint < b.OrderHint
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.ID < b.ID
	})
	return sorted
}

// RouteID returns the route this graph belongs to.
func (g *Graph) RouteID() string { return g.routeID }

// Steps returns all steps in sorted order.
func (g *Graph) Steps() []Step { return g.steps }

// Edges returns all edges as listed by the store.
func (g *Graph) Edges() []Edge { return g.edges }

// Step looks up a step by id.
func (g *Graph) Step(id string) (Step, bool) {
	s, ok := g.byID[id]
	return s, ok
}

// StartStep returns the flow's start step, if one exists.
func (g *Graph) StartStep() (Step, bool) {
	for _, s := range g.steps {
		if s.Kind == KindStart {
			return s, true
		}
	}
	return Step{}, false
}

// DependenciesOf returns the direct predecessors of a step, restricted to
// steps present in the graph.
func (g *Graph) DependenciesOf(id string) []Step {
	ids := g.deps[id]
	steps := make([]Step, 0, len(ids))
	for _, depID := range ids {
		if s, ok := g.byID[depID]; ok {
			steps = append(steps, s)
		}
	}
	return steps
}

// Level returns the dependency depth of a step: 0 for the start step or
// any step with no in-set predecessors, otherwise one more than its
// deepest dependency.
func (g *Graph) Level(id string) int {
	return g.levels[id]
}

// CycleDetected reports whether level computation ran into a dependency
// cycle. Cycles cannot occur under correct governed mutation; seeing one
// is a data-integrity violation to surface, not repair.
func (g *Graph) CycleDetected() bool { return g.cyclic }

// computeLevels assigns dependency levels with an iterative walk over the
// step arena. A step found on its own dependency path contributes level 0
// to its dependents and flips the cycle diagnostic.
func (g *Graph) computeLevels() {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(g.steps))
	g.levels = make(map[string]int, len(g.steps))

	type frame struct {
		id       string
		expanded bool
	}

	for _, root := range g.steps {
		if state[root.ID] != unvisited {
			continue
		}
		stack := []frame{{id: root.ID}}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if f.expanded {
				level := 0
				for _, depID := range g.deps[f.id] {
					if state[depID] == visiting {
						g.cyclic = true
						continue
					}
					if dl := g.levels[depID]; dl+1 > level {
						level = dl + 1
					}
				}
				// Re-apply the +1 floor: any resolvable dependency
				// puts the step at least one level down.
				if level == 0 && len(g.deps[f.id]) > 0 {
					level = 1
				}
				g.levels[f.id] = level
				state[f.id] = done
				continue
			}

			if state[f.id] != unvisited {
				continue
			}
			step := g.byID[f.id]
			deps := g.deps[f.id]
			if step.Kind == KindStart || len(deps) == 0 {
				g.levels[f.id] = 0
				state[f.id] = done
				continue
			}
			state[f.id] = visiting
			stack = append(stack, frame{id: f.id, expanded: true})
			for _, depID := range deps {
				switch state[depID] {
				case unvisited:
					stack = append(stack, frame{id: depID})
				case visiting:
					g.cyclic = true
				}
			}
		}
	}
}

// CurrentStep derives "what should a human or agent look at next". The
// preference chain is: an executing focus step, then any executing step,
// then the last finished focus step, then the first focus step that is
// not the start marker, then the first step overall.
func (g *Graph) CurrentStep() (Step, bool) {
	if len(g.steps) == 0 {
		return Step{}, false
	}

	focus := make([]Step, 0, len(g.steps))
	for _, s := range g.steps {
		if s.Kind.FocusEligible() {
			focus = append(focus, s)
		}
	}
	if len(focus) == 0 {
		focus = g.steps
	}

	for _, s := range focus {
		if s.Status() == StatusExecute {
			return s, true
		}
	}
	for _, s := range g.steps {
		if s.Status() == StatusExecute {
			return s, true
		}
	}
	for i := len(focus) - 1; i >= 0; i-- {
		if focus[i].Status() == StatusDone {
			return focus[i], true
		}
	}
	for _, s := range focus {
		if s.Kind != KindStart {
			return s, true
		}
	}
	return g.steps[0], true
}

// PreviousSteps returns the direct predecessors of the given step.
func (g *Graph) PreviousSteps(id string) []Step {
	return g.DependenciesOf(id)
}

// HasSuccessor reports whether any edge leaves the given step.
func (g *Graph) HasSuccessor(id string) bool {
	return g.succ[id] > 0
}

// CanRemove checks whether a step may be deleted: it must exist, must not
// be the start step, and must have no successors. Removal of a non-leaf
// is rejected, never cascaded.
func (g *Graph) CanRemove(id string) error {
	s, ok := g.byID[id]
	if !ok {
		return ErrStepNotFound
	}
	if s.Kind == KindStart {
		return ErrRemoveStart
	}
	if g.HasSuccessor(id) {
		return ErrStepHasSuccessor
	}
	return nil
}

// StepsByStatus returns all steps whose normalized status matches, in
// sort order.
func (g *Graph) StepsByStatus(status Status) []Step {
	var out []Step
	for _, s := range g.steps {
		if s.Status() == status {
			out = append(out, s)
		}
	}
	return out
}
