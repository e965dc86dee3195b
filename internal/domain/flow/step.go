package flow

// View distinguishes the two kind vocabularies a route graph can use.
// A dependency graph uses decision/milestone/task; an execution flow uses
// start/goal/idea. Both share the same edge and level algorithms.
type View int

const (
	ViewUnknown View = iota
	ViewDependency
	ViewExecution
)

// Kind is the tagged union over both vocabularies. Modeling one enum with
// explicit view membership avoids silently accepting a cross-view kind.
type Kind string

const (
	KindStart     Kind = "start"
	KindGoal      Kind = "goal"
	KindIdea      Kind = "idea"
	KindDecision  Kind = "decision"
	KindMilestone Kind = "milestone"
	KindTask      Kind = "task"
)

// View returns which graph view the kind belongs to.
func (k Kind) View() View {
	switch k {
	case KindStart, KindGoal, KindIdea:
		return ViewExecution
	case KindDecision, KindMilestone, KindTask:
		return ViewDependency
	}
	return ViewUnknown
}

// Valid reports whether k is a known kind in either view.
func (k Kind) Valid() bool {
	return k.View() != ViewUnknown
}

// FocusEligible reports whether a step of this kind can be "the current
// step" of a flow. Only the execution-view anchor kinds qualify; graphs
// without any fall back to considering every step.
func (k Kind) FocusEligible() bool {
	return k == KindStart || k == KindGoal
}

// Status is the four-state projection of the store's native step status.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusExecute Status = "execute"
	StatusDone    Status = "done"
	StatusRemoved Status = "removed"
)

// NormalizeStatus projects a raw store status onto the four-state model.
// Unknown values pass through unchanged: normalization fails open so a
// store-side vocabulary addition never breaks reads.
func NormalizeStatus(raw string) Status {
	switch raw {
	case "todo":
		return StatusWaiting
	case "in_progress":
		return StatusExecute
	case "cancelled":
		return StatusRemoved
	case "done":
		return StatusDone
	}
	return Status(raw)
}

// Relation labels a directed edge. Dependency graphs use depends_on and
// blocks; execution flows use refine, initiate and handoff.
type Relation string

const (
	RelationDependsOn Relation = "depends_on"
	RelationBlocks    Relation = "blocks"
	RelationRefine    Relation = "refine"
	RelationInitiate  Relation = "initiate"
	RelationHandoff   Relation = "handoff"
)

// Step is one node of a route graph.
type Step struct {
	ID           string
	Title        string
	Description  string
	Kind         Kind
	RawStatus    string
	OrderHint    float64
	CreatedAt    string
	AssigneeType string
	AssigneeID   string
	HasLogs      bool
}

// Status returns the normalized status of the step. A start step is the
// flow's fixed entry marker and always reads as done.
func (s Step) Status() Status {
	if s.Kind == KindStart {
		return StatusDone
	}
	return NormalizeStatus(s.RawStatus)
}

// Edge is a directed relation between two steps.
type Edge struct {
	ID          string
	FromStepID  string
	ToStepID    string
	Relation    Relation
	Description string
}
