package sdk

import "time"

// List is the shared shape of every list response returned by the store.
type List[T any] struct {
	Items    []T `json:"items"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// Actor identifies who initiated an operation.
type Actor struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Task is a unit of work owned by the record store.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority,omitempty"`
	Due         string    `json:"due,omitempty"`
	Source      string    `json:"source,omitempty"`
	TaskType    string    `json:"task_type,omitempty"`
	TopicID     string    `json:"topic_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Route is a named dependency graph of steps belonging to one task.
type Route struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Name      string    `json:"name"`
	Goal      string    `json:"goal,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Node is one step in a route graph, as the store returns it.
type Node struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	NodeType     string  `json:"node_type"`
	Status       string  `json:"status"`
	OrderHint    float64 `json:"order_hint"`
	AssigneeType string  `json:"assignee_type,omitempty"`
	AssigneeID   string  `json:"assignee_id,omitempty"`
	HasLogs      bool    `json:"has_logs,omitempty"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

// Edge is a directed relation between two route nodes.
type Edge struct {
	ID          string `json:"id"`
	FromNodeID  string `json:"from_node_id"`
	ToNodeID    string `json:"to_node_id"`
	Relation    string `json:"relation"`
	Description string `json:"description,omitempty"`
}

// RouteGraph is the full node/edge set of one route.
type RouteGraph struct {
	RouteID string `json:"route_id"`
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
}

// EntityLog is a progress log attached to a route node or edge.
type EntityLog struct {
	ID         string    `json:"id"`
	RouteID    string    `json:"route_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	ActorType  string    `json:"actor_type"`
	ActorID    string    `json:"actor_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Topic is a classification bucket for tasks and notes.
type Topic struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TopicType string `json:"topic_type,omitempty"`
	Status    string `json:"status,omitempty"`
}

// Journal is a daily journal entry.
type Journal struct {
	ID          string    `json:"id"`
	JournalDate string    `json:"journal_date"`
	Body        string    `json:"body"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Note is a knowledge-base note.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Status    string    `json:"status"`
	TopicID   string    `json:"topic_id,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Action is one proposed mutation inside a change set.
type Action struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// ChangeSet is the server's answer to a dry-run: an immutable proposal
// with a computed diff, consumed exactly once by commit or reject.
type ChangeSet struct {
	ChangeSetID string         `json:"change_set_id"`
	Status      string         `json:"status"`
	Summary     map[string]int `json:"summary"`
	Diff        []DiffEntry    `json:"diff"`
}

// DiffEntry is one structural difference computed by a dry-run.
type DiffEntry struct {
	Op         string         `json:"op"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
}

// Commit records an applied change set.
type Commit struct {
	CommitID    string    `json:"commit_id"`
	ChangeSetID string    `json:"change_set_id"`
	Status      string    `json:"status"`
	CommittedAt time.Time `json:"committed_at"`
}

// UndoResult records a compensating undo of the most recent commit.
type UndoResult struct {
	UndoneCommitID string `json:"undone_commit_id"`
	RevertCommitID string `json:"revert_commit_id"`
	Status         string `json:"status"`
}

// ListTasksParams filters a task listing.
type ListTasksParams struct {
	Page     int
	PageSize int
	Status   string
	Priority string
	TopicID  string
	Query    string
}

// ListRoutesParams filters a route listing.
type ListRoutesParams struct {
	Page     int
	PageSize int
	TaskID   string
	Status   string
}

// SearchNotesParams filters a knowledge-note search.
type SearchNotesParams struct {
	Page     int
	PageSize int
	Query    string
	TopicID  string
	Status   string
}

// ListJournalsParams filters a journal listing.
type ListJournalsParams struct {
	Page     int
	PageSize int
	DateFrom string
	DateTo   string
}

// ContextBundleParams selects the compact planning context bundle.
type ContextBundleParams struct {
	Intent      string
	WindowDays  int
	IncludeDone bool
	TopicIDs    []string
}
