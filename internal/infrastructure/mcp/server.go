package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/openclaw/routekit/internal/application"
	"github.com/openclaw/routekit/internal/domain/flow"
	"github.com/openclaw/routekit/pkg/sdk"
)

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

// Server exposes the routekit actions as MCP tools over stdio. Reads go
// straight through; every mutation tool only proposes a change set and
// returns its diff — an explicit commit tool call is the approval.
type Server struct {
	mcpServer *mcp.Server
	client    *sdk.Client
	resolver  *application.ResolverService
	snapshots *application.SnapshotService
	changes   *application.ChangeService
}

// mcpErr returns a user-friendly error for MCP clients. Internal detail
// stays in the server log.
func mcpErr(friendly string) error {
	return fmt.Errorf("%s", friendly)
}

func NewServer(client *sdk.Client, resolver *application.ResolverService, snapshots *application.SnapshotService, changes *application.ChangeService) *Server {
	info := mcp.ServerInfo{
		Name:    "routekit",
		Version: Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("Routekit MCP Server"),
			mcp.WithDescription("Routekit resolves tasks, derives route execution state, and applies governed change sets against the record store."),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Resolve a task first, inspect its snapshot, then propose changes. Proposals return a diff; nothing is applied until routekit_commit_changes is called with the change set id."),
		),
		client:    client,
		resolver:  resolver,
		snapshots: snapshots,
		changes:   changes,
	}

	s.registerTools()
	return s
}

type ResolveTaskArgs struct {
	Query string `json:"query" jsonschema:"description=Task id or free-text title to resolve"`
}

type SnapshotArgs struct {
	TaskID      string `json:"task_id" jsonschema:"description=Resolved task id"`
	IncludeLogs bool   `json:"include_logs" jsonschema:"description=Fetch per-step execution logs"`
	AllRoutes   bool   `json:"all_routes" jsonschema:"description=Snapshot every route instead of only the active one"`
}

type ListTasksArgs struct {
	Status string `json:"status,omitempty" jsonschema:"description=Filter by lifecycle status"`
	Query  string `json:"query,omitempty" jsonschema:"description=Full-text filter"`
	Page   int    `json:"page,omitempty"`
}

type SearchNotesArgs struct {
	Query   string `json:"query" jsonschema:"description=Full-text search query"`
	TopicID string `json:"topic_id,omitempty"`
}

type GetJournalArgs struct {
	JournalDate string `json:"journal_date" jsonschema:"description=Journal date (YYYY-MM-DD)"`
}

type ContextBundleArgs struct {
	Intent     string `json:"intent,omitempty"`
	WindowDays int    `json:"window_days,omitempty"`
}

type RecordTodoArgs struct {
	Title       string `json:"title" jsonschema:"description=Todo title; an open task with the same title is updated instead of duplicated"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty" jsonschema:"description=P0..P3"`
	Due         string `json:"due,omitempty"`
	TopicID     string `json:"topic_id,omitempty"`
}

type AppendJournalArgs struct {
	JournalDate string `json:"journal_date" jsonschema:"description=Journal date (YYYY-MM-DD)"`
	Text        string `json:"text" jsonschema:"description=Text to append"`
}

type UpsertKnowledgeArgs struct {
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	TopicID string   `json:"topic_id,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

type CaptureInboxArgs struct {
	Content string `json:"content" jsonschema:"description=Raw thought to capture for later triage"`
}

type AddStepArgs struct {
	RouteID       string `json:"route_id"`
	PredecessorID string `json:"predecessor_id" jsonschema:"description=Step the new step follows; the edge relation is inferred from the two kinds"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Kind          string `json:"kind" jsonschema:"description=Step kind (goal or idea in an execution flow)"`
}

type StepStatusArgs struct {
	RouteID string `json:"route_id"`
	StepID  string `json:"step_id"`
	Status  string `json:"status" jsonschema:"description=Target status: waiting, execute, done or removed"`
}

type RemoveStepArgs struct {
	RouteID string `json:"route_id"`
	StepID  string `json:"step_id"`
}

type AppendStepLogArgs struct {
	RouteID string `json:"route_id"`
	StepID  string `json:"step_id"`
	Content string `json:"content"`
}

type CommitArgs struct {
	ChangeSetID string `json:"change_set_id" jsonschema:"description=Id returned by a propose tool"`
	ApprovedBy  string `json:"approved_by,omitempty" jsonschema:"description=Actor id approving the change"`
}

type RejectArgs struct {
	ChangeSetID string `json:"change_set_id"`
}

type UndoArgs struct {
	Reason string `json:"reason" jsonschema:"description=Mandatory audit reason for the undo"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("routekit_resolve_task").
		Description("Resolve a task by id or free-text title. Ambiguous titles return candidates instead of a guess.").
		Handler(s.handleResolveTask)

	s.mcpServer.Tool("routekit_get_task_snapshot").
		Description("Get the execution snapshot of a task: active route, current step, previous steps, status buckets and dependency levels.").
		Handler(s.handleSnapshot)

	s.mcpServer.Tool("routekit_list_tasks").
		Description("List tasks with optional status and text filters.").
		Handler(s.handleListTasks)

	s.mcpServer.Tool("routekit_search_notes").
		Description("Search knowledge notes.").
		Handler(s.handleSearchNotes)

	s.mcpServer.Tool("routekit_get_journal").
		Description("Fetch the journal entry for a date.").
		Handler(s.handleGetJournal)

	s.mcpServer.Tool("routekit_get_context_bundle").
		Description("Fetch the compact planning context bundle.").
		Handler(s.handleContextBundle)

	s.mcpServer.Tool("routekit_record_todo").
		Description("Propose recording a todo (upsert by title). Returns a change set diff to commit.").
		Handler(s.handleRecordTodo)

	s.mcpServer.Tool("routekit_append_journal").
		Description("Propose appending text to a day's journal. Returns a change set diff to commit.").
		Handler(s.handleAppendJournal)

	s.mcpServer.Tool("routekit_upsert_knowledge").
		Description("Propose recording a knowledge note (upsert by title). Returns a change set diff to commit.").
		Handler(s.handleUpsertKnowledge)

	s.mcpServer.Tool("routekit_capture_inbox").
		Description("Propose capturing a raw thought into the inbox. Returns a change set diff to commit.").
		Handler(s.handleCaptureInbox)

	s.mcpServer.Tool("routekit_add_step").
		Description("Propose inserting a step after a predecessor; the edge relation is inferred from the step kinds.").
		Handler(s.handleAddStep)

	s.mcpServer.Tool("routekit_set_step_status").
		Description("Propose moving a step to a new status. Illegal transitions are rejected before proposing.").
		Handler(s.handleStepStatus)

	s.mcpServer.Tool("routekit_remove_step").
		Description("Propose deleting a leaf step. Steps with successors and the start step cannot be removed.").
		Handler(s.handleRemoveStep)

	s.mcpServer.Tool("routekit_append_step_log").
		Description("Propose appending a progress log to a step.").
		Handler(s.handleAppendStepLog)

	s.mcpServer.Tool("routekit_commit_changes").
		Description("Apply a proposed change set. This is the approval step.").
		Handler(s.handleCommit)

	s.mcpServer.Tool("routekit_reject_changes").
		Description("Discard a proposed change set without applying it.").
		Handler(s.handleReject)

	s.mcpServer.Tool("routekit_undo_last_commit").
		Description("Revert the most recent commit with a compensating commit. Requires a reason.").
		Handler(s.handleUndo)
}

func (s *Server) handleResolveTask(ctx context.Context, args ResolveTaskArgs) (any, error) {
	res, err := s.resolver.Resolve(ctx, args.Query)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("No task matches %q. Try routekit_list_tasks to browse.", args.Query))
	}
	return res, nil
}

func (s *Server) handleSnapshot(ctx context.Context, args SnapshotArgs) (any, error) {
	res, err := s.resolver.ResolveByID(ctx, args.TaskID)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Task %q not found. Resolve it first with routekit_resolve_task.", args.TaskID))
	}
	snap, err := s.snapshots.TaskSnapshot(ctx, *res.Task, application.SnapshotOptions{
		IncludeLogs: args.IncludeLogs,
		AllRoutes:   args.AllRoutes,
	})
	if err != nil {
		return nil, mcpErr("Failed to assemble the task snapshot. The record store may be unavailable.")
	}
	return snap, nil
}

func (s *Server) handleListTasks(ctx context.Context, args ListTasksArgs) (any, error) {
	list, err := s.client.ListTasks(ctx, sdk.ListTasksParams{
		Status: args.Status,
		Query:  args.Query,
		Page:   args.Page,
	})
	if err != nil {
		return nil, mcpErr("Failed to list tasks. The record store may be unavailable.")
	}
	return list, nil
}

func (s *Server) handleSearchNotes(ctx context.Context, args SearchNotesArgs) (any, error) {
	list, err := s.client.SearchNotes(ctx, sdk.SearchNotesParams{Query: args.Query, TopicID: args.TopicID})
	if err != nil {
		return nil, mcpErr("Failed to search notes. The record store may be unavailable.")
	}
	return list, nil
}

func (s *Server) handleGetJournal(ctx context.Context, args GetJournalArgs) (any, error) {
	journal, err := s.client.GetJournal(ctx, args.JournalDate)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("No journal found for %s.", args.JournalDate))
	}
	return journal, nil
}

func (s *Server) handleContextBundle(ctx context.Context, args ContextBundleArgs) (any, error) {
	bundle, err := s.client.GetContextBundle(ctx, sdk.ContextBundleParams{
		Intent:     args.Intent,
		WindowDays: args.WindowDays,
	})
	if err != nil {
		return nil, mcpErr("Failed to fetch the context bundle.")
	}
	return bundle, nil
}

func (s *Server) handleRecordTodo(ctx context.Context, args RecordTodoArgs) (any, error) {
	cs, err := s.changes.ProposeRecordTodo(ctx, application.RecordTodoInput{
		Title:       args.Title,
		Description: args.Description,
		Priority:    args.Priority,
		Due:         args.Due,
		TopicID:     args.TopicID,
	}, s.client.DefaultActor())
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to propose the todo: %v", err))
	}
	return cs, nil
}

func (s *Server) handleAppendJournal(ctx context.Context, args AppendJournalArgs) (any, error) {
	cs, err := s.changes.ProposeAppendJournal(ctx, args.JournalDate, args.Text, "", s.client.DefaultActor())
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to propose the journal append: %v", err))
	}
	return cs, nil
}

func (s *Server) handleUpsertKnowledge(ctx context.Context, args UpsertKnowledgeArgs) (any, error) {
	cs, err := s.changes.ProposeUpsertKnowledge(ctx, application.UpsertKnowledgeInput{
		Title:   args.Title,
		Body:    args.Body,
		TopicID: args.TopicID,
		Tags:    args.Tags,
	}, s.client.DefaultActor())
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to propose the knowledge upsert: %v", err))
	}
	return cs, nil
}

func (s *Server) handleCaptureInbox(ctx context.Context, args CaptureInboxArgs) (any, error) {
	cs, err := s.changes.ProposeCaptureInbox(ctx, args.Content, "", s.client.DefaultActor())
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to propose the inbox capture: %v", err))
	}
	return cs, nil
}

func (s *Server) handleAddStep(ctx context.Context, args AddStepArgs) (any, error) {
	cs, err := s.changes.ProposeAddStep(ctx, application.AddStepInput{
		RouteID:       args.RouteID,
		PredecessorID: args.PredecessorID,
		Title:         args.Title,
		Description:   args.Description,
		Kind:          flow.Kind(args.Kind),
	}, s.client.DefaultActor())
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to propose the step: %v", err))
	}
	return cs, nil
}

func (s *Server) handleStepStatus(ctx context.Context, args StepStatusArgs) (any, error) {
	cs, err := s.changes.ProposeStepStatus(ctx, args.RouteID, args.StepID, flow.Status(args.Status), s.client.DefaultActor())
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to propose the status change: %v", err))
	}
	return cs, nil
}

func (s *Server) handleRemoveStep(ctx context.Context, args RemoveStepArgs) (any, error) {
	cs, err := s.changes.ProposeRemoveStep(ctx, args.RouteID, args.StepID, s.client.DefaultActor())
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to propose the removal: %v", err))
	}
	return cs, nil
}

func (s *Server) handleAppendStepLog(ctx context.Context, args AppendStepLogArgs) (any, error) {
	cs, err := s.changes.ProposeAppendStepLog(ctx, args.RouteID, args.StepID, args.Content, s.client.DefaultActor())
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to propose the log append: %v", err))
	}
	return cs, nil
}

func (s *Server) handleCommit(ctx context.Context, args CommitArgs) (any, error) {
	approvedBy := s.client.DefaultActor()
	if args.ApprovedBy != "" {
		approvedBy = sdk.Actor{Type: "user", ID: args.ApprovedBy}
	}
	commit, err := s.changes.Commit(ctx, args.ChangeSetID, approvedBy)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to commit change set %s: %v", args.ChangeSetID, err))
	}
	return commit, nil
}

func (s *Server) handleReject(ctx context.Context, args RejectArgs) (string, error) {
	if err := s.changes.Reject(ctx, args.ChangeSetID); err != nil {
		return "", mcpErr(fmt.Sprintf("Failed to reject change set %s: %v", args.ChangeSetID, err))
	}
	return fmt.Sprintf("Change set %s rejected", args.ChangeSetID), nil
}

func (s *Server) handleUndo(ctx context.Context, args UndoArgs) (any, error) {
	result, err := s.changes.UndoLast(ctx, s.client.DefaultActor(), args.Reason)
	if err != nil {
		return nil, mcpErr(fmt.Sprintf("Failed to undo the last commit: %v", err))
	}
	return result, nil
}

// ServeStdio runs the server over stdio until the context is done.
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}
