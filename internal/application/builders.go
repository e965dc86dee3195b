package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/openclaw/routekit/internal/domain/change"
	"github.com/openclaw/routekit/internal/domain/flow"
	"github.com/openclaw/routekit/pkg/sdk"
)

// The convenience builders below shape a payload for one common intent,
// validate it locally and delegate to Propose. The upsert-style intents
// re-run their lookup on every call; concurrent writers may change the
// match between calls and the store's idempotency token bounds the
// damage of the remaining race window.

// RecordTodoInput describes a todo to record, by title.
type RecordTodoInput struct {
	Title       string
	Description string
	Priority    string
	Due         string
	TopicID     string
	Source      string
}

// ProposeRecordTodo records a todo as an upsert-by-title: an open task
// with the same normalized title is updated in place, otherwise a new
// task is created under the given topic (or an inferred default topic).
func (s *ChangeService) ProposeRecordTodo(ctx context.Context, in RecordTodoInput, actor sdk.Actor) (*sdk.ChangeSet, error) {
	if in.Title == "" {
		return nil, &change.ValidationError{Action: change.ActionCreateTask, Detail: "title is required"}
	}
	if in.Source == "" {
		in.Source = s.client.Tool()
	}

	existing, err := s.findOpenTask(ctx, in.Title)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		payload := map[string]any{
			"task_id": existing.ID,
			"source":  in.Source,
		}
		if in.Description != "" {
			payload["description"] = in.Description
		}
		if in.Priority != "" {
			payload["priority"] = in.Priority
		}
		if in.Due != "" {
			payload["due"] = in.Due
		}
		return s.Propose(ctx, []sdk.Action{{Type: change.ActionUpdateTask, Payload: payload}}, actor)
	}

	topicID := in.TopicID
	if topicID == "" {
		topicID = s.defaultTopicID(ctx)
	}
	payload := map[string]any{
		"title":  in.Title,
		"source": in.Source,
		"status": "todo",
	}
	if topicID != "" {
		payload["topic_id"] = topicID
	}
	if in.Description != "" {
		payload["description"] = in.Description
	}
	if in.Priority != "" {
		payload["priority"] = in.Priority
	}
	if in.Due != "" {
		payload["due"] = in.Due
	}
	return s.Propose(ctx, []sdk.Action{{Type: change.ActionCreateTask, Payload: payload}}, actor)
}

// findOpenTask looks for an open task whose normalized title matches.
// Executed fresh on every call, never cached.
func (s *ChangeService) findOpenTask(ctx context.Context, title string) (*sdk.Task, error) {
	list, err := s.client.ListTasks(ctx, sdk.ListTasksParams{Query: title, PageSize: resolverPageSize})
	if err != nil {
		return nil, err
	}
	want := NormalizeTitle(title)
	for i := range list.Items {
		if NormalizeTitle(list.Items[i].Title) == want && isOpenStatus(list.Items[i].Status) {
			return &list.Items[i], nil
		}
	}
	return nil, nil
}

// defaultTopicID picks the fallback topic for new tasks: the catch-all
// topic if one exists, else the first topic listed. Failure to list
// topics degrades to "no topic", never to a failed proposal.
func (s *ChangeService) defaultTopicID(ctx context.Context) string {
	topics, err := s.client.ListTopics(ctx)
	if err != nil || len(topics.Items) == 0 {
		return ""
	}
	for _, t := range topics.Items {
		if t.TopicType == "other" {
			return t.ID
		}
	}
	return topics.Items[0].ID
}

// ProposeAppendJournal appends text to the journal for a given date,
// creating the journal if it does not exist.
func (s *ChangeService) ProposeAppendJournal(ctx context.Context, journalDate, text, source string, actor sdk.Actor) (*sdk.ChangeSet, error) {
	if source == "" {
		source = s.client.Tool()
	}
	return s.Propose(ctx, []sdk.Action{{
		Type: change.ActionUpsertJournalAppend,
		Payload: map[string]any{
			"journal_date": journalDate,
			"append_text":  text,
			"source":       source,
		},
	}}, actor)
}

// UpsertKnowledgeInput describes a knowledge note to record, by title.
type UpsertKnowledgeInput struct {
	Title   string
	Body    string
	TopicID string
	Tags    []string
	Source  string
}

// ProposeUpsertKnowledge records knowledge as an upsert-by-title: an
// active note with the same normalized title gets the body appended,
// otherwise a new note is created.
func (s *ChangeService) ProposeUpsertKnowledge(ctx context.Context, in UpsertKnowledgeInput, actor sdk.Actor) (*sdk.ChangeSet, error) {
	if in.Title == "" {
		return nil, &change.ValidationError{Action: change.ActionAppendNote, Detail: "title is required"}
	}
	if in.Source == "" {
		in.Source = s.client.Tool()
	}

	notes, err := s.client.SearchNotes(ctx, sdk.SearchNotesParams{Query: in.Title, Status: "active", PageSize: resolverPageSize})
	if err != nil {
		return nil, err
	}
	want := NormalizeTitle(in.Title)
	for _, n := range notes.Items {
		if NormalizeTitle(n.Title) != want {
			continue
		}
		return s.Propose(ctx, []sdk.Action{{
			Type: change.ActionPatchNote,
			Payload: map[string]any{
				"note_id":     n.ID,
				"body_append": in.Body,
				"source":      in.Source,
			},
		}}, actor)
	}

	payload := map[string]any{
		"title":   in.Title,
		"body":    in.Body,
		"sources": []string{in.Source},
	}
	if in.TopicID != "" {
		payload["topic_id"] = in.TopicID
	}
	if len(in.Tags) > 0 {
		payload["tags"] = in.Tags
	}
	return s.Propose(ctx, []sdk.Action{{Type: change.ActionAppendNote, Payload: payload}}, actor)
}

// ProposeCaptureInbox captures a raw thought for later triage.
func (s *ChangeService) ProposeCaptureInbox(ctx context.Context, content, source string, actor sdk.Actor) (*sdk.ChangeSet, error) {
	if source == "" {
		source = s.client.Tool()
	}
	return s.Propose(ctx, []sdk.Action{{
		Type:    change.ActionCaptureInbox,
		Payload: map[string]any{"content": content, "source": source},
	}}, actor)
}

// ProposeCreateIdea records a standalone idea.
func (s *ChangeService) ProposeCreateIdea(ctx context.Context, title, description string, actor sdk.Actor) (*sdk.ChangeSet, error) {
	payload := map[string]any{"title": title}
	if description != "" {
		payload["description"] = description
	}
	return s.Propose(ctx, []sdk.Action{{Type: change.ActionCreateIdea, Payload: payload}}, actor)
}

// CreateRouteInput describes a new route for a task.
type CreateRouteInput struct {
	TaskID string
	Name   string
	Goal   string
	Status string
}

// ProposeCreateRoute creates a new route under a task.
func (s *ChangeService) ProposeCreateRoute(ctx context.Context, in CreateRouteInput, actor sdk.Actor) (*sdk.ChangeSet, error) {
	payload := map[string]any{
		"task_id": in.TaskID,
		"name":    in.Name,
	}
	if in.Goal != "" {
		payload["goal"] = in.Goal
	}
	if in.Status != "" {
		payload["status"] = in.Status
	}
	return s.Propose(ctx, []sdk.Action{{Type: change.ActionCreateRoute, Payload: payload}}, actor)
}

// AddStepInput describes a new step chained after a predecessor.
type AddStepInput struct {
	RouteID       string
	PredecessorID string
	Title         string
	Description   string
	Kind          flow.Kind
}

// ProposeAddStep inserts a new step after a chosen predecessor. The edge
// relation is inferred from the two kinds; an illegal pairing (goal
// directly after goal) is rejected before any network call. The node id
// is generated here so the edge action can reference it within the same
// change set.
func (s *ChangeService) ProposeAddStep(ctx context.Context, in AddStepInput, actor sdk.Actor) (*sdk.ChangeSet, error) {
	graph, err := s.routeGraph(ctx, in.RouteID)
	if err != nil {
		return nil, err
	}
	predecessor, ok := graph.Step(in.PredecessorID)
	if !ok {
		return nil, flow.ErrStepNotFound
	}
	relation, err := flow.InferRelation(predecessor.Kind, in.Kind)
	if err != nil {
		return nil, err
	}

	nodeID := uuid.New().String()
	nodePayload := map[string]any{
		"route_id":  in.RouteID,
		"node_id":   nodeID,
		"title":     in.Title,
		"node_type": string(in.Kind),
		"status":    "todo",
	}
	if in.Description != "" {
		nodePayload["description"] = in.Description
	}
	actions := []sdk.Action{
		{Type: change.ActionCreateRouteNode, Payload: nodePayload},
		{Type: change.ActionCreateRouteEdge, Payload: map[string]any{
			"route_id":     in.RouteID,
			"from_node_id": in.PredecessorID,
			"to_node_id":   nodeID,
			"relation":     string(relation),
		}},
	}
	return s.Propose(ctx, actions, actor)
}

// ProposeStepStatus moves a step to a new status. The transition is
// checked against the status machine before proposing; an illegal jump
// never reaches the store.
func (s *ChangeService) ProposeStepStatus(ctx context.Context, routeID, stepID string, to flow.Status, actor sdk.Actor) (*sdk.ChangeSet, error) {
	graph, err := s.routeGraph(ctx, routeID)
	if err != nil {
		return nil, err
	}
	step, ok := graph.Step(stepID)
	if !ok {
		return nil, flow.ErrStepNotFound
	}
	if err := flow.ValidateTransition(step.Status(), to, stepID); err != nil {
		return nil, err
	}
	return s.Propose(ctx, []sdk.Action{{
		Type: change.ActionUpdateRouteNode,
		Payload: map[string]any{
			"route_id": routeID,
			"node_id":  stepID,
			"status":   rawStatus(to),
		},
	}}, actor)
}

// ProposeRemoveStep deletes a leaf step. Removing the start step or a
// step that still has successors is rejected locally; deletion never
// cascades.
func (s *ChangeService) ProposeRemoveStep(ctx context.Context, routeID, stepID string, actor sdk.Actor) (*sdk.ChangeSet, error) {
	graph, err := s.routeGraph(ctx, routeID)
	if err != nil {
		return nil, err
	}
	if err := graph.CanRemove(stepID); err != nil {
		return nil, err
	}
	return s.Propose(ctx, []sdk.Action{{
		Type:    change.ActionDeleteRouteNode,
		Payload: map[string]any{"route_id": routeID, "node_id": stepID},
	}}, actor)
}

// ProposeAppendStepLog appends a progress log to one step.
func (s *ChangeService) ProposeAppendStepLog(ctx context.Context, routeID, stepID, content string, actor sdk.Actor) (*sdk.ChangeSet, error) {
	return s.Propose(ctx, []sdk.Action{{
		Type: change.ActionAppendEntityLog,
		Payload: map[string]any{
			"route_id":  routeID,
			"entity_id": stepID,
			"content":   content,
		},
	}}, actor)
}

// ProposeCreateLink relates two records of any type.
func (s *ChangeService) ProposeCreateLink(ctx context.Context, fromType, fromID, toType, toID string, actor sdk.Actor) (*sdk.ChangeSet, error) {
	return s.Propose(ctx, []sdk.Action{{
		Type: change.ActionCreateLink,
		Payload: map[string]any{
			"from_type": fromType,
			"from_id":   fromID,
			"to_type":   toType,
			"to_id":     toID,
		},
	}}, actor)
}

func (s *ChangeService) routeGraph(ctx context.Context, routeID string) (*flow.Graph, error) {
	g, err := s.client.GetRouteGraph(ctx, routeID)
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
			ID:         e.ID,
			FromStepID: e.FromNodeID,
			ToStepID:   e.ToNodeID,
			Relation:   flow.Relation(e.Relation),
		})
	}
	return flow.NewGraph(routeID, steps, edges), nil
}

// rawStatus maps a normalized status back to the store's vocabulary.
func rawStatus(s flow.Status) string {
	switch s {
	case flow.StatusWaiting:
		return "todo"
	case flow.StatusExecute:
		return "in_progress"
	case flow.StatusRemoved:
		return "cancelled"
	case flow.StatusDone:
		return "done"
	}
	return string(s)
}
