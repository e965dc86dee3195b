package change

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Change-set lifecycle statuses.
const (
	StatusProposed  = "proposed"
	StatusCommitted = "committed"
	StatusRejected  = "rejected"
	StatusReverted  = "reverted"
)

// Action types accepted by the store's dry-run endpoint.
const (
	ActionCreateTask          = "create_task"
	ActionUpdateTask          = "update_task"
	ActionCreateIdea          = "create_idea"
	ActionCreateRoute         = "create_route"
	ActionCreateRouteNode     = "create_route_node"
	ActionUpdateRouteNode     = "update_route_node"
	ActionDeleteRouteNode     = "delete_route_node"
	ActionCreateRouteEdge     = "create_route_edge"
	ActionAppendEntityLog     = "append_entity_log"
	ActionUpsertJournalAppend = "upsert_journal_append"
	ActionAppendNote          = "append_note"
	ActionPatchNote           = "patch_note"
	ActionCreateLink          = "create_link"
	ActionCaptureInbox        = "capture_inbox"
)

// ValidationError reports a malformed action payload, raised locally
// before any network call.
type ValidationError struct {
	Action string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("change: invalid %s payload: %s", e.Action, e.Detail)
}

// Per-action payload schemas. Only required-field and basic type checks
// live here; everything richer is the store's job at dry-run time.
var payloadSchemas = map[string]gojsonschema.JSONLoader{
	ActionCreateTask: gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["title", "source"],
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"source": {"type": "string", "minLength": 1},
			"status": {"type": "string"},
			"priority": {"enum": ["P0", "P1", "P2", "P3"]}
		}
	}`),
	ActionUpdateTask: gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["task_id", "source"],
		"properties": {
			"task_id": {"type": "string", "minLength": 1},
			"source": {"type": "string", "minLength": 1}
		}
	}`),
	ActionCreateIdea: gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["title"],
		"properties": {"title": {"type": "string", "minLength": 1}}
	}`),
	ActionCreateRoute: gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["task_id", "name"],
		"properties": {
			"task_id": {"type": "string", "minLength": 1},
			"name": {"type": "string", "minLength": 1},
			"status": {"enum": ["candidate", "active", "parked", "completed", "cancelled"]}
		}
	}`),
	ActionCreateRouteNode: gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["route_id", "title", "node_type"],
		"properties": {
			"route_id": {"type": "string", "minLength": 1},
			"title": {"type": "string", "minLength": 1},
			"node_type": {"type": "string", "minLength": 1}
		}
	}`),
	ActionUpdateRouteNode: gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["route_id", "node_id"],
		"properties": {
			"route_id": {"type": "string", "minLength": 1},
			"node_id": {"type": "string", "minLength": 1}
		}
	}`),
	ActionDeleteRouteNode: gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["route_id", "node_id"],
		"properties": {
			"route_id": {"type": "string", "minLength": 1},
			"node_id": {"type": "string", "minLength": 1}
		}
	}`),
	ActionCreateRouteEdge: gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["route_id", "from_node_id", "to_node_id", "relation"],
		"properties": {
			"route_id": {"type": "string", "minLength": 1},
			"from_node_id": {"type": "string", "minLength": 1},
			"to_node_id": {"type": "string", "minLength": 1},
			"relation": {"type": "string", "minLength": 1}
		}
	}`),
	ActionAppendEntityLog: gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["route_id", "entity_id", "content"],
		"properties": {
			"route_id": {"type": "string", "minLength": 1},
			"entity_id": {"type": "string", "minLength": 1},
			"content": {"type": "string", "minLength": 1}
		}
	}`),
	ActionUpsertJournalAppend: gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["journal_date", "append_text", "source"],
		"properties": {
			"journal_date": {"type": "string", "minLength": 1},
			"append_text": {"type": "string", "minLength": 1},
			"source": {"type": "string", "minLength": 1}
		}
	}`),
	ActionAppendNote: gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["title", "body", "sources"],
		"properties": {
			"title": {"type": "string", "minLength": 1},
			"body": {"type": "string", "minLength": 1},
			"sources": {"type": "array", "minItems": 1}
		}
	}`),
	ActionPatchNote: gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["note_id", "body_append", "source"],
		"properties": {
			"note_id": {"type": "string", "minLength": 1},
			"body_append": {"type": "string", "minLength": 1},
			"source": {"type": "string", "minLength": 1}
		}
	}`),
	ActionCreateLink: gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["from_type", "from_id", "to_type", "to_id"],
		"properties": {
			"from_type": {"type": "string", "minLength": 1},
			"from_id": {"type": "string", "minLength": 1},
			"to_type": {"type": "string", "minLength": 1},
			"to_id": {"type": "string", "minLength": 1}
		}
	}`),
	ActionCaptureInbox: gojsonschema.NewStringLoader(`{
		"type": "object",
		"required": ["content", "source"],
		"properties": {
			"content": {"type": "string", "minLength": 1},
			"source": {"type": "string", "minLength": 1}
		}
	}`),
}

// ValidateAction checks an action payload against its schema before the
// proposal leaves the process. Action types without a schema pass
// through; the store is the final validator either way.
func ValidateAction(actionType string, payload map[string]any) error {
	schema, ok := payloadSchemas[actionType]
	if !ok {
		return nil
	}
	doc, err := json.Marshal(payload)
	if err != nil {
		return &ValidationError{Action: actionType, Detail: err.Error()}
	}
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &ValidationError{Action: actionType, Detail: err.Error()}
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return &ValidationError{Action: actionType, Detail: strings.Join(details, "; ")}
	}
	return nil
}
