package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/fortify/timeout"
)

// Client is a typed client for the record-store REST API.
type Client struct {
	baseURL string
	apiKey  string
	opts    options
}

// New creates a client for the store at baseURL. Base URL and API key are
// required; there is no ambient fallback.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("sdk: base URL is required")
	}
	if apiKey == "" {
		return nil, errors.New("sdk: API key is required")
	}
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		opts:    o,
	}, nil
}

// ActorID returns the default actor id for proposals made via this client.
func (c *Client) ActorID() string {
	return c.opts.actorID
}

// Tool returns the tool name reported on change proposals.
func (c *Client) Tool() string {
	return c.opts.tool
}

// DefaultActor is the agent actor used when a caller supplies none.
func (c *Client) DefaultActor() Actor {
	return Actor{Type: "agent", ID: c.opts.actorID}
}

type httpResult struct {
	status int
	body   []byte
}

// request is the single request path. Every call, read or write, goes
// through here and is retried according to pol: 429 and 500 back off
// exponentially up to their own limits, a 409 is retried once after a
// fixed delay, any other 4xx is terminal immediately.
func (c *Client) request(ctx context.Context, method, path string, payload any, params url.Values, pol RetryPolicy) ([]byte, error) {
	var body []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("sdk: marshal payload: %w", err)
		}
		body = data
	}

	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	attempts := pol.maxAttempts()
	conflictRetried := false
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		res, err := c.attempt(ctx, method, target, body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		switch {
		case res.status == http.StatusTooManyRequests || res.status == http.StatusInternalServerError:
			limit := pol.MaxRetries429
			if res.status == http.StatusInternalServerError {
				limit = pol.MaxRetries500
			}
			if attempt < limit {
				c.opts.logger.Debug("retrying request",
					"method", method, "path", path,
					"status", res.status, "attempt", attempt+1,
					"backoff", pol.delay(attempt))
				if err := sleep(ctx, pol.delay(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, c.apiError(method, path, res, attempt+1)

		case res.status == http.StatusConflict:
			if pol.RetryConflict && !conflictRetried {
				conflictRetried = true
				// The conflict retry carries its own attempt on top of
				// the 429/500 budget.
				attempts++
				lastErr = c.apiError(method, path, res, attempt+1)
				c.opts.logger.Debug("retrying conflicted request",
					"method", method, "path", path)
				if err := sleep(ctx, pol.ConflictDelay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, c.apiError(method, path, res, attempt+1)

		case res.status >= 400:
			// Any other 4xx (or an unretryable 5xx variant) is terminal.
			return nil, c.apiError(method, path, res, attempt+1)

		case res.status >= 300:
			return nil, c.apiError(method, path, res, attempt+1)
		}

		return res.body, nil
	}

	var apiErr *APIError
	if errors.As(lastErr, &apiErr) {
		return nil, lastErr
	}
	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	return nil, fmt.Errorf("sdk: %s %s failed after retries: %w", method, path, lastErr)
}

func (c *Client) apiError(method, path string, res *httpResult, attempts int) *APIError {
	return &APIError{
		StatusCode: res.status,
		Body:       string(res.body),
		Method:     method,
		Path:       path,
		Attempts:   attempts,
	}
}

// attempt performs one HTTP round trip. The timeout applies to this
// attempt alone, never to the whole retrying call.
func (c *Client) attempt(ctx context.Context, method, target string, body []byte) (*httpResult, error) {
	t := timeout.New[*httpResult](timeout.Config{DefaultTimeout: c.opts.attemptTimeout})
	return t.Execute(ctx, c.opts.attemptTimeout, func(ctx context.Context) (*httpResult, error) {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, rd)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.opts.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return &httpResult{status: resp.StatusCode, body: data}, nil
	})
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return c.request(ctx, http.MethodGet, path, nil, params, c.opts.readPolicy)
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	return c.request(ctx, http.MethodPost, path, payload, nil, c.opts.writePolicy)
}

func decode[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("sdk: unmarshal response: %w", err)
	}
	return &v, nil
}

// --- Reads ---

// ListTasks lists tasks with optional filters.
func (c *Client) ListTasks(ctx context.Context, p ListTasksParams) (*List[Task], error) {
	params := url.Values{}
	setPage(params, p.Page, p.PageSize)
	setOpt(params, "status", p.Status)
	setOpt(params, "priority", p.Priority)
	setOpt(params, "topic_id", p.TopicID)
	setOpt(params, "q", p.Query)
	data, err := c.get(ctx, "/api/v1/tasks", params)
	if err != nil {
		return nil, err
	}
	return decode[List[Task]](data)
}

// ListRoutes lists routes, usually filtered by task id.
func (c *Client) ListRoutes(ctx context.Context, p ListRoutesParams) (*List[Route], error) {
	params := url.Values{}
	setPage(params, p.Page, p.PageSize)
	setOpt(params, "task_id", p.TaskID)
	setOpt(params, "status", p.Status)
	data, err := c.get(ctx, "/api/v1/routes", params)
	if err != nil {
		return nil, err
	}
	return decode[List[Route]](data)
}

// GetRouteGraph fetches the full node/edge graph of one route.
func (c *Client) GetRouteGraph(ctx context.Context, routeID string) (*RouteGraph, error) {
	data, err := c.get(ctx, "/api/v1/routes/"+url.PathEscape(routeID)+"/graph", nil)
	if err != nil {
		return nil, err
	}
	return decode[RouteGraph](data)
}

// GetNodeLogs fetches the execution logs attached to one route node.
func (c *Client) GetNodeLogs(ctx context.Context, routeID, nodeID string) (*List[EntityLog], error) {
	path := "/api/v1/routes/" + url.PathEscape(routeID) + "/nodes/" + url.PathEscape(nodeID) + "/logs"
	data, err := c.get(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	return decode[List[EntityLog]](data)
}

// ListTopics lists classification topics.
func (c *Client) ListTopics(ctx context.Context) (*List[Topic], error) {
	data, err := c.get(ctx, "/api/v1/topics", nil)
	if err != nil {
		return nil, err
	}
	return decode[List[Topic]](data)
}

// ListJournals lists journal entries.
func (c *Client) ListJournals(ctx context.Context, p ListJournalsParams) (*List[Journal], error) {
	params := url.Values{}
	setPage(params, p.Page, p.PageSize)
	setOpt(params, "date_from", p.DateFrom)
	setOpt(params, "date_to", p.DateTo)
	data, err := c.get(ctx, "/api/v1/journals", params)
	if err != nil {
		return nil, err
	}
	return decode[List[Journal]](data)
}

// GetJournal fetches one journal by date (YYYY-MM-DD).
func (c *Client) GetJournal(ctx context.Context, journalDate string) (*Journal, error) {
	data, err := c.get(ctx, "/api/v1/journals/"+url.PathEscape(journalDate), nil)
	if err != nil {
		return nil, err
	}
	return decode[Journal](data)
}

// SearchNotes searches knowledge notes.
func (c *Client) SearchNotes(ctx context.Context, p SearchNotesParams) (*List[Note], error) {
	params := url.Values{}
	setPage(params, p.Page, p.PageSize)
	setOpt(params, "q", p.Query)
	setOpt(params, "topic_id", p.TopicID)
	setOpt(params, "status", p.Status)
	data, err := c.get(ctx, "/api/v1/notes/search", params)
	if err != nil {
		return nil, err
	}
	return decode[List[Note]](data)
}

// GetContextBundle fetches the compact planning context bundle.
func (c *Client) GetContextBundle(ctx context.Context, p ContextBundleParams) (map[string]any, error) {
	params := url.Values{}
	setOpt(params, "intent", p.Intent)
	if p.WindowDays > 0 {
		params.Set("window_days", strconv.Itoa(p.WindowDays))
	}
	if p.IncludeDone {
		params.Set("include_done", "true")
	}
	for _, id := range p.TopicIDs {
		params.Add("topic_id", id)
	}
	data, err := c.get(ctx, "/api/v1/context/bundle", params)
	if err != nil {
		return nil, err
	}
	bundle := map[string]any{}
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("sdk: unmarshal response: %w", err)
	}
	return bundle, nil
}

// --- Governed changes ---

// ProposeChanges submits actions for a dry-run. The store computes the
// diff and summary; no merge logic happens on this side. The returned
// change set id is opaque and required for commit.
func (c *Client) ProposeChanges(ctx context.Context, actions []Action, actor Actor, tool string) (*ChangeSet, error) {
	if len(actions) == 0 {
		return nil, errors.New("sdk: at least one action is required")
	}
	if actor == (Actor{}) {
		actor = c.DefaultActor()
	}
	if tool == "" {
		tool = c.opts.tool
	}
	payload := map[string]any{
		"actions": actions,
		"actor":   actor,
		"tool":    tool,
	}
	data, err := c.post(ctx, "/api/v1/changes/dry-run", payload)
	if err != nil {
		return nil, err
	}
	return decode[ChangeSet](data)
}

// CommitChanges applies a previously proposed change set. The client
// request id is an idempotency token passed through verbatim; submitting
// the same id twice must not double-apply.
func (c *Client) CommitChanges(ctx context.Context, changeSetID string, approvedBy Actor, clientRequestID string) (*Commit, error) {
	if changeSetID == "" {
		return nil, ErrMissingChangeSetID
	}
	payload := map[string]any{"approved_by": approvedBy}
	if clientRequestID != "" {
		payload["client_request_id"] = clientRequestID
	}
	data, err := c.post(ctx, "/api/v1/changes/"+url.PathEscape(changeSetID)+"/commit", payload)
	if err != nil {
		return nil, err
	}
	return decode[Commit](data)
}

// RejectChanges discards a proposed, uncommitted change set.
func (c *Client) RejectChanges(ctx context.Context, changeSetID string) error {
	if changeSetID == "" {
		return ErrMissingChangeSetID
	}
	_, err := c.request(ctx, http.MethodDelete, "/api/v1/changes/"+url.PathEscape(changeSetID), nil, nil, c.opts.writePolicy)
	return err
}

// UndoLastCommit reverts the most recent commit via a new compensating
// commit. The reason is mandatory and persisted for audit.
func (c *Client) UndoLastCommit(ctx context.Context, requestedBy Actor, reason, clientRequestID string) (*UndoResult, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrMissingReason
	}
	payload := map[string]any{
		"requested_by": requestedBy,
		"reason":       reason,
	}
	if clientRequestID != "" {
		payload["client_request_id"] = clientRequestID
	}
	data, err := c.post(ctx, "/api/v1/commits/undo-last", payload)
	if err != nil {
		return nil, err
	}
	return decode[UndoResult](data)
}

// --- Generic relay ---

// Relay forwards an arbitrary store call. The path must live under
// /api/v1/ and must not smuggle a query string or an absolute URL;
// parameters are passed separately.
func (c *Client) Relay(ctx context.Context, method, path string, payload any, params url.Values) (json.RawMessage, error) {
	if strings.Contains(path, "://") {
		return nil, ErrRelayAbsoluteURL
	}
	if strings.Contains(path, "?") {
		return nil, ErrRelayQuery
	}
	if !strings.HasPrefix(path, "/api/v1/") {
		return nil, ErrRelayPath
	}
	pol := c.opts.writePolicy
	if method == http.MethodGet || method == http.MethodHead {
		pol = c.opts.readPolicy
	}
	data, err := c.request(ctx, method, path, payload, params, pol)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func setPage(params url.Values, page, pageSize int) {
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		params.Set("page_size", strconv.Itoa(pageSize))
	}
}

func setOpt(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}
