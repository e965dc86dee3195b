package application

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/openclaw/routekit/pkg/sdk"
)

// ErrTaskNotFound indicates no task matched the resolver's query.
var ErrTaskNotFound = errors.New("application: no task matches the query")

// resolverPageSize bounds the recall step. The store filter already
// narrows by full-text match; this page only has to hold the plausible
// title collisions.
const resolverPageSize = 50

// Resolution is the outcome of resolving a task reference. Ambiguity is
// a result, not an error: callers get the candidates and decide.
type Resolution struct {
	Task                *sdk.Task
	NeedsDisambiguation bool
	Candidates          []sdk.Task
}

// ResolverService resolves tasks by id or free-text title.
type ResolverService struct {
	client *sdk.Client
	logger *slog.Logger
}

func NewResolverService(client *sdk.Client, logger *slog.Logger) *ResolverService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolverService{client: client, logger: logger}
}

// NormalizeTitle lowercases, keeps letters and digits (including CJK
// ideographs, which are letters to unicode), maps everything else to a
// space, and collapses runs of whitespace.
func NormalizeTitle(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isOpenStatus(status string) bool {
	return status == "todo" || status == "in_progress"
}

// ResolveByID fetches a task by its identifier. An explicit id bypasses
// the matching algorithm entirely.
func (s *ResolverService) ResolveByID(ctx context.Context, taskID string) (*Resolution, error) {
	list, err := s.client.ListTasks(ctx, sdk.ListTasksParams{Query: taskID, PageSize: resolverPageSize})
	if err != nil {
		return nil, err
	}
	for i := range list.Items {
		if list.Items[i].ID == taskID {
			return &Resolution{Task: &list.Items[i]}, nil
		}
	}
	return nil, ErrTaskNotFound
}

// Resolve resolves a free-text task reference. The store's full-text
// filter is a superset recall step; exact matching happens here on
// normalized titles. Multiple distinct matches resolve only when
// exactly one of them is still open; otherwise the caller gets a
// disambiguation result with candidates ordered most recently updated
// first.
func (s *ResolverService) Resolve(ctx context.Context, query string) (*Resolution, error) {
	list, err := s.client.ListTasks(ctx, sdk.ListTasksParams{Query: query, PageSize: resolverPageSize})
	if err != nil {
		return nil, err
	}

	want := NormalizeTitle(query)
	var matches []sdk.Task
	for _, t := range list.Items {
		if NormalizeTitle(t.Title) == want {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return nil, ErrTaskNotFound
	case 1:
		return &Resolution{Task: &matches[0]}, nil
	}

	var open []sdk.Task
	for _, t := range matches {
		if isOpenStatus(t.Status) {
			open = append(open, t)
		}
	}
	if len(open) == 1 {
		s.logger.Debug("resolved title collision by open status",
			"query", query, "task_id", open[0].ID, "collisions", len(matches))
		return &Resolution{Task: &open[0]}, nil
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
	})
	return &Resolution{NeedsDisambiguation: true, Candidates: matches}, nil
}
