package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/openclaw/routekit/internal/domain/change"
	"github.com/openclaw/routekit/pkg/sdk"
)

// ChangeService is the only mutation path. Every write goes through
// propose -> dry-run -> commit/reject, and the most recent commit can
// be undone once via a compensating commit.
//
// The service tracks the lifecycle of proposals it made itself and
// refuses to re-consume them locally. Change sets proposed elsewhere
// pass through untracked; the store is authoritative either way.
type ChangeService struct {
	client *sdk.Client
	logger *slog.Logger

	mu            sync.Mutex
	proposals     map[string]*change.Lifecycle
	lastCommitted string
}

func NewChangeService(client *sdk.Client, logger *slog.Logger) *ChangeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeService{
		client:    client,
		logger:    logger,
		proposals: make(map[string]*change.Lifecycle),
	}
}

// Propose validates each action locally and submits the batch for a
// dry-run. Nothing is applied; the returned change set carries the
// server-computed diff and summary.
func (s *ChangeService) Propose(ctx context.Context, actions []sdk.Action, actor sdk.Actor) (*sdk.ChangeSet, error) {
	if len(actions) == 0 {
		return nil, change.ErrNoActions
	}
	for _, a := range actions {
		if err := change.ValidateAction(a.Type, a.Payload); err != nil {
			return nil, err
		}
	}

	cs, err := s.client.ProposeChanges(ctx, actions, actor, "")
	if err != nil {
		return nil, err
	}

	lifecycle, err := change.NewLifecycle(change.StatusProposed, cs.ChangeSetID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.proposals[cs.ChangeSetID] = lifecycle
	s.mu.Unlock()

	s.logger.Info("change set proposed",
		"change_set_id", cs.ChangeSetID, "actions", len(actions), "summary", cs.Summary)
	return cs, nil
}

// Commit applies a proposed change set. The generated client request id
// makes a network-level replay of this commit idempotent at the store.
// The tracked lifecycle is consumed only after the store accepts: a
// commit that fails in flight leaves the proposal retryable.
func (s *ChangeService) Commit(ctx context.Context, changeSetID string, approvedBy sdk.Actor) (*sdk.Commit, error) {
	lifecycle := s.lifecycle(changeSetID)
	if lifecycle != nil {
		if err := lifecycle.Can(change.EventApprove); err != nil {
			return nil, err
		}
	}

	commit, err := s.client.CommitChanges(ctx, changeSetID, approvedBy, uuid.New().String())
	if err != nil {
		return nil, err
	}
	if lifecycle != nil {
		if err := lifecycle.Fire(change.EventApprove); err != nil {
			// A concurrent caller consumed it first; the store's
			// idempotency token already de-duplicated the commit.
			s.logger.Debug("change set already consumed locally", "change_set_id", changeSetID)
		}
	}
	s.mu.Lock()
	s.lastCommitted = changeSetID
	s.mu.Unlock()

	s.logger.Info("change set committed",
		"change_set_id", changeSetID, "commit_id", commit.CommitID)
	return commit, nil
}

// Reject discards a proposed, uncommitted change set. As with Commit,
// the tracked lifecycle moves only after the store accepts.
func (s *ChangeService) Reject(ctx context.Context, changeSetID string) error {
	lifecycle := s.lifecycle(changeSetID)
	if lifecycle != nil {
		if err := lifecycle.Can(change.EventReject); err != nil {
			return err
		}
	}

	if err := s.client.RejectChanges(ctx, changeSetID); err != nil {
		return err
	}
	if lifecycle != nil {
		if err := lifecycle.Fire(change.EventReject); err != nil {
			s.logger.Debug("change set already consumed locally", "change_set_id", changeSetID)
		}
	}
	s.logger.Info("change set rejected", "change_set_id", changeSetID)
	return nil
}

// UndoLast reverts the most recent commit with a new compensating
// commit. The reason is mandatory and kept for audit.
func (s *ChangeService) UndoLast(ctx context.Context, requestedBy sdk.Actor, reason string) (*sdk.UndoResult, error) {
	result, err := s.client.UndoLastCommit(ctx, requestedBy, reason, uuid.New().String())
	if err != nil {
		return nil, err
	}

	// Best effort: a commit from another client may be newer, but of
	// the change sets tracked here only the most recent commit can be
	// the one the store reverted.
	s.mu.Lock()
	if lc, ok := s.proposals[s.lastCommitted]; ok && lc.Current() == change.StatusCommitted {
		if err := lc.Fire(change.EventUndo); err == nil {
			s.logger.Debug("marked tracked change set reverted", "change_set_id", s.lastCommitted)
		}
	}
	s.lastCommitted = ""
	s.mu.Unlock()

	s.logger.Info("last commit undone",
		"undone_commit_id", result.UndoneCommitID, "revert_commit_id", result.RevertCommitID)
	return result, nil
}

// Status reports the tracked lifecycle status of a change set proposed
// through this service, or false if it is untracked.
func (s *ChangeService) Status(changeSetID string) (string, bool) {
	lifecycle := s.lifecycle(changeSetID)
	if lifecycle == nil {
		return "", false
	}
	return lifecycle.Current(), true
}

func (s *ChangeService) lifecycle(changeSetID string) *change.Lifecycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proposals[changeSetID]
}
