package change

import (
	"errors"
	"testing"
)

func TestLifecycleCommitThenUndo(t *testing.T) {
	lc, err := NewLifecycle(StatusProposed, "cs-1")
	if err != nil {
		t.Fatalf("NewLifecycle: %v", err)
	}

	if err := lc.Fire(EventApprove); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := lc.Current(); got != StatusCommitted {
		t.Fatalf("status = %q, want committed", got)
	}
	if err := lc.Fire(EventUndo); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := lc.Current(); got != StatusReverted {
		t.Fatalf("status = %q, want reverted", got)
	}
}

func TestLifecycleConsumedExactlyOnce(t *testing.T) {
	lc, err := NewLifecycle(StatusProposed, "cs-1")
	if err != nil {
		t.Fatalf("NewLifecycle: %v", err)
	}
	if err := lc.Fire(EventReject); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// A rejected change set can never be approved afterwards.
	err = lc.Fire(EventApprove)
	var lifecycleErr *LifecycleError
	if !errors.As(err, &lifecycleErr) {
		t.Fatalf("approve after reject = %v, want *LifecycleError", err)
	}
	if lifecycleErr.Status != StatusRejected {
		t.Errorf("error status = %q, want rejected", lifecycleErr.Status)
	}
}

func TestLifecycleCanDoesNotConsume(t *testing.T) {
	lc, err := NewLifecycle(StatusProposed, "cs-1")
	if err != nil {
		t.Fatalf("NewLifecycle: %v", err)
	}

	if err := lc.Can(EventApprove); err != nil {
		t.Fatalf("Can(approve) = %v, want nil", err)
	}
	if got := lc.Current(); got != StatusProposed {
		t.Fatalf("status after Can = %q, want proposed (not consumed)", got)
	}

	var lifecycleErr *LifecycleError
	if err := lc.Can(EventUndo); !errors.As(err, &lifecycleErr) {
		t.Fatalf("Can(undo) = %v, want *LifecycleError", err)
	}

	// The real approve still goes through afterwards.
	if err := lc.Fire(EventApprove); err != nil {
		t.Fatalf("approve after Can: %v", err)
	}
}

func TestLifecycleNoDirectUndoFromProposed(t *testing.T) {
	lc, err := NewLifecycle(StatusProposed, "cs-1")
	if err != nil {
		t.Fatalf("NewLifecycle: %v", err)
	}
	if err := lc.Fire(EventUndo); err == nil {
		t.Error("undo on a proposed change set should fail")
	}
}
