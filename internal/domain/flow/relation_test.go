package flow

import (
	"errors"
	"testing"
)

func TestInferRelation(t *testing.T) {
	cases := []struct {
		name        string
		predecessor Kind
		next        Kind
		want        Relation
		wantErr     error
	}{
		{"idea refines idea", KindIdea, KindIdea, RelationRefine, nil},
		{"idea initiates goal", KindIdea, KindGoal, RelationInitiate, nil},
		{"goal after goal rejected", KindGoal, KindGoal, "", ErrGoalChain},
		{"goal hands off to idea", KindGoal, KindIdea, RelationHandoff, nil},
		{"start behaves as idea", KindStart, KindGoal, RelationInitiate, nil},
		{"start refines idea", KindStart, KindIdea, RelationRefine, nil},
		{"other pairs default to handoff", KindIdea, KindTask, RelationHandoff, nil},
		{"empty predecessor", "", KindIdea, "", ErrNoPredecessor},
		{"unknown predecessor", Kind("sparkle"), KindIdea, "", ErrNoPredecessor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := InferRelation(tc.predecessor, tc.next)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("relation = %q, want %q", got, tc.want)
			}
		})
	}
}
