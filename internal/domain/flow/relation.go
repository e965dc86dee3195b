package flow

// InferRelation decides which relation connects a new step to its chosen
// predecessor, based on the two kinds. A start predecessor behaves as an
// idea. Chaining a goal directly onto another goal is a business-rule
// violation and is rejected rather than defaulted.
func InferRelation(predecessor, next Kind) (Relation, error) {
	if predecessor == "" || !predecessor.Valid() {
		return "", ErrNoPredecessor
	}
	pred := predecessor
	if pred == KindStart {
		pred = KindIdea
	}
	switch {
	case pred == KindIdea && next == KindIdea:
		return RelationRefine, nil
	case pred == KindIdea && next == KindGoal:
		return RelationInitiate, nil
	case pred == KindGoal && next == KindGoal:
		return "", ErrGoalChain
	case pred == KindGoal && next == KindIdea:
		return RelationHandoff, nil
	}
	return RelationHandoff, nil
}
