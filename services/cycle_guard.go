package services

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CycleGuard rejects moves that would make a node its own ancestor.
type CycleGuard struct{}

// AssertLegalMove fails when the candidate parent is the node itself or lies in its subtree.
// A nil candidate (move to root) is always legal.
func (CycleGuard) AssertLegalMove(nodeID primitive.ObjectID, candidateParentID *primitive.ObjectID, descendantIDs map[primitive.ObjectID]struct{}) error {
	if candidateParentID == nil {
		return nil
	}
	if *candidateParentID == nodeID {
		return newError(KindCircularReference, "a category cannot be its own parent")
	}
	if _, ok := descendantIDs[*candidateParentID]; ok {
		return newError(KindCircularReference, "cannot move a category into its own subtree")
	}
	return nil
}

func idSet(ids ...primitive.ObjectID) map[primitive.ObjectID]struct{} {
	set := make(map[primitive.ObjectID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
