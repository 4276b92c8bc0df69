package services

import (
	"strings"

	"github.com/ELEVATE-Project/project-service-sub000/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HierarchyCalculator derives materialised-path fields from a parent's stored fields.
// It never walks the ancestor chain.
type HierarchyCalculator struct {
	maxDepth int
}

func NewHierarchyCalculator(maxDepth int) *HierarchyCalculator {
	return &HierarchyCalculator{maxDepth: maxDepth}
}

// MoveComputation describes where a node lands and how far its subtree shifts.
type MoveComputation struct {
	NodeID       primitive.ObjectID
	Fields       models.HierarchyFields
	LevelDiff    int
	OldLevel     int
	OldPath      string
	OldPathArray []primitive.ObjectID
}

func (h *HierarchyCalculator) ComputeForNewChild(parent *models.Category, childID primitive.ObjectID) (models.HierarchyFields, error) {
	if parent != nil && parent.Level >= h.maxDepth {
		return models.HierarchyFields{}, newError(KindMaxDepthExceeded,
			"maximum hierarchy depth of %d reached under %q", h.maxDepth, parent.Name)
	}
	return childHierarchy(parent, childID), nil
}

func (h *HierarchyCalculator) ComputeForMove(node models.Category, newParent *models.Category) (MoveComputation, error) {
	fields, err := h.ComputeForNewChild(newParent, node.ID)
	if err != nil {
		return MoveComputation{}, err
	}
	return MoveComputation{
		NodeID:       node.ID,
		Fields:       fields,
		LevelDiff:    fields.Level - node.Level,
		OldLevel:     node.Level,
		OldPath:      node.Path,
		OldPathArray: append([]primitive.ObjectID(nil), node.PathArray...),
	}, nil
}

// ValidateSubtreeDepth fails when any descendant would sit deeper than the maximum after the move.
func (h *HierarchyCalculator) ValidateSubtreeDepth(move MoveComputation, descendants []models.Category) error {
	deepest := move.OldLevel
	for _, d := range descendants {
		if d.Level > deepest {
			deepest = d.Level
		}
	}
	if deepest+move.LevelDiff > h.maxDepth {
		return newError(KindMaxDepthExceeded,
			"moving this category would place descendants at level %d, maximum is %d", deepest+move.LevelDiff, h.maxDepth)
	}
	return nil
}

// RewriteDescendant re-derives d's hierarchy from its old values and the node's transition.
// The result depends only on stored state, so applying it twice is harmless.
func (h *HierarchyCalculator) RewriteDescendant(d models.Category, move MoveComputation) models.HierarchyFields {
	suffix := strings.TrimPrefix(d.Path, move.OldPath)

	tail := []primitive.ObjectID{}
	if move.OldLevel+1 <= len(d.PathArray) {
		tail = d.PathArray[move.OldLevel+1:]
	}
	pathArray := make([]primitive.ObjectID, 0, len(move.Fields.PathArray)+len(tail))
	pathArray = append(pathArray, move.Fields.PathArray...)
	pathArray = append(pathArray, tail...)

	return models.HierarchyFields{
		ParentID:  d.ParentID,
		Level:     d.Level + move.LevelDiff,
		Path:      move.Fields.Path + suffix,
		PathArray: pathArray,
	}
}

func childHierarchy(parent *models.Category, childID primitive.ObjectID) models.HierarchyFields {
	if parent == nil {
		return models.HierarchyFields{
			Level:     0,
			Path:      childID.Hex(),
			PathArray: []primitive.ObjectID{childID},
		}
	}

	parentID := parent.ID
	pathArray := make([]primitive.ObjectID, 0, len(parent.PathArray)+1)
	pathArray = append(pathArray, parent.PathArray...)
	pathArray = append(pathArray, childID)

	return models.HierarchyFields{
		ParentID:  &parentID,
		Level:     parent.Level + 1,
		Path:      parent.Path + models.PathSeparator + childID.Hex(),
		PathArray: pathArray,
	}
}

func sameHierarchy(a, b models.HierarchyFields) bool {
	if a.Level != b.Level || a.Path != b.Path || len(a.PathArray) != len(b.PathArray) {
		return false
	}
	if (a.ParentID == nil) != (b.ParentID == nil) {
		return false
	}
	if a.ParentID != nil && *a.ParentID != *b.ParentID {
		return false
	}
	for i := range a.PathArray {
		if a.PathArray[i] != b.PathArray[i] {
			return false
		}
	}
	return true
}
