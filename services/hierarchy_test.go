package services

import (
	"errors"
	"testing"

	"github.com/ELEVATE-Project/project-service-sub000/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func categoryAt(parent *models.Category) models.Category {
	c := models.Category{ID: primitive.NewObjectID()}
	c.ApplyHierarchy(childHierarchy(parent, c.ID))
	return c
}

func TestComputeForNewChild(t *testing.T) {
	calc := NewHierarchyCalculator(2)

	t.Run("root", func(t *testing.T) {
		id := primitive.NewObjectID()
		h, err := calc.ComputeForNewChild(nil, id)
		require.NoError(t, err)
		assert.Nil(t, h.ParentID)
		assert.Equal(t, 0, h.Level)
		assert.Equal(t, id.Hex(), h.Path)
		assert.Equal(t, []primitive.ObjectID{id}, h.PathArray)
	})

	t.Run("child extends parent", func(t *testing.T) {
		root := categoryAt(nil)
		id := primitive.NewObjectID()
		h, err := calc.ComputeForNewChild(&root, id)
		require.NoError(t, err)
		require.NotNil(t, h.ParentID)
		assert.Equal(t, root.ID, *h.ParentID)
		assert.Equal(t, 1, h.Level)
		assert.Equal(t, root.ID.Hex()+"/"+id.Hex(), h.Path)
		assert.Equal(t, []primitive.ObjectID{root.ID, id}, h.PathArray)
	})

	t.Run("parent at max depth", func(t *testing.T) {
		root := categoryAt(nil)
		child := categoryAt(&root)
		grandchild := categoryAt(&child)

		_, err := calc.ComputeForNewChild(&grandchild, primitive.NewObjectID())
		assert.True(t, errors.Is(err, ErrMaxDepthExceeded))
	})

	t.Run("does not alias the parent path array", func(t *testing.T) {
		root := categoryAt(nil)
		h, err := calc.ComputeForNewChild(&root, primitive.NewObjectID())
		require.NoError(t, err)
		h.PathArray[0] = primitive.NewObjectID()
		assert.Equal(t, root.ID, root.PathArray[0])
	})
}

func TestComputeForMoveAndRewrite(t *testing.T) {
	calc := NewHierarchyCalculator(5)

	a := categoryAt(nil)
	b := categoryAt(&a)
	c := categoryAt(&b)
	d := categoryAt(&c)

	move, err := calc.ComputeForMove(b, nil)
	require.NoError(t, err)
	assert.Equal(t, -1, move.LevelDiff)
	assert.Equal(t, b.ID.Hex(), move.Fields.Path)

	rewritten := calc.RewriteDescendant(d, move)
	assert.Equal(t, 2, rewritten.Level)
	assert.Equal(t, b.ID.Hex()+"/"+c.ID.Hex()+"/"+d.ID.Hex(), rewritten.Path)
	assert.Equal(t, []primitive.ObjectID{b.ID, c.ID, d.ID}, rewritten.PathArray)
	assert.Equal(t, c.ID, *rewritten.ParentID)

	// direct children keep the moved node as parent
	direct := calc.RewriteDescendant(c, move)
	assert.Equal(t, 1, direct.Level)
	assert.Equal(t, []primitive.ObjectID{b.ID, c.ID}, direct.PathArray)
	assert.Equal(t, b.ID, *direct.ParentID)
}

func TestValidateSubtreeDepth(t *testing.T) {
	calc := NewHierarchyCalculator(3)

	a := categoryAt(nil)
	b := categoryAt(nil)
	b1 := categoryAt(&b)
	b2 := categoryAt(&b1)
	b3 := categoryAt(&b2)

	// b's subtree is three levels deep; under a it would reach level 4
	move, err := calc.ComputeForMove(b, &a)
	require.NoError(t, err)
	err = calc.ValidateSubtreeDepth(move, []models.Category{b1, b2, b3})
	assert.True(t, errors.Is(err, ErrMaxDepthExceeded))

	move, err = calc.ComputeForMove(b1, &a)
	require.NoError(t, err)
	assert.NoError(t, calc.ValidateSubtreeDepth(move, []models.Category{b2, b3}))
}

func TestCycleGuard(t *testing.T) {
	var guard CycleGuard
	node := primitive.NewObjectID()
	descendant := primitive.NewObjectID()
	stranger := primitive.NewObjectID()
	descendants := idSet(descendant)

	assert.NoError(t, guard.AssertLegalMove(node, nil, descendants))
	assert.NoError(t, guard.AssertLegalMove(node, &stranger, descendants))
	assert.True(t, errors.Is(guard.AssertLegalMove(node, &node, descendants), ErrCircularReference))
	assert.True(t, errors.Is(guard.AssertLegalMove(node, &descendant, descendants), ErrCircularReference))
}

func TestErrorKinds(t *testing.T) {
	err := newError(KindDuplicateName, "name %q taken", "Health")

	assert.True(t, errors.Is(err, ErrDuplicateName))
	assert.False(t, errors.Is(err, ErrDuplicateExternalID))
	assert.Equal(t, KindDuplicateName, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Contains(t, err.Error(), "Health")

	cause := errors.New("connection reset")
	wrapped := newInternalError("failed to load", cause)
	assert.True(t, errors.Is(wrapped, cause))
	assert.True(t, errors.Is(wrapped, ErrInternal))
}
