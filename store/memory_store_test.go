package store

import (
	"context"
	"testing"

	"github.com/ELEVATE-Project/project-service-sub000/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testTenant = "tenant-1"

func seedCategory(t *testing.T, s *MemoryCategoryStore, name string, parent *models.Category, seq int) *models.Category {
	t.Helper()
	c := &models.Category{
		ID:             primitive.NewObjectID(),
		TenantID:       testTenant,
		ExternalID:     name,
		Name:           name,
		Status:         models.CategoryStatusActive,
		SequenceNumber: seq,
	}
	if parent == nil {
		c.Path = c.ID.Hex()
		c.PathArray = []primitive.ObjectID{c.ID}
	} else {
		parentID := parent.ID
		c.ParentID = &parentID
		c.Level = parent.Level + 1
		c.Path = parent.Path + models.PathSeparator + c.ID.Hex()
		c.PathArray = append(append([]primitive.ObjectID{}, parent.PathArray...), c.ID)
	}
	require.NoError(t, s.Insert(context.Background(), c))
	if parent != nil {
		require.NoError(t, s.AttachChild(context.Background(), testTenant, parent.ID, c.ID))
	}
	return c
}

func TestMemoryCategoryStore_InsertRejectsDuplicateExternalID(t *testing.T) {
	s := NewMemoryCategoryStore()
	ctx := context.Background()

	first := &models.Category{TenantID: testTenant, ExternalID: "ENV", Name: "Environment"}
	require.NoError(t, s.Insert(ctx, first))
	assert.False(t, first.ID.IsZero())

	dup := &models.Category{TenantID: testTenant, ExternalID: "ENV", Name: "Other"}
	assert.ErrorIs(t, s.Insert(ctx, dup), ErrDuplicateKey)

	otherTenant := &models.Category{TenantID: "tenant-2", ExternalID: "ENV", Name: "Environment"}
	assert.NoError(t, s.Insert(ctx, otherTenant))

	// a soft-deleted category releases its externalId
	require.NoError(t, s.SoftDelete(ctx, testTenant, first.ID))
	assert.NoError(t, s.Insert(ctx, &models.Category{TenantID: testTenant, ExternalID: "ENV", Name: "Again"}))
}

func TestMemoryCategoryStore_FindFilters(t *testing.T) {
	s := NewMemoryCategoryStore()
	ctx := context.Background()

	root := seedCategory(t, s, "Health", nil, 2)
	child := seedCategory(t, s, "Nutrition", root, 1)
	grandchild := seedCategory(t, s, "Diet", child, 1)
	other := seedCategory(t, s, "Education", nil, 1)

	t.Run("roots sorted by sequence", func(t *testing.T) {
		found, err := s.Find(ctx, CategoryQuery{TenantID: testTenant, RootsOnly: true}, nil)
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, other.ID, found[0].ID)
		assert.Equal(t, root.ID, found[1].ID)
	})

	t.Run("name match is case-insensitive", func(t *testing.T) {
		found, err := s.FindOne(ctx, CategoryQuery{TenantID: testTenant, Name: "nUTRITION"})
		require.NoError(t, err)
		assert.Equal(t, child.ID, found.ID)
	})

	t.Run("descendants exclude self", func(t *testing.T) {
		found, err := s.FindDescendants(ctx, testTenant, root.ID)
		require.NoError(t, err)
		require.Len(t, found, 2)
		ids := []primitive.ObjectID{found[0].ID, found[1].ID}
		assert.ElementsMatch(t, []primitive.ObjectID{child.ID, grandchild.ID}, ids)
	})

	t.Run("leaves only", func(t *testing.T) {
		count, err := s.Count(ctx, CategoryQuery{TenantID: testTenant, LeavesOnly: true})
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)
	})

	t.Run("search text and pagination", func(t *testing.T) {
		found, err := s.Find(ctx, CategoryQuery{TenantID: testTenant, SearchText: "t"}, &Page{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("unknown tenant sees nothing", func(t *testing.T) {
		_, err := s.FindByID(ctx, "tenant-x", root.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryCategoryStore_ChildCountersAreIdempotent(t *testing.T) {
	s := NewMemoryCategoryStore()
	ctx := context.Background()

	parent := seedCategory(t, s, "Parent", nil, 0)
	child := seedCategory(t, s, "Child", parent, 0)

	require.NoError(t, s.AttachChild(ctx, testTenant, parent.ID, child.ID))
	got, err := s.FindByID(ctx, testTenant, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ChildCount)
	assert.True(t, got.HasChildren)

	require.NoError(t, s.DetachChild(ctx, testTenant, parent.ID, child.ID))
	require.NoError(t, s.DetachChild(ctx, testTenant, parent.ID, child.ID))
	got, err = s.FindByID(ctx, testTenant, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ChildCount)
	assert.False(t, got.HasChildren)
	assert.Empty(t, got.Children)
}

func TestMemoryCategoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryCategoryStore()
	ctx := context.Background()
	root := seedCategory(t, s, "Root", nil, 0)

	got, err := s.FindByID(ctx, testTenant, root.ID)
	require.NoError(t, err)
	got.PathArray[0] = primitive.NewObjectID()
	got.Name = "mutated"

	again, err := s.FindByID(ctx, testTenant, root.ID)
	require.NoError(t, err)
	assert.Equal(t, root.ID, again.PathArray[0])
	assert.Equal(t, "Root", again.Name)
}

func TestMemoryTemplateStore(t *testing.T) {
	ctx := context.Background()
	catA := primitive.NewObjectID()
	catB := primitive.NewObjectID()

	s := NewMemoryTemplateStore()
	for i, title := range []string{"t1", "t2", "t3", "t4", "t5", "t6"} {
		s.Add(models.ProjectTemplate{
			TenantID:   testTenant,
			Title:      title,
			Status:     models.TemplateStatusPublished,
			IsReusable: i%2 == 0 || i > 2,
			Categories: []models.CategorySummary{{ID: catA, Name: "A"}},
		})
	}
	s.Add(models.ProjectTemplate{
		TenantID:   testTenant,
		Title:      "draft",
		Status:     models.TemplateStatusDraft,
		Categories: []models.CategorySummary{{ID: catB, Name: "B"}},
	})

	t.Run("breakdown counts reusable published templates only", func(t *testing.T) {
		refs, err := s.ProjectBreakdown(ctx, testTenant, []primitive.ObjectID{catA, catB})
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, catA, refs[0].CategoryID)
		assert.Equal(t, 5, refs[0].ProjectCount)
		assert.Len(t, refs[0].SampleTitles, MaxSampleTitles)
	})

	t.Run("referencing includes drafts", func(t *testing.T) {
		refs, err := s.FindReferencing(ctx, testTenant, []primitive.ObjectID{catB})
		require.NoError(t, err)
		require.Len(t, refs, 1)
		assert.Equal(t, "draft", refs[0].Title)
	})

	t.Run("remove category pulls it from every template", func(t *testing.T) {
		modified, err := s.RemoveCategory(ctx, testTenant, catA)
		require.NoError(t, err)
		assert.EqualValues(t, 6, modified)

		refs, err := s.FindReferencing(ctx, testTenant, []primitive.ObjectID{catA})
		require.NoError(t, err)
		assert.Empty(t, refs)
	})
}

func TestMemoryCategoryStore_Tenants(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCategoryStore()
	seedCategory(t, s, "A", nil, 0)
	gone := seedCategory(t, s, "B", nil, 0)
	require.NoError(t, s.Insert(ctx, &models.Category{ID: primitive.NewObjectID(), TenantID: "tenant-0", ExternalID: "X", Name: "X"}))
	require.NoError(t, s.Insert(ctx, &models.Category{ID: primitive.NewObjectID(), TenantID: "tenant-9", ExternalID: "Y", Name: "Y", IsDeleted: true}))
	require.NoError(t, s.SoftDelete(ctx, testTenant, gone.ID))

	tenants, err := s.Tenants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"tenant-0", testTenant}, tenants)
}

func TestMemoryCategoryStore_UniqueSiblingNames(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCategoryStore()
	require.NoError(t, s.EnsureIndexes(ctx, true))

	root := seedCategory(t, s, "Water", nil, 0)
	other := seedCategory(t, s, "Air", nil, 0)
	seedCategory(t, s, "Rivers", root, 0)
	lakes := seedCategory(t, s, "Lakes", other, 0)

	err := s.Insert(ctx, &models.Category{TenantID: testTenant, ExternalID: "W2", Name: "WATER"})
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.NoError(t, s.Insert(ctx, &models.Category{TenantID: "tenant-2", ExternalID: "W2", Name: "Water"}))

	rename := "rivers"
	moved := lakes.ID
	assert.NoError(t, s.UpdateFields(ctx, testTenant, moved, models.CategoryPatch{Name: &rename}))

	// re-parenting "rivers" next to "Rivers" collides
	rootID := root.ID
	err = s.SetHierarchy(ctx, testTenant, moved, models.HierarchyFields{
		ParentID:  &rootID,
		Level:     1,
		Path:      root.Path + models.PathSeparator + moved.Hex(),
		PathArray: []primitive.ObjectID{root.ID, moved},
	})
	assert.ErrorIs(t, err, ErrDuplicateName)

	got, err := s.FindByID(ctx, testTenant, moved)
	require.NoError(t, err)
	assert.Equal(t, other.ID, *got.ParentID, "a rejected write leaves the document unchanged")

	rename = "AIR"
	assert.ErrorIs(t, s.UpdateFields(ctx, testTenant, root.ID, models.CategoryPatch{Name: &rename}), ErrDuplicateName)

	require.NoError(t, s.EnsureIndexes(ctx, false))
	assert.NoError(t, s.UpdateFields(ctx, testTenant, root.ID, models.CategoryPatch{Name: &rename}))
}
