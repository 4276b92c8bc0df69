package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ELEVATE-Project/project-service-sub000/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// testDatabase returns a throwaway database. Skips if MongoDB is unavailable.
func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(2*time.Second))
	if err != nil {
		t.Skipf("skipping integration test: MongoDB not reachable: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		t.Skipf("skipping integration test: MongoDB not reachable: %v", err)
	}

	db := client.Database("category_store_test_" + primitive.NewObjectID().Hex())
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	return db
}

func TestMongoCategoryStore_Integration(t *testing.T) {
	db := testDatabase(t)
	s := NewMongoCategoryStore(db, false)
	ctx := context.Background()
	require.NoError(t, s.EnsureIndexes(ctx, true))

	root := &models.Category{TenantID: testTenant, ExternalID: "ROOT", Name: "Root", Status: models.CategoryStatusActive}
	require.NoError(t, s.Insert(ctx, root))
	require.NoError(t, s.SetHierarchy(ctx, testTenant, root.ID, models.HierarchyFields{
		Path:      root.ID.Hex(),
		PathArray: []primitive.ObjectID{root.ID},
	}))

	child := &models.Category{TenantID: testTenant, ExternalID: "CHILD", Name: "Child", Status: models.CategoryStatusActive}
	require.NoError(t, s.Insert(ctx, child))
	rootID := root.ID
	require.NoError(t, s.SetHierarchy(ctx, testTenant, child.ID, models.HierarchyFields{
		ParentID:  &rootID,
		Level:     1,
		Path:      root.ID.Hex() + models.PathSeparator + child.ID.Hex(),
		PathArray: []primitive.ObjectID{root.ID, child.ID},
	}))

	t.Run("duplicate external id", func(t *testing.T) {
		err := s.Insert(ctx, &models.Category{TenantID: testTenant, ExternalID: "ROOT", Name: "Again"})
		assert.ErrorIs(t, err, ErrDuplicateKey)
	})

	t.Run("attach child twice counts once", func(t *testing.T) {
		require.NoError(t, s.AttachChild(ctx, testTenant, root.ID, child.ID))
		require.NoError(t, s.AttachChild(ctx, testTenant, root.ID, child.ID))

		got, err := s.FindByID(ctx, testTenant, root.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.ChildCount)
		assert.True(t, got.HasChildren)
		assert.Equal(t, []primitive.ObjectID{child.ID}, got.Children)
	})

	t.Run("descendants by path array", func(t *testing.T) {
		found, err := s.FindDescendants(ctx, testTenant, root.ID)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, child.ID, found[0].ID)
	})

	t.Run("detach clears counters", func(t *testing.T) {
		require.NoError(t, s.DetachChild(ctx, testTenant, root.ID, child.ID))
		got, err := s.FindByID(ctx, testTenant, root.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.ChildCount)
		assert.False(t, got.HasChildren)
	})

	t.Run("soft delete hides the document", func(t *testing.T) {
		require.NoError(t, s.SoftDelete(ctx, testTenant, child.ID))
		_, err := s.FindByID(ctx, testTenant, child.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.SoftDelete(ctx, testTenant, child.ID), ErrNotFound)
	})

	t.Run("tenant ids are case sensitive", func(t *testing.T) {
		q := CategoryQuery{TenantID: strings.ToUpper(testTenant)}
		found, err := s.Find(ctx, q, nil)
		require.NoError(t, err)
		assert.Empty(t, found)

		count, err := s.Count(ctx, q)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("names sort ignoring case", func(t *testing.T) {
		require.NoError(t, s.Insert(ctx, &models.Category{TenantID: testTenant, ExternalID: "APPLE", Name: "apple"}))

		found, err := s.Find(ctx, CategoryQuery{TenantID: testTenant}, nil)
		require.NoError(t, err)
		names := make([]string, 0, len(found))
		for _, c := range found {
			names = append(names, c.Name)
		}
		assert.Equal(t, []string{"apple", "Root"}, names)

		count, err := s.Count(ctx, CategoryQuery{TenantID: testTenant})
		require.NoError(t, err)
		assert.EqualValues(t, len(found), count)

		paged, err := s.Find(ctx, CategoryQuery{TenantID: testTenant}, &Page{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, paged, 1)
		assert.Equal(t, "Root", paged[0].Name)
	})

	t.Run("sibling names are unique ignoring case", func(t *testing.T) {
		err := s.Insert(ctx, &models.Category{TenantID: testTenant, ExternalID: "ROOT_2", Name: "ROOT"})
		assert.ErrorIs(t, err, ErrDuplicateName)

		assert.NoError(t, s.Insert(ctx, &models.Category{TenantID: "tenant-2", ExternalID: "ROOT", Name: "Root"}))

		// the soft-deleted child released its name under root
		rootID := root.ID
		again := &models.Category{TenantID: testTenant, ExternalID: "CHILD_2", Name: "child", ParentID: &rootID}
		assert.NoError(t, s.Insert(ctx, again))
	})

	t.Run("indexes can drop the sibling constraint", func(t *testing.T) {
		require.NoError(t, s.EnsureIndexes(ctx, false))
		require.NoError(t, s.EnsureIndexes(ctx, false))
		assert.NoError(t, s.Insert(ctx, &models.Category{TenantID: testTenant, ExternalID: "ROOT_3", Name: "root"}))
	})
}
