package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/ELEVATE-Project/project-service-sub000/models"
	"github.com/ELEVATE-Project/project-service-sub000/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testTenant = "tenant-1"

var testUser = models.UserContext{
	UserID:   "user-1",
	TenantID: testTenant,
	OrgID:    "org-1",
	Roles:    []string{"admin"},
}

type recordingNotifier struct {
	mu      sync.Mutex
	changed []models.Category
}

func (r *recordingNotifier) CategoriesChanged(_ string, categories ...models.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, categories...)
}

func (r *recordingNotifier) ids() []primitive.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]primitive.ObjectID, 0, len(r.changed))
	for _, c := range r.changed {
		ids = append(ids, c.ID)
	}
	return ids
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = nil
}

type fixture struct {
	categories *store.MemoryCategoryStore
	templates  *store.MemoryTemplateStore
	notifier   *recordingNotifier
	service    *CategoryService
	queries    *CategoryQueryService
}

func newFixture(t *testing.T, maxDepth int, allowDuplicateNames bool) *fixture {
	t.Helper()
	f := &fixture{
		categories: store.NewMemoryCategoryStore(),
		templates:  store.NewMemoryTemplateStore(),
		notifier:   &recordingNotifier{},
	}
	require.NoError(t, f.categories.EnsureIndexes(context.Background(), !allowDuplicateNames))
	f.service = NewCategoryService(
		f.categories,
		f.templates,
		NewHierarchyCalculator(maxDepth),
		f.notifier,
		CategoryServiceConfig{MaxNameLength: 100, AllowDuplicateNames: allowDuplicateNames},
		zap.NewNop(),
		nil,
	)
	f.queries = NewCategoryQueryService(f.categories, 20, 100, nil)
	return f
}

func (f *fixture) create(t *testing.T, name string, parent *models.Category) *models.Category {
	t.Helper()
	input := CreateCategoryInput{ExternalID: strings.ToUpper(name), Name: name}
	if parent != nil {
		input.ParentID = parent.ID.Hex()
	}
	c, err := f.service.Create(context.Background(), testUser, input)
	require.NoError(t, err)
	return c
}

func (f *fixture) get(t *testing.T, id primitive.ObjectID) *models.Category {
	t.Helper()
	c, err := f.categories.FindByID(context.Background(), testTenant, id)
	require.NoError(t, err)
	return c
}

func (f *fixture) referenceFromTemplate(title string, reusable bool, status string, categories ...*models.Category) models.ProjectTemplate {
	summaries := make([]models.CategorySummary, 0, len(categories))
	for _, c := range categories {
		summaries = append(summaries, c.Summary())
	}
	template := models.ProjectTemplate{
		ID:         primitive.NewObjectID(),
		TenantID:   testTenant,
		Title:      title,
		Status:     status,
		IsReusable: reusable,
		Categories: summaries,
	}
	f.templates.Add(template)
	return template
}

// assertTreeInvariants checks every structural invariant over all live categories.
func assertTreeInvariants(t *testing.T, s store.CategoryStore) {
	t.Helper()
	all, err := s.Find(context.Background(), store.CategoryQuery{TenantID: testTenant}, nil)
	require.NoError(t, err)

	byID := map[primitive.ObjectID]models.Category{}
	liveChildren := map[primitive.ObjectID]int{}
	for _, c := range all {
		byID[c.ID] = c
		if c.ParentID != nil {
			liveChildren[*c.ParentID]++
		}
	}

	for _, c := range all {
		require.Len(t, c.PathArray, c.Level+1, "level and pathArray disagree for %s", c.Name)
		assert.Equal(t, c.ID, c.PathArray[c.Level], "pathArray must end with self for %s", c.Name)
		assert.True(t, strings.HasSuffix(c.Path, c.ID.Hex()), "path must end with self for %s", c.Name)

		if c.ParentID == nil {
			assert.Equal(t, 0, c.Level, "root %s must be level 0", c.Name)
		} else {
			parent, ok := byID[*c.ParentID]
			require.True(t, ok, "parent of %s must be live", c.Name)
			assert.Equal(t, *c.ParentID, c.PathArray[c.Level-1])
			assert.True(t, strings.HasPrefix(c.Path, parent.Path+models.PathSeparator), "path of %s must extend its parent", c.Name)
		}

		assert.Equal(t, liveChildren[c.ID], c.ChildCount, "childCount of %s", c.Name)
		assert.Equal(t, liveChildren[c.ID] > 0, c.HasChildren, "hasChildren of %s", c.Name)
		assert.Len(t, c.Children, c.ChildCount, "children of %s", c.Name)
	}
}
