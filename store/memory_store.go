package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ELEVATE-Project/project-service-sub000/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryCategoryStore keeps categories in process. It backs STORE_DRIVER=memory and tests.
type MemoryCategoryStore struct {
	mu                 sync.RWMutex
	categories         map[primitive.ObjectID]models.Category
	uniqueSiblingNames bool
}

func NewMemoryCategoryStore() *MemoryCategoryStore {
	return &MemoryCategoryStore{categories: make(map[primitive.ObjectID]models.Category)}
}

// EnsureIndexes mirrors the Mongo store: with uniqueSiblingNames, writes that
// would give two live siblings the same name fail with ErrDuplicateName.
func (s *MemoryCategoryStore) EnsureIndexes(_ context.Context, uniqueSiblingNames bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uniqueSiblingNames = uniqueSiblingNames
	return nil
}

func (s *MemoryCategoryStore) Insert(_ context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category.ID.IsZero() {
		category.ID = primitive.NewObjectID()
	}
	if _, exists := s.categories[category.ID]; exists {
		return ErrDuplicateKey
	}
	if category.ExternalID != "" {
		for _, c := range s.categories {
			if c.TenantID == category.TenantID && !c.IsDeleted && c.ExternalID == category.ExternalID {
				return ErrDuplicateKey
			}
		}
	}
	if s.siblingNameTaken(*category) {
		return ErrDuplicateName
	}
	s.categories[category.ID] = cloneCategory(*category)
	return nil
}

func (s *MemoryCategoryStore) FindByID(ctx context.Context, tenantID string, id primitive.ObjectID) (*models.Category, error) {
	return s.FindOne(ctx, CategoryQuery{TenantID: tenantID, IDs: []primitive.ObjectID{id}})
}

func (s *MemoryCategoryStore) FindOne(ctx context.Context, q CategoryQuery) (*models.Category, error) {
	found, err := s.Find(ctx, q, &Page{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return &found[0], nil
}

func (s *MemoryCategoryStore) Find(_ context.Context, q CategoryQuery, page *Page) ([]models.Category, error) {
	s.mu.RLock()
	matched := []models.Category{}
	for _, c := range s.categories {
		if matchCategory(c, q) {
			matched = append(matched, cloneCategory(c))
		}
	}
	s.mu.RUnlock()

	// map iteration is random; sort by id first so ties resolve deterministically
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID.Hex() < matched[j].ID.Hex() })
	sortCategories(matched)

	if page != nil {
		if page.Offset > 0 {
			if page.Offset >= int64(len(matched)) {
				return []models.Category{}, nil
			}
			matched = matched[page.Offset:]
		}
		if page.Limit > 0 && page.Limit < int64(len(matched)) {
			matched = matched[:page.Limit]
		}
	}
	return matched, nil
}

func (s *MemoryCategoryStore) Count(ctx context.Context, q CategoryQuery) (int64, error) {
	found, err := s.Find(ctx, q, nil)
	if err != nil {
		return 0, err
	}
	return int64(len(found)), nil
}

func (s *MemoryCategoryStore) Tenants(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]struct{}{}
	for _, c := range s.categories {
		if !c.IsDeleted && c.TenantID != "" {
			seen[c.TenantID] = struct{}{}
		}
	}
	tenants := make([]string, 0, len(seen))
	for tenant := range seen {
		tenants = append(tenants, tenant)
	}
	sort.Strings(tenants)
	return tenants, nil
}

func (s *MemoryCategoryStore) FindDescendants(ctx context.Context, tenantID string, id primitive.ObjectID) ([]models.Category, error) {
	return s.Find(ctx, CategoryQuery{TenantID: tenantID, AncestorID: &id, ExcludeID: &id}, nil)
}

func (s *MemoryCategoryStore) UpdateFields(_ context.Context, tenantID string, id primitive.ObjectID, patch models.CategoryPatch) error {
	return s.mutate(tenantID, id, func(c *models.Category) error {
		if patch.ExternalID != nil && *patch.ExternalID != c.ExternalID {
			for _, other := range s.categories {
				if other.ID != c.ID && other.TenantID == tenantID && !other.IsDeleted && other.ExternalID == *patch.ExternalID {
					return ErrDuplicateKey
				}
			}
		}
		renamed := patch.Name != nil && !strings.EqualFold(*patch.Name, c.Name)
		patch.Apply(c)
		if renamed && s.siblingNameTaken(*c) {
			return ErrDuplicateName
		}
		return nil
	})
}

func (s *MemoryCategoryStore) SetHierarchy(_ context.Context, tenantID string, id primitive.ObjectID, fields models.HierarchyFields) error {
	return s.mutate(tenantID, id, func(c *models.Category) error {
		reparented := !sameParentID(c.ParentID, fields.ParentID)
		c.ApplyHierarchy(cloneHierarchy(fields))
		if reparented && s.siblingNameTaken(*c) {
			return ErrDuplicateName
		}
		return nil
	})
}

func (s *MemoryCategoryStore) SetHierarchyMany(ctx context.Context, tenantID string, updates []HierarchyUpdate) error {
	for _, u := range updates {
		if err := s.SetHierarchy(ctx, tenantID, u.ID, u.Fields); err != nil && err != ErrNotFound {
			return err
		}
	}
	return nil
}

func (s *MemoryCategoryStore) AttachChild(_ context.Context, tenantID string, parentID, childID primitive.ObjectID) error {
	return s.mutate(tenantID, parentID, func(c *models.Category) error {
		if !containsID(c.Children, childID) {
			c.Children = append(c.Children, childID)
			c.ChildCount++
		}
		c.HasChildren = c.ChildCount > 0
		return nil
	})
}

func (s *MemoryCategoryStore) DetachChild(_ context.Context, tenantID string, parentID, childID primitive.ObjectID) error {
	return s.mutate(tenantID, parentID, func(c *models.Category) error {
		if containsID(c.Children, childID) {
			c.Children = removeID(c.Children, childID)
			if c.ChildCount > 0 {
				c.ChildCount--
			}
		}
		c.HasChildren = c.ChildCount > 0
		return nil
	})
}

func (s *MemoryCategoryStore) SetChildren(_ context.Context, tenantID string, id primitive.ObjectID, children []primitive.ObjectID) error {
	return s.mutate(tenantID, id, func(c *models.Category) error {
		c.Children = append([]primitive.ObjectID{}, children...)
		c.ChildCount = len(children)
		c.HasChildren = len(children) > 0
		return nil
	})
}

func (s *MemoryCategoryStore) SoftDelete(_ context.Context, tenantID string, id primitive.ObjectID) error {
	return s.mutate(tenantID, id, func(c *models.Category) error {
		now := time.Now()
		c.IsDeleted = true
		c.DeletedAt = &now
		return nil
	})
}

// WithTransaction has no rollback; the in-memory store is for single-process use.
func (s *MemoryCategoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *MemoryCategoryStore) mutate(tenantID string, id primitive.ObjectID, fn func(c *models.Category) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok || c.TenantID != tenantID || c.IsDeleted {
		return ErrNotFound
	}
	if err := fn(&c); err != nil {
		return err
	}
	c.UpdatedAt = time.Now()
	s.categories[id] = c
	return nil
}

// siblingNameTaken must be called with s.mu held.
func (s *MemoryCategoryStore) siblingNameTaken(c models.Category) bool {
	if !s.uniqueSiblingNames || c.IsDeleted {
		return false
	}
	for _, other := range s.categories {
		if other.ID != c.ID && other.TenantID == c.TenantID && !other.IsDeleted &&
			sameParentID(other.ParentID, c.ParentID) && strings.EqualFold(other.Name, c.Name) {
			return true
		}
	}
	return false
}

func sameParentID(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func matchCategory(c models.Category, q CategoryQuery) bool {
	if c.TenantID != q.TenantID {
		return false
	}
	if c.IsDeleted && !q.IncludeDeleted {
		return false
	}
	if q.OrgID != "" && c.OrgID != q.OrgID {
		return false
	}
	if len(q.IDs) > 0 && !containsID(q.IDs, c.ID) {
		return false
	}
	if q.ExcludeID != nil && c.ID == *q.ExcludeID {
		return false
	}
	if q.ExternalID != "" && c.ExternalID != q.ExternalID {
		return false
	}
	if q.Name != "" && !strings.EqualFold(c.Name, q.Name) {
		return false
	}
	if q.RootsOnly && c.ParentID != nil {
		return false
	}
	if !q.RootsOnly && q.ParentID != nil && (c.ParentID == nil || *c.ParentID != *q.ParentID) {
		return false
	}
	if q.Level != nil && c.Level != *q.Level {
		return false
	}
	if q.MaxLevel != nil && c.Level > *q.MaxLevel {
		return false
	}
	if q.AncestorID != nil && !containsID(c.PathArray, *q.AncestorID) {
		return false
	}
	if q.LeavesOnly && c.HasChildren {
		return false
	}
	if q.Status != "" && c.Status != q.Status {
		return false
	}
	if len(q.Keywords) > 0 && !anyKeyword(c.Keywords, q.Keywords) {
		return false
	}
	if q.SearchText != "" {
		needle := strings.ToLower(q.SearchText)
		if !strings.Contains(strings.ToLower(c.Name), needle) && !strings.Contains(strings.ToLower(c.ExternalID), needle) {
			return false
		}
	}
	return true
}

// MemoryTemplateStore holds project templates for STORE_DRIVER=memory and tests.
type MemoryTemplateStore struct {
	mu        sync.RWMutex
	templates []models.ProjectTemplate
}

func NewMemoryTemplateStore(templates ...models.ProjectTemplate) *MemoryTemplateStore {
	return &MemoryTemplateStore{templates: templates}
}

func (s *MemoryTemplateStore) Add(template models.ProjectTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if template.ID.IsZero() {
		template.ID = primitive.NewObjectID()
	}
	s.templates = append(s.templates, template)
}

func (s *MemoryTemplateStore) ProjectBreakdown(_ context.Context, tenantID string, categoryIDs []primitive.ObjectID) ([]models.CategoryReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := map[primitive.ObjectID]*models.CategoryReference{}
	var order []primitive.ObjectID
	for _, t := range s.templates {
		if t.TenantID != tenantID || !t.IsReusable || t.Status != models.TemplateStatusPublished || t.IsDeleted {
			continue
		}
		for _, c := range t.Categories {
			if !containsID(categoryIDs, c.ID) {
				continue
			}
			ref, ok := byCategory[c.ID]
			if !ok {
				ref = &models.CategoryReference{CategoryID: c.ID, CategoryName: c.Name}
				byCategory[c.ID] = ref
				order = append(order, c.ID)
			}
			ref.ProjectCount++
			if len(ref.SampleTitles) < MaxSampleTitles {
				ref.SampleTitles = append(ref.SampleTitles, t.Title)
			}
		}
	}

	references := make([]models.CategoryReference, 0, len(order))
	for _, id := range order {
		references = append(references, *byCategory[id])
	}
	sort.SliceStable(references, func(i, j int) bool {
		return references[i].ProjectCount > references[j].ProjectCount
	})
	return references, nil
}

func (s *MemoryTemplateStore) FindReferencing(_ context.Context, tenantID string, categoryIDs []primitive.ObjectID) ([]models.TemplateRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var refs []models.TemplateRef
	for _, t := range s.templates {
		if t.TenantID != tenantID || t.IsDeleted {
			continue
		}
		var matched []primitive.ObjectID
		for _, c := range t.Categories {
			if containsID(categoryIDs, c.ID) {
				matched = append(matched, c.ID)
			}
		}
		if len(matched) > 0 {
			refs = append(refs, models.TemplateRef{ID: t.ID, Title: t.Title, CategoryIDs: matched})
		}
	}
	return refs, nil
}

func (s *MemoryTemplateStore) RemoveCategory(_ context.Context, tenantID string, categoryID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var modified int64
	for i, t := range s.templates {
		if t.TenantID != tenantID {
			continue
		}
		kept := t.Categories[:0:0]
		for _, c := range t.Categories {
			if c.ID != categoryID {
				kept = append(kept, c)
			}
		}
		if len(kept) != len(t.Categories) {
			s.templates[i].Categories = kept
			s.templates[i].UpdatedAt = time.Now()
			modified++
		}
	}
	return modified, nil
}

func cloneCategory(c models.Category) models.Category {
	c.PathArray = append([]primitive.ObjectID(nil), c.PathArray...)
	c.Children = append([]primitive.ObjectID(nil), c.Children...)
	c.Keywords = append([]string(nil), c.Keywords...)
	c.Evidences = append([]models.Evidence(nil), c.Evidences...)
	if c.ParentID != nil {
		parent := *c.ParentID
		c.ParentID = &parent
	}
	return c
}

func cloneHierarchy(h models.HierarchyFields) models.HierarchyFields {
	h.PathArray = append([]primitive.ObjectID(nil), h.PathArray...)
	if h.ParentID != nil {
		parent := *h.ParentID
		h.ParentID = &parent
	}
	return h
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	kept := make([]primitive.ObjectID, 0, len(ids))
	for _, candidate := range ids {
		if candidate != id {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func anyKeyword(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
