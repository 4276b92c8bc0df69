package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ELEVATE-Project/project-service-sub000/metrics"
	"github.com/ELEVATE-Project/project-service-sub000/models"
	"github.com/ELEVATE-Project/project-service-sub000/store"
	"github.com/ELEVATE-Project/project-service-sub000/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ChangeNotifier is told about categories whose downstream copies may be stale.
type ChangeNotifier interface {
	CategoriesChanged(tenantID string, categories ...models.Category)
}

type CategoryServiceConfig struct {
	MaxNameLength       int
	AllowDuplicateNames bool
}

// hierarchyOwnedFields may only change through Move or the internal counters.
var hierarchyOwnedFields = map[string]struct{}{
	"parentId":    {},
	"level":       {},
	"path":        {},
	"pathArray":   {},
	"hasChildren": {},
	"childCount":  {},
	"children":    {},
}

type CreateCategoryInput struct {
	ExternalID     string                  `json:"externalId" binding:"required"`
	Name           string                  `json:"name" binding:"required"`
	Description    string                  `json:"description"`
	Keywords       []string                `json:"keywords"`
	Status         string                  `json:"status"`
	SequenceNumber int                     `json:"sequenceNumber"`
	Metadata       models.CategoryMetadata `json:"metadata"`
	Evidences      []models.Evidence       `json:"evidences"`
	// ParentID is a category id or externalId; empty creates a root.
	ParentID string `json:"parentId"`
	// ParentExternalID lets bulk entries point at a parent created earlier in the same batch.
	ParentExternalID string `json:"parentExternalId"`
}

type UpdateCategoryInput struct {
	Patch models.CategoryPatch
	// Fields lists every top-level key the caller sent, used to reject hierarchy fields.
	Fields []string
}

type MoveResult struct {
	MovedCategory       *models.Category `json:"movedCategory"`
	AffectedDescendants int              `json:"affectedDescendants"`
}

type DeleteResult struct {
	CategoryID       primitive.ObjectID `json:"categoryId"`
	TemplatesUpdated int64              `json:"templatesUpdated"`
}

type BulkCreateError struct {
	Index      int    `json:"index"`
	ExternalID string `json:"externalId"`
	Message    string `json:"message"`
}

type BulkCreateResult struct {
	Created    int                `json:"created"`
	Failed     int                `json:"failed"`
	Errors     []BulkCreateError  `json:"errors"`
	Categories []*models.Category `json:"categories"`
}

type ReconcileResult struct {
	Scanned          int `json:"scanned"`
	CountersRepaired int `json:"countersRepaired"`
	PathsRepaired    int `json:"pathsRepaired"`
	Orphans          int `json:"orphans"`
}

// CategoryService owns every write to the category tree.
type CategoryService struct {
	categories store.CategoryStore
	templates  store.TemplateStore
	calculator *HierarchyCalculator
	cycles     CycleGuard
	guard      *DeletionGuard
	notifier   ChangeNotifier
	cfg        CategoryServiceConfig
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewCategoryService(
	categories store.CategoryStore,
	templates store.TemplateStore,
	calculator *HierarchyCalculator,
	notifier ChangeNotifier,
	cfg CategoryServiceConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) *CategoryService {
	if cfg.MaxNameLength <= 0 {
		cfg.MaxNameLength = 100
	}
	return &CategoryService{
		categories: categories,
		templates:  templates,
		calculator: calculator,
		guard:      NewDeletionGuard(categories, templates),
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
	}
}

// Create inserts a category as a root or under an existing parent.
func (s *CategoryService) Create(ctx context.Context, user models.UserContext, input CreateCategoryInput) (category *models.Category, err error) {
	defer s.metrics.TrackOperation("create")()
	defer func() { s.metrics.RecordMutation("create", err) }()

	if err := requireTenant(user); err != nil {
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	input.ExternalID = strings.TrimSpace(input.ExternalID)
	if err := utils.ValidateCategoryName(input.Name, s.cfg.MaxNameLength); err != nil {
		return nil, NewValidationError("%v", err)
	}
	if err := utils.ValidateExternalID(input.ExternalID); err != nil {
		return nil, NewValidationError("%v", err)
	}
	if input.Status == "" {
		input.Status = models.CategoryStatusActive
	}
	if err := utils.ValidateCategoryStatus(input.Status); err != nil {
		return nil, NewValidationError("%v", err)
	}

	// Resolve parent
	var parent *models.Category
	if input.ParentID != "" {
		parent, err = s.findByRef(ctx, user.TenantID, input.ParentID)
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, newError(KindParentCategoryNotFound, "parent category %s not found", input.ParentID)
		} else if err != nil {
			return nil, err
		}
	}

	if err := s.assertUniqueSiblingName(ctx, user.TenantID, input.Name, parentIDOf(parent), nil); err != nil {
		return nil, err
	}
	if err := s.assertUniqueExternalID(ctx, user.TenantID, input.ExternalID, nil); err != nil {
		return nil, err
	}

	// The id is generated here so the hierarchy can embed it in the same write.
	id := primitive.NewObjectID()
	hierarchy, err := s.calculator.ComputeForNewChild(parent, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	category = &models.Category{
		ID:             id,
		ExternalID:     input.ExternalID,
		TenantID:       user.TenantID,
		OrgID:          user.OrgID,
		Name:           input.Name,
		Description:    input.Description,
		Keywords:       input.Keywords,
		Status:         input.Status,
		Children:       []primitive.ObjectID{},
		SequenceNumber: input.SequenceNumber,
		Evidences:      input.Evidences,
		Metadata:       input.Metadata,
		CreatedBy:      user.UserID,
		UpdatedBy:      user.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	category.ApplyHierarchy(hierarchy)

	err = s.categories.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.categories.Insert(ctx, category); err != nil {
			return err
		}
		if parent != nil {
			return s.categories.AttachChild(ctx, user.TenantID, parent.ID, category.ID)
		}
		return nil
	})
	if errors.Is(err, store.ErrDuplicateName) {
		return nil, newError(KindDuplicateName, "a category named %q already exists at this level", input.Name)
	} else if errors.Is(err, store.ErrDuplicateKey) {
		return nil, newError(KindDuplicateExternalID, "externalId %q already exists", input.ExternalID)
	} else if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindParentCategoryNotFound, "parent category %s not found", input.ParentID)
	} else if err != nil {
		return nil, newInternalError("failed to create category", err)
	}

	s.logger.Info("Category created",
		zap.String("tenant_id", user.TenantID),
		zap.String("category_id", category.ID.Hex()),
		zap.String("external_id", category.ExternalID),
		zap.Int("level", category.Level),
	)

	if parent != nil {
		s.notifyByID(ctx, user.TenantID, parent.ID)
	}
	return category, nil
}

// Update changes scalar fields only. Hierarchy fields belong to Move.
func (s *CategoryService) Update(ctx context.Context, user models.UserContext, ref string, input UpdateCategoryInput) (updated *models.Category, err error) {
	defer s.metrics.TrackOperation("update")()
	defer func() { s.metrics.RecordMutation("update", err) }()

	if err := requireTenant(user); err != nil {
		return nil, err
	}
	for _, field := range input.Fields {
		if _, owned := hierarchyOwnedFields[field]; owned {
			return nil, NewValidationError("field %q cannot be updated directly; use the move operation", field)
		}
	}

	patch := input.Patch
	if patch.IsEmpty() {
		return nil, NewValidationError("no updatable fields provided")
	}

	category, err := s.findByRef(ctx, user.TenantID, ref)
	if err != nil {
		return nil, err
	}

	nameChanged := false
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
		if err := utils.ValidateCategoryName(name, s.cfg.MaxNameLength); err != nil {
			return nil, NewValidationError("%v", err)
		}
		if !strings.EqualFold(name, category.Name) {
			if err := s.assertUniqueSiblingName(ctx, user.TenantID, name, category.ParentID, &category.ID); err != nil {
				return nil, err
			}
		}
		nameChanged = name != category.Name
	}

	externalIDChanged := false
	if patch.ExternalID != nil {
		externalID := strings.TrimSpace(*patch.ExternalID)
		patch.ExternalID = &externalID
		if err := utils.ValidateExternalID(externalID); err != nil {
			return nil, NewValidationError("%v", err)
		}
		if externalID != category.ExternalID {
			if err := s.assertUniqueExternalID(ctx, user.TenantID, externalID, &category.ID); err != nil {
				return nil, err
			}
			externalIDChanged = true
		}
	}

	if patch.Status != nil {
		if err := utils.ValidateCategoryStatus(*patch.Status); err != nil {
			return nil, NewValidationError("%v", err)
		}
	}

	patch.UpdatedBy = user.UserID
	err = s.categories.UpdateFields(ctx, user.TenantID, category.ID, patch)
	if errors.Is(err, store.ErrDuplicateName) {
		return nil, newError(KindDuplicateName, "a category named %q already exists at this level", *patch.Name)
	} else if errors.Is(err, store.ErrDuplicateKey) {
		return nil, newError(KindDuplicateExternalID, "externalId already exists")
	} else if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindCategoryNotFound, "category %s not found", ref)
	} else if err != nil {
		return nil, newInternalError("failed to update category", err)
	}

	updated, err = s.categories.FindByID(ctx, user.TenantID, category.ID)
	if err != nil {
		return nil, s.translateLookup(err, ref)
	}

	if nameChanged || externalIDChanged {
		s.notifier.CategoriesChanged(user.TenantID, *updated)
	}
	return updated, nil
}

// Move re-parents a category and rewrites the hierarchy of its whole subtree.
// A nil newParentRef moves the category to the root.
func (s *CategoryService) Move(ctx context.Context, user models.UserContext, ref string, newParentRef *string) (result *MoveResult, err error) {
	defer s.metrics.TrackOperation("move")()
	defer func() { s.metrics.RecordMutation("move", err) }()

	if err := requireTenant(user); err != nil {
		return nil, err
	}

	node, err := s.findByRef(ctx, user.TenantID, ref)
	if err != nil {
		return nil, err
	}

	// Resolve the destination
	var newParent *models.Category
	if newParentRef != nil && *newParentRef != "" {
		if *newParentRef == node.ID.Hex() || *newParentRef == node.ExternalID {
			return nil, newError(KindCircularReference, "a category cannot be its own parent")
		}
		newParent, err = s.findByRef(ctx, user.TenantID, *newParentRef)
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, newError(KindParentCategoryNotFound, "parent category %s not found", *newParentRef)
		} else if err != nil {
			return nil, err
		}
	}

	newParentID := parentIDOf(newParent)
	if sameParent(node.ParentID, newParentID) {
		return &MoveResult{MovedCategory: node}, nil
	}

	descendants, err := s.categories.FindDescendants(ctx, user.TenantID, node.ID)
	if err != nil {
		return nil, newInternalError("failed to load descendants", err)
	}
	descendantIDs := make([]primitive.ObjectID, 0, len(descendants))
	for _, d := range descendants {
		descendantIDs = append(descendantIDs, d.ID)
	}
	if err := s.cycles.AssertLegalMove(node.ID, newParentID, idSet(descendantIDs...)); err != nil {
		return nil, err
	}

	move, err := s.calculator.ComputeForMove(*node, newParent)
	if err != nil {
		return nil, err
	}
	if err := s.calculator.ValidateSubtreeDepth(move, descendants); err != nil {
		return nil, err
	}
	if err := s.assertUniqueSiblingName(ctx, user.TenantID, node.Name, newParentID, &node.ID); err != nil {
		return nil, err
	}

	updates := make([]store.HierarchyUpdate, 0, len(descendants))
	for _, d := range descendants {
		updates = append(updates, store.HierarchyUpdate{ID: d.ID, Fields: s.calculator.RewriteDescendant(d, move)})
	}

	oldParentID := node.ParentID
	err = s.categories.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.categories.SetHierarchy(ctx, user.TenantID, node.ID, move.Fields); err != nil {
			return err
		}
		if err := s.categories.SetHierarchyMany(ctx, user.TenantID, updates); err != nil {
			return err
		}
		if oldParentID != nil {
			if err := s.categories.DetachChild(ctx, user.TenantID, *oldParentID, node.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
		if newParentID != nil {
			return s.categories.AttachChild(ctx, user.TenantID, *newParentID, node.ID)
		}
		return nil
	})
	if errors.Is(err, store.ErrDuplicateName) {
		return nil, newError(KindDuplicateName, "a category named %q already exists at this level", node.Name)
	} else if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindCategoryNotFound, "category %s changed during move", ref)
	} else if err != nil {
		return nil, newInternalError("failed to move category", err)
	}

	moved, err := s.categories.FindByID(ctx, user.TenantID, node.ID)
	if err != nil {
		return nil, s.translateLookup(err, ref)
	}

	s.metrics.ObserveMove(len(descendants))
	s.logger.Info("Category moved",
		zap.String("tenant_id", user.TenantID),
		zap.String("category_id", node.ID.Hex()),
		zap.Int("level_diff", move.LevelDiff),
		zap.Int("descendants", len(descendants)),
	)

	affected := append([]primitive.ObjectID{node.ID}, descendantIDs...)
	if oldParentID != nil {
		affected = append(affected, *oldParentID)
	}
	if newParentID != nil {
		affected = append(affected, *newParentID)
	}
	s.notifyByID(ctx, user.TenantID, affected...)

	return &MoveResult{MovedCategory: moved, AffectedDescendants: len(descendants)}, nil
}

// CanDelete reports whether the category may be deleted and why not.
func (s *CategoryService) CanDelete(ctx context.Context, user models.UserContext, ref string) (*DeletionCheck, error) {
	if err := requireTenant(user); err != nil {
		return nil, err
	}
	category, err := s.findByRef(ctx, user.TenantID, ref)
	if err != nil {
		return nil, err
	}
	return s.guard.CanDelete(ctx, user.TenantID, category.ID)
}

// Delete soft-deletes an unreferenced leaf category.
func (s *CategoryService) Delete(ctx context.Context, user models.UserContext, ref string) (result *DeleteResult, err error) {
	defer s.metrics.TrackOperation("delete")()
	defer func() { s.metrics.RecordMutation("delete", err) }()

	if err := requireTenant(user); err != nil {
		return nil, err
	}

	category, err := s.findByRef(ctx, user.TenantID, ref)
	if err != nil {
		return nil, err
	}

	check, err := s.guard.CanDelete(ctx, user.TenantID, category.ID)
	if err != nil {
		return nil, err
	}
	if err := check.Err(); err != nil {
		return nil, err
	}

	err = s.categories.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.categories.SoftDelete(ctx, user.TenantID, category.ID); err != nil {
			return err
		}
		if category.ParentID != nil {
			if err := s.categories.DetachChild(ctx, user.TenantID, *category.ParentID, category.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindCategoryNotFound, "category %s not found", ref)
	} else if err != nil {
		return nil, newInternalError("failed to delete category", err)
	}

	result = &DeleteResult{CategoryID: category.ID}

	// Template cleanup is best-effort; the category is already gone.
	updated, err := s.templates.RemoveCategory(ctx, user.TenantID, category.ID)
	if err != nil {
		s.logger.Warn("Failed to remove deleted category from templates",
			zap.String("tenant_id", user.TenantID),
			zap.String("category_id", category.ID.Hex()),
			zap.Error(err),
		)
	} else {
		result.TemplatesUpdated = updated
	}

	s.logger.Info("Category deleted",
		zap.String("tenant_id", user.TenantID),
		zap.String("category_id", category.ID.Hex()),
		zap.Int64("templates_updated", result.TemplatesUpdated),
	)

	if category.ParentID != nil {
		s.notifyByID(ctx, user.TenantID, *category.ParentID)
	}
	return result, nil
}

// BulkCreate creates entries in input order. A failed entry is reported and skipped.
func (s *CategoryService) BulkCreate(ctx context.Context, user models.UserContext, inputs []CreateCategoryInput) (*BulkCreateResult, error) {
	if err := requireTenant(user); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, NewValidationError("at least one category is required")
	}

	result := &BulkCreateResult{Errors: []BulkCreateError{}, Categories: []*models.Category{}}
	createdByExternalID := make(map[string]primitive.ObjectID, len(inputs))

	for i, input := range inputs {
		if input.ParentID == "" && input.ParentExternalID != "" {
			if id, ok := createdByExternalID[input.ParentExternalID]; ok {
				input.ParentID = id.Hex()
			} else {
				input.ParentID = input.ParentExternalID
			}
		}

		category, err := s.Create(ctx, user, input)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkCreateError{
				Index:      i,
				ExternalID: input.ExternalID,
				Message:    err.Error(),
			})
			continue
		}
		createdByExternalID[category.ExternalID] = category.ID
		result.Created++
		result.Categories = append(result.Categories, category)
	}

	s.logger.Info("Bulk category create finished",
		zap.String("tenant_id", user.TenantID),
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// Reconcile recomputes child caches from parentId and re-derives hierarchy fields
// top-down from the roots. Running it on a consistent tenant writes nothing.
func (s *CategoryService) Reconcile(ctx context.Context, tenantID string) (result *ReconcileResult, err error) {
	defer s.metrics.TrackOperation("reconcile")()
	defer func() { s.metrics.RecordMutation("reconcile", err) }()

	if tenantID == "" {
		return nil, NewValidationError("tenant context is required")
	}

	all, err := s.categories.Find(ctx, store.CategoryQuery{TenantID: tenantID}, nil)
	if err != nil {
		return nil, newInternalError("failed to load categories", err)
	}

	result = &ReconcileResult{Scanned: len(all)}
	byID := make(map[primitive.ObjectID]*models.Category, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
	}

	childrenOf := make(map[primitive.ObjectID][]primitive.ObjectID, len(all))
	var roots []*models.Category
	for i := range all {
		c := &all[i]
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		if _, ok := byID[*c.ParentID]; !ok {
			result.Orphans++
			s.logger.Warn("Category parent is missing",
				zap.String("tenant_id", tenantID),
				zap.String("category_id", c.ID.Hex()),
				zap.String("parent_id", c.ParentID.Hex()),
			)
			continue
		}
		childrenOf[*c.ParentID] = append(childrenOf[*c.ParentID], c.ID)
	}

	// Child caches
	for i := range all {
		c := &all[i]
		expected := orderedChildren(c.Children, childrenOf[c.ID])
		if c.ChildCount == len(expected) && c.HasChildren == (len(expected) > 0) && sameIDs(c.Children, expected) {
			continue
		}
		if err := s.categories.SetChildren(ctx, tenantID, c.ID, expected); err != nil {
			return nil, newInternalError("failed to repair child counters", err)
		}
		result.CountersRepaired++
	}

	// Hierarchy fields, breadth-first from each root
	queue := make([]*models.Category, 0, len(all))
	for _, root := range roots {
		want := childHierarchy(nil, root.ID)
		if !sameHierarchy(root.Hierarchy(), want) {
			if err := s.categories.SetHierarchy(ctx, tenantID, root.ID, want); err != nil {
				return nil, newInternalError("failed to repair hierarchy", err)
			}
			result.PathsRepaired++
		}
		root.ApplyHierarchy(want)
		queue = append(queue, root)
	}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, childID := range childrenOf[parent.ID] {
			child := byID[childID]
			want := childHierarchy(parent, child.ID)
			if !sameHierarchy(child.Hierarchy(), want) {
				if err := s.categories.SetHierarchy(ctx, tenantID, child.ID, want); err != nil {
					return nil, newInternalError("failed to repair hierarchy", err)
				}
				result.PathsRepaired++
			}
			child.ApplyHierarchy(want)
			queue = append(queue, child)
		}
	}

	s.metrics.RecordRepairs("counters", result.CountersRepaired)
	s.metrics.RecordRepairs("paths", result.PathsRepaired)
	if result.CountersRepaired > 0 || result.PathsRepaired > 0 {
		s.logger.Info("Category tree repaired",
			zap.String("tenant_id", tenantID),
			zap.Int("counters_repaired", result.CountersRepaired),
			zap.Int("paths_repaired", result.PathsRepaired),
		)
	}
	return result, nil
}

// findByRef resolves ref as an ObjectID first and then as an externalId.
func (s *CategoryService) findByRef(ctx context.Context, tenantID, ref string) (*models.Category, error) {
	return findCategoryByRef(ctx, s.categories, tenantID, ref)
}

func (s *CategoryService) translateLookup(err error, ref string) error {
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindCategoryNotFound, "category %s not found", ref)
	}
	return newInternalError("failed to load category", err)
}

func (s *CategoryService) assertUniqueSiblingName(ctx context.Context, tenantID, name string, parentID, excludeID *primitive.ObjectID) error {
	if s.cfg.AllowDuplicateNames {
		return nil
	}

	q := store.CategoryQuery{TenantID: tenantID, Name: name, ExcludeID: excludeID}
	if parentID == nil {
		q.RootsOnly = true
	} else {
		q.ParentID = parentID
	}

	count, err := s.categories.Count(ctx, q)
	if err != nil {
		return newInternalError("failed to check sibling names", err)
	}
	if count > 0 {
		return newError(KindDuplicateName, "a category named %q already exists at this level", name)
	}
	return nil
}

func (s *CategoryService) assertUniqueExternalID(ctx context.Context, tenantID, externalID string, excludeID *primitive.ObjectID) error {
	count, err := s.categories.Count(ctx, store.CategoryQuery{TenantID: tenantID, ExternalID: externalID, ExcludeID: excludeID})
	if err != nil {
		return newInternalError("failed to check externalId", err)
	}
	if count > 0 {
		return newError(KindDuplicateExternalID, "externalId %q already exists", externalID)
	}
	return nil
}

// notifyByID reloads the given categories and hands their current state to the notifier.
func (s *CategoryService) notifyByID(ctx context.Context, tenantID string, ids ...primitive.ObjectID) {
	if len(ids) == 0 {
		return
	}
	current, err := s.categories.Find(ctx, store.CategoryQuery{TenantID: tenantID, IDs: ids}, nil)
	if err != nil {
		s.logger.Warn("Failed to load categories for sync", zap.String("tenant_id", tenantID), zap.Error(err))
		return
	}
	s.notifier.CategoriesChanged(tenantID, current...)
}

func findCategoryByRef(ctx context.Context, categories store.CategoryStore, tenantID, ref string) (*models.Category, error) {
	if ref == "" {
		return nil, NewValidationError("category id is required")
	}

	if id, err := primitive.ObjectIDFromHex(ref); err == nil {
		category, err := categories.FindByID(ctx, tenantID, id)
		if err == nil {
			return category, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, newInternalError("failed to load category", err)
		}
	}

	category, err := categories.FindOne(ctx, store.CategoryQuery{TenantID: tenantID, ExternalID: ref})
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindCategoryNotFound, "category %s not found", ref)
	} else if err != nil {
		return nil, newInternalError("failed to load category", err)
	}
	return category, nil
}

func requireTenant(user models.UserContext) error {
	if user.TenantID == "" {
		return NewValidationError("tenant context is required")
	}
	return nil
}

func parentIDOf(parent *models.Category) *primitive.ObjectID {
	if parent == nil {
		return nil
	}
	id := parent.ID
	return &id
}

func sameParent(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// orderedChildren keeps the cached order for children that still exist and appends the rest.
func orderedChildren(cached, actual []primitive.ObjectID) []primitive.ObjectID {
	live := idSet(actual...)
	ordered := make([]primitive.ObjectID, 0, len(actual))
	seen := make(map[primitive.ObjectID]struct{}, len(actual))
	for _, id := range cached {
		if _, ok := live[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	for _, id := range actual {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ordered = append(ordered, id)
		}
	}
	return ordered
}

func sameIDs(a, b []primitive.ObjectID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
