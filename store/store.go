// Package store persists categories and reads the template references that depend on them.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/ELEVATE-Project/project-service-sub000/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrDuplicateName = errors.New("duplicate sibling name")
)

// CategoryQuery is a tenant-scoped filter over the category collection.
// Zero values mean "no constraint".
type CategoryQuery struct {
	TenantID       string
	OrgID          string
	IDs            []primitive.ObjectID
	ExcludeID      *primitive.ObjectID
	ExternalID     string
	Name           string // case-insensitive exact match
	ParentID       *primitive.ObjectID
	RootsOnly      bool
	Level          *int
	MaxLevel       *int
	AncestorID     *primitive.ObjectID // pathArray containment, includes the ancestor itself
	LeavesOnly     bool
	Status         string
	Keywords       []string // any-of
	SearchText     string   // case-insensitive substring on name or externalId
	IncludeDeleted bool
}

type Page struct {
	Limit  int64
	Offset int64
}

type HierarchyUpdate struct {
	ID     primitive.ObjectID
	Fields models.HierarchyFields
}

type CategoryStore interface {
	Insert(ctx context.Context, category *models.Category) error
	FindByID(ctx context.Context, tenantID string, id primitive.ObjectID) (*models.Category, error)
	FindOne(ctx context.Context, q CategoryQuery) (*models.Category, error)
	Find(ctx context.Context, q CategoryQuery, page *Page) ([]models.Category, error)
	Count(ctx context.Context, q CategoryQuery) (int64, error)
	// FindDescendants returns every live category whose pathArray contains id, excluding id itself.
	FindDescendants(ctx context.Context, tenantID string, id primitive.ObjectID) ([]models.Category, error)
	UpdateFields(ctx context.Context, tenantID string, id primitive.ObjectID, patch models.CategoryPatch) error
	SetHierarchy(ctx context.Context, tenantID string, id primitive.ObjectID, fields models.HierarchyFields) error
	SetHierarchyMany(ctx context.Context, tenantID string, updates []HierarchyUpdate) error
	// AttachChild and DetachChild are idempotent: repeating them leaves the counters unchanged.
	AttachChild(ctx context.Context, tenantID string, parentID, childID primitive.ObjectID) error
	DetachChild(ctx context.Context, tenantID string, parentID, childID primitive.ObjectID) error
	SetChildren(ctx context.Context, tenantID string, id primitive.ObjectID, children []primitive.ObjectID) error
	SoftDelete(ctx context.Context, tenantID string, id primitive.ObjectID) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// Tenants lists every tenant owning at least one live category.
	Tenants(ctx context.Context) ([]string, error)
}

type TemplateStore interface {
	// ProjectBreakdown counts reusable, published, live templates per referenced category id.
	ProjectBreakdown(ctx context.Context, tenantID string, categoryIDs []primitive.ObjectID) ([]models.CategoryReference, error)
	// FindReferencing returns every live template referencing any of categoryIDs.
	FindReferencing(ctx context.Context, tenantID string, categoryIDs []primitive.ObjectID) ([]models.TemplateRef, error)
	RemoveCategory(ctx context.Context, tenantID string, categoryID primitive.ObjectID) (int64, error)
}

// MaxSampleTitles bounds the titles reported per category in a ProjectBreakdown.
const MaxSampleTitles = 5

func sortCategories(categories []models.Category) {
	sort.SliceStable(categories, func(i, j int) bool {
		if categories[i].SequenceNumber != categories[j].SequenceNumber {
			return categories[i].SequenceNumber < categories[j].SequenceNumber
		}
		return strings.ToLower(categories[i].Name) < strings.ToLower(categories[j].Name)
	})
}
