package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ELEVATE-Project/project-service-sub000/models"
	"github.com/ELEVATE-Project/project-service-sub000/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeletionCheck is the verdict of DeletionGuard.CanDelete.
type DeletionCheck struct {
	CanDelete     bool                       `json:"canDelete"`
	Reason        string                     `json:"reason,omitempty"`
	Kind          ErrorKind                  `json:"kind,omitempty"`
	ChildCount    int                        `json:"childCount"`
	TemplateCount int                        `json:"templateCount"`
	ProjectCount  int                        `json:"projectCount"`
	Projects      []models.CategoryReference `json:"projects,omitempty"`
	Templates     []models.TemplateRef       `json:"templates,omitempty"`
}

// Err converts a refusal into a caller-facing error. It returns nil when deletion is allowed.
func (c *DeletionCheck) Err() error {
	if c.CanDelete {
		return nil
	}
	details := map[string]interface{}{"childCount": c.ChildCount}
	switch c.Kind {
	case KindReferencedByProjects:
		details["projectCount"] = c.ProjectCount
		details["projects"] = c.Projects
	case KindReferencedByTemplates:
		details["templateCount"] = c.TemplateCount
		details["templates"] = c.Templates
	}
	return newError(c.Kind, "%s", c.Reason).WithDetails(details)
}

type DeletionGuard struct {
	categories store.CategoryStore
	templates  store.TemplateStore
}

func NewDeletionGuard(categories store.CategoryStore, templates store.TemplateStore) *DeletionGuard {
	return &DeletionGuard{categories: categories, templates: templates}
}

// CanDelete evaluates, in order: project references anywhere in the subtree, live children,
// then direct template references. The first failing check wins.
func (g *DeletionGuard) CanDelete(ctx context.Context, tenantID string, categoryID primitive.ObjectID) (*DeletionCheck, error) {
	category, err := g.categories.FindByID(ctx, tenantID, categoryID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(KindCategoryNotFound, "category %s not found", categoryID.Hex())
	} else if err != nil {
		return nil, newInternalError("failed to load category", err)
	}

	check := &DeletionCheck{ChildCount: category.ChildCount}

	descendants, err := g.categories.FindDescendants(ctx, tenantID, categoryID)
	if err != nil {
		return nil, newInternalError("failed to load descendants", err)
	}
	subtree := make([]primitive.ObjectID, 0, len(descendants)+1)
	subtree = append(subtree, categoryID)
	for _, d := range descendants {
		subtree = append(subtree, d.ID)
	}

	projects, err := g.templates.ProjectBreakdown(ctx, tenantID, subtree)
	if err != nil {
		return nil, newInternalError("failed to check project references", err)
	}
	for _, p := range projects {
		check.ProjectCount += p.ProjectCount
	}
	if check.ProjectCount > 0 {
		check.Kind = KindReferencedByProjects
		check.Reason = fmt.Sprintf("referenced by %d projects", check.ProjectCount)
		check.Projects = projects
		return check, nil
	}

	if category.ChildCount > 0 {
		check.Kind = KindHasChildren
		check.Reason = "has children, delete children first"
		return check, nil
	}

	templates, err := g.templates.FindReferencing(ctx, tenantID, []primitive.ObjectID{categoryID})
	if err != nil {
		return nil, newInternalError("failed to check template references", err)
	}
	if len(templates) > 0 {
		check.Kind = KindReferencedByTemplates
		check.TemplateCount = len(templates)
		check.Reason = fmt.Sprintf("referenced by %d templates", len(templates))
		check.Templates = templates
		return check, nil
	}

	check.CanDelete = true
	return check, nil
}
