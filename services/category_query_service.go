package services

import (
	"context"
	"sort"
	"strings"

	"github.com/ELEVATE-Project/project-service-sub000/metrics"
	"github.com/ELEVATE-Project/project-service-sub000/models"
	"github.com/ELEVATE-Project/project-service-sub000/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ListFilter struct {
	Level *int
	// ParentID is an id or externalId; "null" selects roots.
	ParentID       string
	CurrentOrgOnly bool
	Keywords       []string
	SearchText     string
	Status         string
	Limit          int64
	Page           int64
	Offset         int64
}

type ListResult struct {
	Data  []models.Category `json:"data"`
	Count int64             `json:"count"`
	Limit int64             `json:"limit"`
	Page  int64             `json:"page"`
}

type HierarchyFilter struct {
	// CategoryID restricts the tree to the subtree rooted at this id or externalId.
	CategoryID string
	MaxDepth   *int
	Status     string
}

type HierarchyResult struct {
	Tree            []*models.CategoryNode `json:"tree"`
	TotalCategories int                    `json:"totalCategories"`
}

type CategoryQueryService struct {
	categories   store.CategoryStore
	defaultLimit int64
	maxLimit     int64
	metrics      *metrics.Metrics
}

func NewCategoryQueryService(categories store.CategoryStore, defaultLimit, maxLimit int64, m *metrics.Metrics) *CategoryQueryService {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &CategoryQueryService{
		categories:   categories,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		metrics:      m,
	}
}

// List returns one page of categories sorted by sequence number and name, plus the total match count.
func (s *CategoryQueryService) List(ctx context.Context, user models.UserContext, filter ListFilter) (*ListResult, error) {
	defer s.metrics.TrackOperation("list")()

	if err := requireTenant(user); err != nil {
		return nil, err
	}

	q := store.CategoryQuery{
		TenantID:   user.TenantID,
		Level:      filter.Level,
		Keywords:   filter.Keywords,
		SearchText: strings.TrimSpace(filter.SearchText),
		Status:     filter.Status,
	}
	if filter.CurrentOrgOnly {
		q.OrgID = user.OrgID
	}
	switch filter.ParentID {
	case "":
	case "null":
		q.RootsOnly = true
	default:
		parent, err := findCategoryByRef(ctx, s.categories, user.TenantID, filter.ParentID)
		if err != nil {
			return nil, err
		}
		q.ParentID = &parent.ID
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := filter.Offset
	if offset <= 0 {
		offset = (page - 1) * limit
	}

	data, err := s.categories.Find(ctx, q, &store.Page{Limit: limit, Offset: offset})
	if err != nil {
		return nil, newInternalError("failed to list categories", err)
	}
	count, err := s.categories.Count(ctx, q)
	if err != nil {
		return nil, newInternalError("failed to count categories", err)
	}

	return &ListResult{Data: data, Count: count, Limit: limit, Page: offset/limit + 1}, nil
}

// GetHierarchy assembles live categories into a forest. A category whose parent is
// outside the fetched set becomes a root of the result.
func (s *CategoryQueryService) GetHierarchy(ctx context.Context, user models.UserContext, filter HierarchyFilter) (*HierarchyResult, error) {
	defer s.metrics.TrackOperation("hierarchy")()

	if err := requireTenant(user); err != nil {
		return nil, err
	}

	q := store.CategoryQuery{TenantID: user.TenantID, Status: filter.Status}
	if filter.CategoryID != "" {
		root, err := findCategoryByRef(ctx, s.categories, user.TenantID, filter.CategoryID)
		if err != nil {
			return nil, err
		}
		q.AncestorID = &root.ID
	}
	if filter.MaxDepth != nil {
		if *filter.MaxDepth < 0 {
			return nil, NewValidationError("maxDepth cannot be negative")
		}
		q.MaxLevel = filter.MaxDepth
	}

	categories, err := s.categories.Find(ctx, q, nil)
	if err != nil {
		return nil, newInternalError("failed to load categories", err)
	}

	return &HierarchyResult{
		Tree:            BuildTree(categories),
		TotalCategories: len(categories),
	}, nil
}

// GetLeaves lists categories without live children.
func (s *CategoryQueryService) GetLeaves(ctx context.Context, user models.UserContext, status string) ([]models.Category, error) {
	defer s.metrics.TrackOperation("leaves")()

	if err := requireTenant(user); err != nil {
		return nil, err
	}

	leaves, err := s.categories.Find(ctx, store.CategoryQuery{TenantID: user.TenantID, LeavesOnly: true, Status: status}, nil)
	if err != nil {
		return nil, newInternalError("failed to list leaf categories", err)
	}
	return leaves, nil
}

// Details looks a category up by id or externalId.
func (s *CategoryQueryService) Details(ctx context.Context, user models.UserContext, ref string) (*models.Category, error) {
	if err := requireTenant(user); err != nil {
		return nil, err
	}
	return findCategoryByRef(ctx, s.categories, user.TenantID, ref)
}

// BuildTree links categories to their parents and sorts every sibling list by sequence number.
func BuildTree(categories []models.Category) []*models.CategoryNode {
	nodes := make(map[primitive.ObjectID]*models.CategoryNode, len(categories))
	for _, c := range categories {
		nodes[c.ID] = &models.CategoryNode{Category: c, Children: []*models.CategoryNode{}}
	}

	roots := []*models.CategoryNode{}
	for _, c := range categories {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortNodes(roots)
	return roots
}

func sortNodes(nodes []*models.CategoryNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].SequenceNumber != nodes[j].SequenceNumber {
			return nodes[i].SequenceNumber < nodes[j].SequenceNumber
		}
		return strings.ToLower(nodes[i].Name) < strings.ToLower(nodes[j].Name)
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}
