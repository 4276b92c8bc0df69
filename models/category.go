package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CategoryStatusActive   = "active"
	CategoryStatusInactive = "inactive"
)

// PathSeparator joins ancestor ids inside Category.Path.
const PathSeparator = "/"

type Category struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ExternalID     string               `bson:"externalId" json:"externalId"`
	TenantID       string               `bson:"tenantId" json:"tenantId"`
	OrgID          string               `bson:"orgId" json:"orgId"`
	Name           string               `bson:"name" json:"name"`
	Description    string               `bson:"description,omitempty" json:"description,omitempty"`
	Keywords       []string             `bson:"keywords,omitempty" json:"keywords,omitempty"`
	Status         string               `bson:"status" json:"status"`
	ParentID       *primitive.ObjectID  `bson:"parentId" json:"parentId"`
	Level          int                  `bson:"level" json:"level"`
	Path           string               `bson:"path" json:"path"`
	PathArray      []primitive.ObjectID `bson:"pathArray" json:"pathArray"`
	HasChildren    bool                 `bson:"hasChildren" json:"hasChildren"`
	ChildCount     int                  `bson:"childCount" json:"childCount"`
	Children       []primitive.ObjectID `bson:"children" json:"children"`
	SequenceNumber int                  `bson:"sequenceNumber" json:"sequenceNumber"`
	Evidences      []Evidence           `bson:"evidences,omitempty" json:"evidences,omitempty"`
	Metadata       CategoryMetadata     `bson:"metadata" json:"metadata"`
	NoOfProjects   int                  `bson:"noOfProjects" json:"noOfProjects"`
	IsDeleted      bool                 `bson:"isDeleted" json:"isDeleted"`
	DeletedAt      *time.Time           `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedBy      string               `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	UpdatedBy      string               `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// CategoryMetadata is presentational only; the hierarchy engine never reads it.
type CategoryMetadata struct {
	Icon  string `bson:"icon,omitempty" json:"icon,omitempty"`
	Color string `bson:"color,omitempty" json:"color,omitempty"`
}

type Evidence struct {
	Title    string `bson:"title" json:"title"`
	Filepath string `bson:"filepath" json:"filepath"`
	Type     string `bson:"type" json:"type"`
	Sequence int    `bson:"sequence" json:"sequence"`
}

// HierarchyFields is the set of fields owned by the hierarchy engine.
type HierarchyFields struct {
	ParentID  *primitive.ObjectID  `bson:"parentId" json:"parentId"`
	Level     int                  `bson:"level" json:"level"`
	Path      string               `bson:"path" json:"path"`
	PathArray []primitive.ObjectID `bson:"pathArray" json:"pathArray"`
}

func (c *Category) IsLeaf() bool {
	return !c.HasChildren
}

func (c *Category) Hierarchy() HierarchyFields {
	return HierarchyFields{
		ParentID:  c.ParentID,
		Level:     c.Level,
		Path:      c.Path,
		PathArray: c.PathArray,
	}
}

func (c *Category) ApplyHierarchy(h HierarchyFields) {
	c.ParentID = h.ParentID
	c.Level = h.Level
	c.Path = h.Path
	c.PathArray = h.PathArray
}

// CategoryNode is a Category with its children materialised, used for tree responses.
type CategoryNode struct {
	Category `bson:",inline"`
	Children []*CategoryNode `bson:"-" json:"children"`
}

// CategorySummary is the denormalised shape other collections embed.
type CategorySummary struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	ExternalID string             `bson:"externalId" json:"externalId"`
	Name       string             `bson:"name" json:"name"`
	Level      int                `bson:"level" json:"level"`
	IsLeaf     bool               `bson:"isLeaf" json:"isLeaf"`
}

func (c *Category) Summary() CategorySummary {
	return CategorySummary{
		ID:         c.ID,
		ExternalID: c.ExternalID,
		Name:       c.Name,
		Level:      c.Level,
		IsLeaf:     c.IsLeaf(),
	}
}

// CategoryPatch carries caller-settable scalar fields. Nil means unchanged.
type CategoryPatch struct {
	Name           *string           `json:"name,omitempty"`
	ExternalID     *string           `json:"externalId,omitempty"`
	Description    *string           `json:"description,omitempty"`
	Keywords       *[]string         `json:"keywords,omitempty"`
	Status         *string           `json:"status,omitempty"`
	SequenceNumber *int              `json:"sequenceNumber,omitempty"`
	Metadata       *CategoryMetadata `json:"metadata,omitempty"`
	Evidences      *[]Evidence       `json:"evidences,omitempty"`
	UpdatedBy      string            `json:"-"`
}

func (p CategoryPatch) IsEmpty() bool {
	return p.Name == nil && p.ExternalID == nil && p.Description == nil && p.Keywords == nil &&
		p.Status == nil && p.SequenceNumber == nil && p.Metadata == nil && p.Evidences == nil
}

// Apply copies the non-nil patch fields onto c.
func (p CategoryPatch) Apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.ExternalID != nil {
		c.ExternalID = *p.ExternalID
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Keywords != nil {
		c.Keywords = append([]string(nil), (*p.Keywords)...)
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.SequenceNumber != nil {
		c.SequenceNumber = *p.SequenceNumber
	}
	if p.Metadata != nil {
		c.Metadata = *p.Metadata
	}
	if p.Evidences != nil {
		c.Evidences = append([]Evidence(nil), (*p.Evidences)...)
	}
	if p.UpdatedBy != "" {
		c.UpdatedBy = p.UpdatedBy
	}
}
