package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TemplateStatusPublished = "published"
	TemplateStatusDraft     = "draft"
)

// ProjectTemplate is owned by the template workflow; this service only reads the
// category references and pulls deleted categories out of them.
type ProjectTemplate struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID   string             `bson:"tenantId" json:"tenantId"`
	ExternalID string             `bson:"externalId" json:"externalId"`
	Title      string             `bson:"title" json:"title"`
	Status     string             `bson:"status" json:"status"`
	IsReusable bool               `bson:"isReusable" json:"isReusable"`
	IsDeleted  bool               `bson:"isDeleted" json:"isDeleted"`
	Categories []CategorySummary  `bson:"categories" json:"categories"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// TemplateRef identifies a template that references one or more categories.
type TemplateRef struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	Title       string               `bson:"title" json:"title"`
	CategoryIDs []primitive.ObjectID `bson:"categoryIds" json:"categoryIds"`
}

// CategoryReference is the per-category usage breakdown reported by the deletion guard.
type CategoryReference struct {
	CategoryID   primitive.ObjectID `bson:"_id" json:"categoryId"`
	CategoryName string             `bson:"categoryName" json:"categoryName"`
	ProjectCount int                `bson:"projectCount" json:"projectCount"`
	SampleTitles []string           `bson:"sampleTitles" json:"sampleTitles"`
}
