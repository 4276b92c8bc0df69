// Package events carries category change notifications to the template sync worker.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const ActionCategoryUpdated = "category_updated"

// CategoryPayload is the category snapshot a template embeds.
type CategoryPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ExternalID string `json:"externalId"`
	Level      int    `json:"level"`
	IsLeaf     bool   `json:"isLeaf"`
}

// CategorySyncEvent asks the sync worker to refresh one category inside one template.
type CategorySyncEvent struct {
	EventID    string          `json:"eventId"`
	TemplateID string          `json:"templateId"`
	TenantID   string          `json:"tenantId"`
	Category   CategoryPayload `json:"category"`
	Action     string          `json:"action"`
	OccurredAt time.Time       `json:"occurredAt"`
}

func NewCategorySyncEvent(tenantID, templateID string, category CategoryPayload) CategorySyncEvent {
	return CategorySyncEvent{
		EventID:    uuid.NewString(),
		TemplateID: templateID,
		TenantID:   tenantID,
		Category:   category,
		Action:     ActionCategoryUpdated,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers events to an outbound channel. Delivery is at-least-once.
type Publisher interface {
	Publish(ctx context.Context, events []CategorySyncEvent) error
	// Name labels the transport in logs and metrics.
	Name() string
	Close() error
}
