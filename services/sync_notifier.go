package services

import (
	"context"
	"sync"
	"time"

	"github.com/ELEVATE-Project/project-service-sub000/events"
	"github.com/ELEVATE-Project/project-service-sub000/metrics"
	"github.com/ELEVATE-Project/project-service-sub000/models"
	"github.com/ELEVATE-Project/project-service-sub000/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SyncNotifier tells the template sync worker that categories changed. It never
// reports failure to the caller: by the time it runs the mutation has committed.
type SyncNotifier struct {
	templates store.TemplateStore
	publisher events.Publisher
	logger    *zap.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewSyncNotifier(templates store.TemplateStore, publisher events.Publisher, logger *zap.Logger, m *metrics.Metrics, timeout time.Duration) *SyncNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SyncNotifier{
		templates: templates,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		timeout:   timeout,
	}
}

// CategoriesChanged publishes one event per (referencing template, category) in the background.
func (n *SyncNotifier) CategoriesChanged(tenantID string, categories ...models.Category) {
	if len(categories) == 0 {
		return
	}

	payloads := make(map[primitive.ObjectID]events.CategoryPayload, len(categories))
	ids := make([]primitive.ObjectID, 0, len(categories))
	for i := range categories {
		c := &categories[i]
		if _, seen := payloads[c.ID]; seen {
			continue
		}
		payloads[c.ID] = categoryPayload(c)
		ids = append(ids, c.ID)
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		refs, err := n.templates.FindReferencing(ctx, tenantID, ids)
		if err != nil {
			n.logger.Error("Failed to resolve templates for category sync",
				zap.String("tenant_id", tenantID),
				zap.Int("categories", len(ids)),
				zap.Error(err),
			)
			return
		}

		var batch []events.CategorySyncEvent
		for _, ref := range refs {
			for _, categoryID := range ref.CategoryIDs {
				payload, ok := payloads[categoryID]
				if !ok {
					continue
				}
				batch = append(batch, events.NewCategorySyncEvent(tenantID, ref.ID.Hex(), payload))
			}
		}
		n.publish(ctx, batch)
	}()
}

// Wait blocks until every background notification has finished.
func (n *SyncNotifier) Wait() {
	n.wg.Wait()
}

func (n *SyncNotifier) publish(ctx context.Context, batch []events.CategorySyncEvent) {
	if len(batch) == 0 {
		return
	}

	if err := n.publisher.Publish(ctx, batch); err != nil {
		n.metrics.RecordSyncEvents(n.publisher.Name(), metrics.OutcomeError, len(batch))
		n.logger.Warn("Category sync publish failed",
			zap.String("transport", n.publisher.Name()),
			zap.Int("events", len(batch)),
			zap.Error(err),
		)
		return
	}
	n.metrics.RecordSyncEvents(n.publisher.Name(), metrics.OutcomeSuccess, len(batch))
	n.logger.Debug("Category sync events published",
		zap.String("transport", n.publisher.Name()),
		zap.Int("events", len(batch)),
	)
}

func categoryPayload(c *models.Category) events.CategoryPayload {
	return events.CategoryPayload{
		ID:         c.ID.Hex(),
		Name:       c.Name,
		ExternalID: c.ExternalID,
		Level:      c.Level,
		IsLeaf:     c.IsLeaf(),
	}
}
