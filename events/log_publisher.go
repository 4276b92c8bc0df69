package events

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher only logs events. Used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, events []CategorySyncEvent) error {
	for _, event := range events {
		p.logger.Info("Category sync event",
			zap.String("event_id", event.EventID),
			zap.String("template_id", event.TemplateID),
			zap.String("tenant_id", event.TenantID),
			zap.String("category_id", event.Category.ID),
			zap.String("action", event.Action),
		)
	}
	return nil
}

func (p *LogPublisher) Name() string { return "log" }

func (p *LogPublisher) Close() error { return nil }
