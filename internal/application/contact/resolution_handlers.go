package contact

import (
	"context"
	"fmt"

	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/chatdesk/backend/internal/infrastructure/logger"
	"github.com/chatdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

var resolutionEventTypes = []string{
	contact.EventTypeContactCreated,
	contact.EventTypeContactMatched,
	contact.EventTypeContactMerged,
}

// ResolutionMetricsHandler counts resolution events
type ResolutionMetricsHandler struct {
	metrics *telemetry.IdentityMetrics
}

// NewResolutionMetricsHandler creates a new ResolutionMetricsHandler
func NewResolutionMetricsHandler(metrics *telemetry.IdentityMetrics) *ResolutionMetricsHandler {
	return &ResolutionMetricsHandler{metrics: metrics}
}

// EventTypes returns the event types this handler is interested in
func (h *ResolutionMetricsHandler) EventTypes() []string {
	return resolutionEventTypes
}

// Handle records the event on the events counter
func (h *ResolutionMetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	resolutionEvent, ok := event.(contact.ResolutionEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	h.metrics.RecordEvent(ctx, event.TenantID(), event.EventType(), string(resolutionEvent.ResolutionNamespace()))
	return nil
}

// ResolutionAuditLogHandler writes one structured log line per resolution event
type ResolutionAuditLogHandler struct {
	logger *zap.Logger
}

// NewResolutionAuditLogHandler creates a new ResolutionAuditLogHandler
func NewResolutionAuditLogHandler(zapLogger *zap.Logger) *ResolutionAuditLogHandler {
	return &ResolutionAuditLogHandler{logger: zapLogger}
}

// EventTypes returns the event types this handler is interested in
func (h *ResolutionAuditLogHandler) EventTypes() []string {
	return resolutionEventTypes
}

// Handle logs the event
func (h *ResolutionAuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
		zap.String("aggregate", event.AggregateType()+"/"+event.AggregateID().String()),
	}

	switch e := event.(type) {
	case *contact.ContactCreatedEvent:
		fields = append(fields,
			zap.String("contact_id", e.ContactID.String()),
			zap.String("primary_address", e.PrimaryAddress),
			zap.String("namespace", string(e.Namespace)),
		)
	case *contact.ContactMatchedEvent:
		fields = append(fields,
			zap.String("contact_id", e.ContactID.String()),
			zap.String("linked_identifier", e.LinkedIdentifier),
			zap.String("namespace", string(e.Namespace)),
		)
	case *contact.ContactMergedEvent:
		fields = append(fields,
			zap.String("winner_id", e.WinnerID.String()),
			zap.String("loser_id", e.LoserID.String()),
			zap.String("namespace", string(e.Namespace)),
			zap.Int64("messages_moved", e.Stats.MessagesMoved),
			zap.Int("tickets_closed", e.Stats.TicketsClosed),
			zap.Int64("tickets_moved", e.Stats.TicketsMoved),
			zap.Int64("links_moved", e.Stats.LinksMoved),
		)
	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	logger.WithLogger(ctx, h.logger).Info("identity resolution event", fields...)
	return nil
}
