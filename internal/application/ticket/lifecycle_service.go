// Package ticket provides the ticket lifecycle used when conversations change hands.
package ticket

import (
	"context"
	"errors"

	"github.com/chatdesk/backend/internal/domain/conversation"
	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/chatdesk/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxCloseAttempts bounds retries after an optimistic locking conflict
const maxCloseAttempts = 3

// LifecycleService drives tickets through their states so that subscribers
// of ticket events (timers, notifications, audit) observe every transition
type LifecycleService struct {
	tickets        conversation.TicketRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(tickets conversation.TicketRepository, zapLogger *zap.Logger) *LifecycleService {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &LifecycleService{
		tickets: tickets,
		logger:  zapLogger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *LifecycleService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Close closes a ticket. Closing an already closed ticket is a no-op.
func (s *LifecycleService) Close(ctx context.Context, tenantID, ticketID uuid.UUID) error {
	var err error
	for attempt := 0; attempt < maxCloseAttempts; attempt++ {
		err = s.close(ctx, tenantID, ticketID)
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
	}
	return err
}

func (s *LifecycleService) close(ctx context.Context, tenantID, ticketID uuid.UUID) error {
	t, err := s.tickets.FindByIDForTenant(ctx, tenantID, ticketID)
	if err != nil {
		return err
	}

	if !t.Close() {
		return nil
	}

	if err := s.tickets.Save(ctx, t); err != nil {
		return err
	}

	if s.eventPublisher != nil {
		events := t.GetDomainEvents()
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			logger.WithLogger(ctx, s.logger).Warn("failed to publish ticket events",
				zap.String("ticket_id", t.ID.String()), zap.Error(err))
		}
		t.ClearDomainEvents()
	}
	return nil
}
