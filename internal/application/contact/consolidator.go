package contact

import (
	"context"
	"errors"
	"time"

	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/chatdesk/backend/internal/domain/conversation"
	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/chatdesk/backend/internal/infrastructure/logger"
	"github.com/chatdesk/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Consolidator folds a duplicate contact into its canonical contact.
//
// Steps run in order and each one is idempotent, so an interrupted
// consolidation is completed by running it again:
//  1. messages of the loser move to the winner
//  2. open tickets of the loser are closed through the ticket lifecycle
//  3. remaining tickets of the loser move to the winner
//  4. cross-reference entries of the loser move to the winner
//  5. the loser is deleted
//
// Callers must hold the tenant lock.
type Consolidator struct {
	contacts  contact.ContactRepository
	entries   contact.CrossReferenceRepository
	messages  conversation.MessageRepository
	tickets   conversation.TicketRepository
	lifecycle conversation.TicketLifecycle
	metrics   *telemetry.IdentityMetrics
	logger    *zap.Logger
}

// NewConsolidator creates a new Consolidator
func NewConsolidator(
	contacts contact.ContactRepository,
	entries contact.CrossReferenceRepository,
	messages conversation.MessageRepository,
	tickets conversation.TicketRepository,
	lifecycle conversation.TicketLifecycle,
	metrics *telemetry.IdentityMetrics,
	zapLogger *zap.Logger,
) *Consolidator {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &Consolidator{
		contacts:  contacts,
		entries:   entries,
		messages:  messages,
		tickets:   tickets,
		lifecycle: lifecycle,
		metrics:   metrics,
		logger:    zapLogger,
	}
}

// Consolidate moves everything owned by loserID to winnerID and deletes the
// loser. The boolean result is false when there was nothing to merge: the ids
// are equal or the loser no longer exists. Group contacts are never merged.
func (e *Consolidator) Consolidate(ctx context.Context, tenantID, winnerID, loserID uuid.UUID) (contact.MergeStats, bool, error) {
	var stats contact.MergeStats
	if winnerID == loserID {
		return stats, false, nil
	}

	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "consolidator", "consolidate",
		telemetry.AttrTenantID.String(tenantID.String()))
	defer span.End()

	winner, err := e.contacts.FindByIDForTenant(ctx, tenantID, winnerID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return stats, false, contact.ErrStaleContact
	case err != nil:
		telemetry.RecordError(span, err)
		return stats, false, contact.NewPersistenceError("consolidate: load winner", err)
	}

	loser, err := e.contacts.FindByIDForTenant(ctx, tenantID, loserID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return stats, false, nil
	case err != nil:
		telemetry.RecordError(span, err)
		return stats, false, contact.NewPersistenceError("consolidate: load loser", err)
	}

	if winner.IsGroup || loser.IsGroup {
		return stats, false, contact.ErrGroupIdentity
	}

	log := logger.WithLogger(ctx, e.logger).With(
		zap.String("winner_id", winnerID.String()),
		zap.String("loser_id", loserID.String()),
	)

	if stats.MessagesMoved, err = e.messages.ReassignContact(ctx, tenantID, loserID, winnerID); err != nil {
		telemetry.RecordError(span, err)
		return stats, false, contact.NewPersistenceError("consolidate: reassign messages", err)
	}

	open, err := e.tickets.FindNotClosedByContact(ctx, tenantID, loserID)
	if err != nil {
		telemetry.RecordError(span, err)
		return stats, false, contact.NewPersistenceError("consolidate: list open tickets", err)
	}
	for _, t := range open {
		if err := e.lifecycle.Close(ctx, tenantID, t.ID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			telemetry.RecordError(span, err)
			return stats, false, contact.NewPersistenceError("consolidate: close ticket", err)
		}
		stats.TicketsClosed++
	}

	if stats.TicketsMoved, err = e.tickets.ReassignContact(ctx, tenantID, loserID, winnerID); err != nil {
		telemetry.RecordError(span, err)
		return stats, false, contact.NewPersistenceError("consolidate: reassign tickets", err)
	}

	if stats.LinksMoved, err = e.entries.RepointContact(ctx, tenantID, loserID, winnerID); err != nil {
		telemetry.RecordError(span, err)
		return stats, false, contact.NewPersistenceError("consolidate: repoint entries", err)
	}

	if err := e.contacts.DeleteForTenant(ctx, tenantID, loserID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			log.Debug("loser contact already deleted")
			return stats, false, nil
		}
		telemetry.RecordError(span, err)
		return stats, false, contact.NewPersistenceError("consolidate: delete loser", err)
	}

	e.metrics.RecordMerge(ctx, tenantID, time.Since(start))
	log.Info("contacts consolidated",
		zap.Int64("messages_moved", stats.MessagesMoved),
		zap.Int("tickets_closed", stats.TicketsClosed),
		zap.Int64("tickets_moved", stats.TicketsMoved),
		zap.Int64("links_moved", stats.LinksMoved),
	)
	return stats, true, nil
}
