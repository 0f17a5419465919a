package contact

import (
	"context"
	"errors"
	"fmt"

	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/chatdesk/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBackfillBatchSize is the number of contacts handled per lock acquisition
const DefaultBackfillBatchSize = 500

// BackfillResult summarizes a backfill run for one tenant
type BackfillResult struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Scanned  int       `json:"scanned"`
	Updated  int       `json:"updated"`
	Skipped  int       `json:"skipped"`
}

// BackfillService stores the linked identifier of contacts that were created
// before linked identifiers were tracked. Their raw identifier still carries it.
type BackfillService struct {
	contacts  contact.ContactRepository
	crossRefs *CrossReferenceStore
	locker    TenantLocker
	batchSize int
	logger    *zap.Logger
}

// NewBackfillService creates a new BackfillService
func NewBackfillService(contacts contact.ContactRepository, crossRefs *CrossReferenceStore, locker TenantLocker, batchSize int, zapLogger *zap.Logger) *BackfillService {
	if batchSize <= 0 {
		batchSize = DefaultBackfillBatchSize
	}
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &BackfillService{
		contacts:  contacts,
		crossRefs: crossRefs,
		locker:    locker,
		batchSize: batchSize,
		logger:    zapLogger,
	}
}

// TenantIDs lists the tenants a full backfill has to visit
func (s *BackfillService) TenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := s.contacts.ListTenantIDs(ctx)
	if err != nil {
		return nil, contact.NewPersistenceError("list tenants", err)
	}
	return ids, nil
}

// Run backfills every eligible contact of a tenant, one batch per lock hold.
// Batches page forward by creation order, so a skipped contact is visited once.
func (s *BackfillService) Run(ctx context.Context, tenantID uuid.UUID) (BackfillResult, error) {
	result := BackfillResult{TenantID: tenantID}
	log := logger.WithLogger(ctx, s.logger).With(zap.String("tenant_id", tenantID.String()))

	var cursor contact.PageCursor
	for {
		next, scanned, err := s.runBatch(ctx, tenantID, cursor, &result)
		if err != nil {
			return result, err
		}
		if scanned < s.batchSize {
			break
		}
		cursor = next
	}

	log.Info("linked identifier backfill finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *BackfillService) runBatch(ctx context.Context, tenantID uuid.UUID, after contact.PageCursor, result *BackfillResult) (contact.PageCursor, int, error) {
	unlock, err := s.locker.Lock(ctx, tenantID)
	if err != nil {
		return after, 0, fmt.Errorf("%w: %w", ErrTenantBusy, err)
	}
	defer unlock()

	batch, err := s.contacts.FindUnlinkedWithLinkedRaw(ctx, tenantID, after, s.batchSize)
	if err != nil {
		return after, 0, contact.NewPersistenceError("backfill: list contacts", err)
	}

	for i := range batch {
		c := &batch[i]
		cursor := c.Cursor()
		result.Scanned++

		ok, err := s.backfillOne(ctx, c)
		if err != nil {
			return after, len(batch), err
		}
		if ok {
			result.Updated++
		} else {
			result.Skipped++
		}
		after = cursor
	}
	return after, len(batch), nil
}

func (s *BackfillService) backfillOne(ctx context.Context, c *contact.Contact) (bool, error) {
	linkedID, ok := contact.LinkedFormOf(c.RawNetworkIdentifier)
	if !ok {
		return false, nil
	}

	owner, err := s.crossRefs.Lookup(ctx, c.TenantID, linkedID)
	switch {
	case err == nil && owner.ID != c.ID:
		// the linked identifier already belongs to another live contact
		logger.WithLogger(ctx, s.logger).Debug("backfill skipped, linked identifier owned elsewhere",
			zap.String("contact_id", c.ID.String()),
			zap.String("owner_id", owner.ID.String()),
		)
		return false, nil
	case err != nil && !errors.Is(err, shared.ErrNotFound):
		return false, err
	}

	raw := c.RawNetworkIdentifier
	if err := c.ObserveLinkedIdentifier(linkedID); err != nil {
		return false, nil
	}
	c.ObserveRawIdentifier(raw)
	c.IncrementVersion()
	if err := s.contacts.Save(ctx, c); err != nil {
		return false, contact.NewPersistenceError("backfill: save contact", err)
	}

	if _, err := s.crossRefs.Associate(ctx, c.TenantID, linkedID, c.ID); err != nil {
		return false, err
	}
	return true, nil
}
