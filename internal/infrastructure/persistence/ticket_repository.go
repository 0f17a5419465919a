package persistence

import (
	"context"
	"time"

	"github.com/chatdesk/backend/internal/domain/conversation"
	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/chatdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTicketRepository implements conversation.TicketRepository using GORM
type GormTicketRepository struct {
	db *gorm.DB
}

// NewGormTicketRepository creates a new GormTicketRepository
func NewGormTicketRepository(db *gorm.DB) *GormTicketRepository {
	return &GormTicketRepository{db: db}
}

// FindByIDForTenant finds a ticket by ID within a tenant
func (r *GormTicketRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*conversation.Ticket, error) {
	var model models.TicketModel
	if err := r.db.WithContext(ctx).Scopes(tenantScope(tenantID)).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindNotClosedByContact lists tickets of a contact that are not closed
func (r *GormTicketRepository) FindNotClosedByContact(ctx context.Context, tenantID, contactID uuid.UUID) ([]conversation.Ticket, error) {
	var ticketModels []models.TicketModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("contact_id = ? AND status <> ?", contactID, conversation.TicketStatusClosed).
		Order("created_at ASC").
		Find(&ticketModels).Error; err != nil {
		return nil, err
	}

	tickets := make([]conversation.Ticket, len(ticketModels))
	for i, model := range ticketModels {
		tickets[i] = *model.ToDomain()
	}
	return tickets, nil
}

// Create stores a new ticket
func (r *GormTicketRepository) Create(ctx context.Context, t *conversation.Ticket) error {
	return r.db.WithContext(ctx).Create(models.TicketModelFromDomain(t)).Error
}

// Save persists ticket state changes with optimistic locking: the row must
// still carry the version the aggregate was loaded with.
func (r *GormTicketRepository) Save(ctx context.Context, t *conversation.Ticket) error {
	model := models.TicketModelFromDomain(t)
	result := r.db.WithContext(ctx).
		Model(&models.TicketModel{}).
		Scopes(tenantScope(t.TenantID)).
		Where("id = ? AND version = ?", t.ID, t.Version-1).
		Updates(map[string]any{
			"contact_id": model.ContactID,
			"status":     model.Status,
			"closed_at":  model.ClosedAt,
			"version":    model.Version,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		r.db.WithContext(ctx).Model(&models.TicketModel{}).Scopes(tenantScope(t.TenantID)).Where("id = ?", t.ID).Count(&count)
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// ReassignContact moves every ticket of one contact to another
func (r *GormTicketRepository) ReassignContact(ctx context.Context, tenantID, fromContactID, toContactID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TicketModel{}).
		Scopes(tenantScope(tenantID)).
		Where("contact_id = ?", fromContactID).
		Updates(map[string]any{
			"contact_id": toContactID,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

var _ conversation.TicketRepository = (*GormTicketRepository)(nil)
