package persistence

import (
	"context"
	"time"

	"github.com/chatdesk/backend/internal/domain/conversation"
	"github.com/chatdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMessageRepository implements conversation.MessageRepository using GORM
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GormMessageRepository
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Create stores a new message
func (r *GormMessageRepository) Create(ctx context.Context, msg *conversation.Message) error {
	return r.db.WithContext(ctx).Create(models.MessageModelFromDomain(msg)).Error
}

// ReassignContact moves every message of one contact to another
func (r *GormMessageRepository) ReassignContact(ctx context.Context, tenantID, fromContactID, toContactID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Scopes(tenantScope(tenantID)).
		Where("contact_id = ?", fromContactID).
		Updates(map[string]any{
			"contact_id": toContactID,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// CountByContact counts messages owned by a contact
func (r *GormMessageRepository) CountByContact(ctx context.Context, tenantID, contactID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Scopes(tenantScope(tenantID)).
		Where("contact_id = ?", contactID).
		Count(&count).Error
	return count, err
}

var _ conversation.MessageRepository = (*GormMessageRepository)(nil)
