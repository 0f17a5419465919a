package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/chatdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxRepointAttempts bounds the read-compare-update loop in Upsert when a
// concurrent writer keeps moving the same entry
const maxRepointAttempts = 3

// GormCrossReferenceRepository implements contact.CrossReferenceRepository using GORM
type GormCrossReferenceRepository struct {
	db *gorm.DB
}

// NewGormCrossReferenceRepository creates a new GormCrossReferenceRepository
func NewGormCrossReferenceRepository(db *gorm.DB) *GormCrossReferenceRepository {
	return &GormCrossReferenceRepository{db: db}
}

// FindByLinkedIdentifier finds the entry for a linked identifier within a tenant
func (r *GormCrossReferenceRepository) FindByLinkedIdentifier(ctx context.Context, tenantID uuid.UUID, linkedID string) (*contact.LinkedIdentifierEntry, error) {
	var model models.LinkedIdentifierModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("linked_identifier = ?", linkedID).
		First(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByContact lists entries pointing at a contact
func (r *GormCrossReferenceRepository) FindByContact(ctx context.Context, tenantID, contactID uuid.UUID) ([]contact.LinkedIdentifierEntry, error) {
	var entryModels []models.LinkedIdentifierModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("contact_id = ?", contactID).
		Order("created_at ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}

	entries := make([]contact.LinkedIdentifierEntry, len(entryModels))
	for i, model := range entryModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// Upsert points linkedID at contactID. The insert relies on the
// (tenant_id, linked_identifier) unique key, so two writers never produce
// two rows; an existing row is re-pointed only if it still references the
// contact that was read.
func (r *GormCrossReferenceRepository) Upsert(ctx context.Context, tenantID uuid.UUID, linkedID string, contactID uuid.UUID) (contact.AssociationResult, error) {
	entry, err := contact.NewLinkedIdentifierEntry(tenantID, linkedID, contactID)
	if err != nil {
		return contact.AssociationResult{}, err
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "linked_identifier"}},
			DoNothing: true,
		}).
		Create(models.LinkedIdentifierModelFromDomain(entry))
	if result.Error != nil {
		return contact.AssociationResult{}, result.Error
	}
	if result.RowsAffected == 1 {
		return contact.AssociationResult{Created: true}, nil
	}

	for attempt := 0; attempt < maxRepointAttempts; attempt++ {
		existing, err := r.FindByLinkedIdentifier(ctx, tenantID, linkedID)
		if err != nil {
			return contact.AssociationResult{}, err
		}
		if existing.ContactID == contactID {
			return contact.AssociationResult{}, nil
		}

		update := r.db.WithContext(ctx).
			Model(&models.LinkedIdentifierModel{}).
			Scopes(tenantScope(tenantID)).
			Where("linked_identifier = ? AND contact_id = ?", linkedID, existing.ContactID).
			Updates(map[string]any{
				"contact_id": contactID,
				"updated_at": time.Now(),
			})
		if update.Error != nil {
			return contact.AssociationResult{}, update.Error
		}
		if update.RowsAffected == 1 {
			return contact.AssociationResult{Repointed: true, Previous: existing.ContactID}, nil
		}
	}

	return contact.AssociationResult{}, fmt.Errorf("re-point %s: %w", linkedID, shared.ErrConcurrencyConflict)
}

// RepointContact moves every entry of one contact to another
func (r *GormCrossReferenceRepository) RepointContact(ctx context.Context, tenantID, fromContactID, toContactID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.LinkedIdentifierModel{}).
		Scopes(tenantScope(tenantID)).
		Where("contact_id = ?", fromContactID).
		Updates(map[string]any{
			"contact_id": toContactID,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

var _ contact.CrossReferenceRepository = (*GormCrossReferenceRepository)(nil)
