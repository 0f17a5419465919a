package persistence

import (
	"context"
	"errors"

	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/chatdesk/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormContactRepository implements contact.ContactRepository using GORM
type GormContactRepository struct {
	db *gorm.DB
}

// NewGormContactRepository creates a new GormContactRepository
func NewGormContactRepository(db *gorm.DB) *GormContactRepository {
	return &GormContactRepository{db: db}
}

// FindByIDForTenant finds a contact by ID within a tenant
func (r *GormContactRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*contact.Contact, error) {
	var model models.ContactModel
	if err := r.db.WithContext(ctx).Scopes(tenantScope(tenantID)).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindByPrimaryAddress finds a contact by its primary address within a tenant
func (r *GormContactRepository) FindByPrimaryAddress(ctx context.Context, tenantID uuid.UUID, address string) (*contact.Contact, error) {
	var model models.ContactModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("primary_address = ?", address).
		First(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindFirstByPrimaryAddresses finds the oldest contact whose primary address
// is one of the given spellings
func (r *GormContactRepository) FindFirstByPrimaryAddresses(ctx context.Context, tenantID uuid.UUID, addresses []string) (*contact.Contact, error) {
	if len(addresses) == 0 {
		return nil, shared.ErrNotFound
	}
	var model models.ContactModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("primary_address IN ?", addresses).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return model.ToDomain(), nil
}

// FindDuplicates finds contacts whose primary address or linked identifier
// matches any of the given spellings, oldest first
func (r *GormContactRepository) FindDuplicates(ctx context.Context, tenantID uuid.UUID, addresses, linkedIDs []string) ([]contact.Contact, error) {
	if len(addresses) == 0 && len(linkedIDs) == 0 {
		return []contact.Contact{}, nil
	}

	cond := r.db.Where("1 = 0")
	if len(addresses) > 0 {
		cond = cond.Or("primary_address IN ?", addresses)
	}
	if len(linkedIDs) > 0 {
		cond = cond.Or("linked_identifier IN ?", linkedIDs)
	}

	var contactModels []models.ContactModel
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where(cond).
		Order("created_at ASC").
		Find(&contactModels).Error; err != nil {
		return nil, err
	}
	return toContacts(contactModels), nil
}

// FindUnlinkedWithLinkedRaw finds contacts with an empty linked identifier
// whose raw identifier carries the linked suffix, ordered by (created_at, id)
// and starting after the cursor
func (r *GormContactRepository) FindUnlinkedWithLinkedRaw(ctx context.Context, tenantID uuid.UUID, after contact.PageCursor, limit int) ([]contact.Contact, error) {
	var contactModels []models.ContactModel
	query := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("(linked_identifier = '' OR linked_identifier IS NULL)").
		Where("raw_network_identifier LIKE ?", "%"+contact.SuffixLinked+"%").
		Where("is_group = ?", false)
	if after.ID != uuid.Nil {
		query = query.Where("(created_at > ? OR (created_at = ? AND id > ?))", after.CreatedAt, after.CreatedAt, after.ID)
	}
	query = query.Order("created_at ASC").Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&contactModels).Error; err != nil {
		return nil, err
	}
	return toContacts(contactModels), nil
}

// ListTenantIDs lists tenants that own at least one contact
func (r *GormContactRepository) ListTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.ContactModel{}).
		Distinct("tenant_id").
		Order("tenant_id").
		Pluck("tenant_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ExistsByIDForTenant checks whether a contact exists within a tenant
func (r *GormContactRepository) ExistsByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ContactModel{}).
		Scopes(tenantScope(tenantID)).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save updates the contact row, or inserts it when it does not exist yet.
// A primary address already taken within the tenant returns shared.ErrAlreadyExists.
func (r *GormContactRepository) Save(ctx context.Context, c *contact.Contact) error {
	model := models.ContactModelFromDomain(c)

	result := r.db.WithContext(ctx).
		Model(&models.ContactModel{}).
		Where("id = ? AND tenant_id = ?", model.ID, model.TenantID).
		Select("name", "primary_address", "linked_identifier", "raw_network_identifier",
			"is_group", "profile_pic_url", "version", "updated_at").
		Updates(model)
	if result.Error != nil {
		return translateDuplicate(result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	return translateDuplicate(r.db.WithContext(ctx).Create(model).Error)
}

// DeleteForTenant deletes a contact within a tenant
func (r *GormContactRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Delete(&models.ContactModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toContacts(contactModels []models.ContactModel) []contact.Contact {
	contacts := make([]contact.Contact, len(contactModels))
	for i, model := range contactModels {
		contacts[i] = *model.ToDomain()
	}
	return contacts
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

func translateDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

var _ contact.ContactRepository = (*GormContactRepository)(nil)
