package models

import (
	"time"

	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ContactModel is the persistence model for the Contact aggregate.
// (tenant_id, primary_address) is unique.
type ContactModel struct {
	ID                   uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID             uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_contacts_tenant_address,priority:1;index:idx_contacts_tenant_linked,priority:1"`
	Name                 string    `gorm:"type:varchar(200);not null"`
	PrimaryAddress       string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_contacts_tenant_address,priority:2"`
	LinkedIdentifier     string    `gorm:"type:varchar(128);not null;default:'';index:idx_contacts_tenant_linked,priority:2"`
	RawNetworkIdentifier string    `gorm:"type:varchar(160);not null;default:''"`
	IsGroup              bool      `gorm:"not null;default:false"`
	ProfilePicURL        string    `gorm:"type:text;not null;default:''"`
	Version              int       `gorm:"not null;default:1"`
	CreatedAt            time.Time `gorm:"not null"`
	UpdatedAt            time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ContactModel) TableName() string {
	return "contacts"
}

// ToDomain converts the persistence model to a domain Contact
func (m *ContactModel) ToDomain() *contact.Contact {
	c := &contact.Contact{
		Name:                 m.Name,
		PrimaryAddress:       m.PrimaryAddress,
		LinkedIdentifier:     m.LinkedIdentifier,
		RawNetworkIdentifier: m.RawNetworkIdentifier,
		IsGroup:              m.IsGroup,
		ProfilePicURL:        m.ProfilePicURL,
	}
	c.TenantAggregateRoot = shared.TenantAggregateRoot{TenantID: m.TenantID}
	c.ID = m.ID
	c.Version = m.Version
	c.CreatedAt = m.CreatedAt
	c.UpdatedAt = m.UpdatedAt
	return c
}

// ContactModelFromDomain creates a persistence model from a domain Contact
func ContactModelFromDomain(c *contact.Contact) *ContactModel {
	return &ContactModel{
		ID:                   c.ID,
		TenantID:             c.TenantID,
		Name:                 c.Name,
		PrimaryAddress:       c.PrimaryAddress,
		LinkedIdentifier:     c.LinkedIdentifier,
		RawNetworkIdentifier: c.RawNetworkIdentifier,
		IsGroup:              c.IsGroup,
		ProfilePicURL:        c.ProfilePicURL,
		Version:              c.Version,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

// LinkedIdentifierModel is the persistence model for a cross-reference entry.
// (tenant_id, linked_identifier) is unique.
type LinkedIdentifierModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_linked_identifiers_tenant_lid,priority:1;index:idx_linked_identifiers_contact,priority:1"`
	LinkedIdentifier string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_linked_identifiers_tenant_lid,priority:2"`
	ContactID        uuid.UUID `gorm:"type:uuid;not null;index:idx_linked_identifiers_contact,priority:2"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LinkedIdentifierModel) TableName() string {
	return "contact_linked_identifiers"
}

// ToDomain converts the persistence model to a domain entry
func (m *LinkedIdentifierModel) ToDomain() *contact.LinkedIdentifierEntry {
	return &contact.LinkedIdentifierEntry{
		ID:               m.ID,
		TenantID:         m.TenantID,
		LinkedIdentifier: m.LinkedIdentifier,
		ContactID:        m.ContactID,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// LinkedIdentifierModelFromDomain creates a persistence model from a domain entry
func LinkedIdentifierModelFromDomain(e *contact.LinkedIdentifierEntry) *LinkedIdentifierModel {
	return &LinkedIdentifierModel{
		ID:               e.ID,
		TenantID:         e.TenantID,
		LinkedIdentifier: e.LinkedIdentifier,
		ContactID:        e.ContactID,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}
