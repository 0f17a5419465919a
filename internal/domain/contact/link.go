package contact

import (
	"time"

	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// LinkedIdentifierEntry maps a linked identifier to a canonical contact.
// It references the contact without owning it. (TenantID, LinkedIdentifier)
// is unique.
type LinkedIdentifierEntry struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	LinkedIdentifier string
	ContactID        uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewLinkedIdentifierEntry creates a new cross-reference entry
func NewLinkedIdentifierEntry(tenantID uuid.UUID, linkedID string, contactID uuid.UUID) (*LinkedIdentifierEntry, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if contactID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONTACT", "Contact ID cannot be empty")
	}
	if Classify(linkedID) != KindLinked {
		return nil, ErrMalformedIdentifier
	}

	now := time.Now()
	return &LinkedIdentifierEntry{
		ID:               uuid.New(),
		TenantID:         tenantID,
		LinkedIdentifier: linkedID,
		ContactID:        contactID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// AssociationResult reports what an association changed
type AssociationResult struct {
	// Created is true when no entry existed before
	Created bool
	// Repointed is true when the entry pointed at another contact before
	Repointed bool
	// Previous is the contact the entry pointed at before a re-point
	Previous uuid.UUID
}
