package contact

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PageCursor marks the last contact of a page ordered by creation time and id.
// The zero cursor starts at the beginning.
type PageCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Cursor returns the page cursor positioned on c
func (c *Contact) Cursor() PageCursor {
	return PageCursor{CreatedAt: c.CreatedAt, ID: c.ID}
}

// ContactRepository defines the interface for contact persistence
type ContactRepository interface {
	// FindByIDForTenant finds a contact by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Contact, error)

	// FindByPrimaryAddress finds a contact by its primary address within a tenant
	FindByPrimaryAddress(ctx context.Context, tenantID uuid.UUID, address string) (*Contact, error)

	// FindFirstByPrimaryAddresses finds the oldest contact whose primary address
	// is one of the given spellings
	FindFirstByPrimaryAddresses(ctx context.Context, tenantID uuid.UUID, addresses []string) (*Contact, error)

	// FindDuplicates finds contacts whose primary address or linked identifier
	// matches any of the given spellings
	FindDuplicates(ctx context.Context, tenantID uuid.UUID, addresses, linkedIDs []string) ([]Contact, error)

	// FindUnlinkedWithLinkedRaw finds contacts with an empty linked identifier
	// whose raw identifier is a linked identifier, in creation order after the cursor
	FindUnlinkedWithLinkedRaw(ctx context.Context, tenantID uuid.UUID, after PageCursor, limit int) ([]Contact, error)

	// ListTenantIDs lists tenants that own at least one contact
	ListTenantIDs(ctx context.Context) ([]uuid.UUID, error)

	// ExistsByIDForTenant checks whether a contact exists within a tenant
	ExistsByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (bool, error)

	// Save creates or updates a contact. Creating a second contact with the
	// same primary address returns shared.ErrAlreadyExists.
	Save(ctx context.Context, c *Contact) error

	// DeleteForTenant deletes a contact within a tenant
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}

// CrossReferenceRepository defines the interface for linked identifier entries
type CrossReferenceRepository interface {
	// FindByLinkedIdentifier finds the entry for a linked identifier within a tenant
	FindByLinkedIdentifier(ctx context.Context, tenantID uuid.UUID, linkedID string) (*LinkedIdentifierEntry, error)

	// FindByContact lists entries pointing at a contact
	FindByContact(ctx context.Context, tenantID, contactID uuid.UUID) ([]LinkedIdentifierEntry, error)

	// Upsert points the linked identifier at contactID with single-row upsert semantics
	Upsert(ctx context.Context, tenantID uuid.UUID, linkedID string, contactID uuid.UUID) (AssociationResult, error)

	// RepointContact moves every entry of one contact to another
	RepointContact(ctx context.Context, tenantID, fromContactID, toContactID uuid.UUID) (int64, error)
}
