package contact

import (
	"context"
	"errors"

	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CrossReferenceStore maps linked identifiers to canonical contacts
type CrossReferenceStore struct {
	contacts contact.ContactRepository
	entries  contact.CrossReferenceRepository
}

// NewCrossReferenceStore creates a new CrossReferenceStore
func NewCrossReferenceStore(contacts contact.ContactRepository, entries contact.CrossReferenceRepository) *CrossReferenceStore {
	return &CrossReferenceStore{
		contacts: contacts,
		entries:  entries,
	}
}

// Associate points linkedID at contactID. Associating the same pair twice is
// a no-op; associating a linked identifier that belongs to another contact
// re-points it and reports the previous owner.
func (s *CrossReferenceStore) Associate(ctx context.Context, tenantID uuid.UUID, linkedID string, contactID uuid.UUID) (contact.AssociationResult, error) {
	// a cancelled resolution must not leave an entry behind
	if err := ctx.Err(); err != nil {
		return contact.AssociationResult{}, err
	}
	if contact.Classify(linkedID) != contact.KindLinked {
		return contact.AssociationResult{}, contact.ErrMalformedIdentifier
	}

	exists, err := s.contacts.ExistsByIDForTenant(ctx, tenantID, contactID)
	if err != nil {
		return contact.AssociationResult{}, contact.NewPersistenceError("associate: check contact", err)
	}
	if !exists {
		return contact.AssociationResult{}, contact.ErrStaleContact
	}

	result, err := s.entries.Upsert(ctx, tenantID, linkedID, contactID)
	if err != nil {
		return contact.AssociationResult{}, contact.NewPersistenceError("associate: upsert entry", err)
	}
	return result, nil
}

// Lookup returns the contact mapped to linkedID, or shared.ErrNotFound.
// An entry pointing at a deleted contact is reported as a miss; the next
// association corrects it.
func (s *CrossReferenceStore) Lookup(ctx context.Context, tenantID uuid.UUID, linkedID string) (*contact.Contact, error) {
	entry, err := s.entries.FindByLinkedIdentifier(ctx, tenantID, linkedID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, contact.NewPersistenceError("lookup entry", err)
	}

	c, err := s.contacts.FindByIDForTenant(ctx, tenantID, entry.ContactID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, contact.NewPersistenceError("lookup entry contact", err)
	}
	return c, nil
}
