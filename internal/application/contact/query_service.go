package contact

import (
	"context"

	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/google/uuid"
)

// QueryService answers read-only questions about contacts
type QueryService struct {
	contacts contact.ContactRepository
}

// NewQueryService creates a new QueryService
func NewQueryService(contacts contact.ContactRepository) *QueryService {
	return &QueryService{contacts: contacts}
}

// GetByID retrieves a contact by ID
func (s *QueryService) GetByID(ctx context.Context, tenantID, contactID uuid.UUID) (*ContactResponse, error) {
	c, err := s.contacts.FindByIDForTenant(ctx, tenantID, contactID)
	if err != nil {
		return nil, err
	}
	response := ToContactResponse(c)
	return &response, nil
}

// OutboundAddress returns the address outbound messages to a contact go to
func (s *QueryService) OutboundAddress(ctx context.Context, tenantID, contactID uuid.UUID) (*OutboundAddressResponse, error) {
	c, err := s.contacts.FindByIDForTenant(ctx, tenantID, contactID)
	if err != nil {
		return nil, err
	}
	return &OutboundAddressResponse{
		ContactID: c.ID,
		Address:   contact.SelectOutboundAddress(c),
	}, nil
}
