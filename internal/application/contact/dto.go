package contact

import (
	"time"

	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/google/uuid"
)

// ContactResponse represents a contact in API responses
type ContactResponse struct {
	ID                   uuid.UUID `json:"id"`
	TenantID             uuid.UUID `json:"tenant_id"`
	Name                 string    `json:"name"`
	PrimaryAddress       string    `json:"primary_address"`
	LinkedIdentifier     string    `json:"linked_identifier,omitempty"`
	RawNetworkIdentifier string    `json:"raw_network_identifier"`
	IsGroup              bool      `json:"is_group"`
	ProfilePicURL        string    `json:"profile_pic_url,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ToContactResponse converts a domain Contact to a ContactResponse
func ToContactResponse(c *contact.Contact) ContactResponse {
	return ContactResponse{
		ID:                   c.ID,
		TenantID:             c.TenantID,
		Name:                 c.Name,
		PrimaryAddress:       c.PrimaryAddress,
		LinkedIdentifier:     c.LinkedIdentifier,
		RawNetworkIdentifier: c.RawNetworkIdentifier,
		IsGroup:              c.IsGroup,
		ProfilePicURL:        c.ProfilePicURL,
		CreatedAt:            c.CreatedAt,
		UpdatedAt:            c.UpdatedAt,
	}
}

// OutboundAddressResponse carries the address outbound traffic should use
type OutboundAddressResponse struct {
	ContactID uuid.UUID `json:"contact_id"`
	Address   string    `json:"address"`
}
