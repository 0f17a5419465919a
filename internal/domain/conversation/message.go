package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is a logged conversational event owned by a contact
type Message struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	ContactID uuid.UUID
	TicketID  *uuid.UUID
	Body      string
	FromMe    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewMessage creates a message owned by a contact
func NewMessage(tenantID, contactID uuid.UUID, body string, fromMe bool) *Message {
	now := time.Now()
	return &Message{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ContactID: contactID,
		Body:      body,
		FromMe:    fromMe,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MessageRepository defines the message operations the identity engine needs
type MessageRepository interface {
	// ReassignContact moves every message of one contact to another and
	// returns the number of rows moved
	ReassignContact(ctx context.Context, tenantID, fromContactID, toContactID uuid.UUID) (int64, error)

	// CountByContact counts messages owned by a contact
	CountByContact(ctx context.Context, tenantID, contactID uuid.UUID) (int64, error)
}
