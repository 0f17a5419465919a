package conversation

import (
	"context"
	"time"

	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TicketStatus represents the status of a ticket
type TicketStatus string

const (
	TicketStatusOpen    TicketStatus = "open"
	TicketStatusPending TicketStatus = "pending"
	TicketStatusClosed  TicketStatus = "closed"
)

// IsTerminal returns true for statuses that end the ticket lifecycle
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusClosed
}

// Aggregate type constant
const AggregateTypeTicket = "Ticket"

// Event type constants
const EventTypeTicketClosed = "TicketClosed"

// Ticket is a unit of conversation handling owned by a contact
type Ticket struct {
	shared.TenantAggregateRoot
	ContactID uuid.UUID
	Status    TicketStatus
	ClosedAt  *time.Time
}

// NewTicket opens a ticket for a contact
func NewTicket(tenantID, contactID uuid.UUID) (*Ticket, error) {
	if contactID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONTACT", "Contact ID cannot be empty")
	}
	return &Ticket{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ContactID:           contactID,
		Status:              TicketStatusOpen,
	}, nil
}

// Close moves the ticket to the closed state.
// Closing an already closed ticket returns false and records nothing.
func (t *Ticket) Close() bool {
	if t.Status.IsTerminal() {
		return false
	}
	now := time.Now()
	previous := t.Status
	t.Status = TicketStatusClosed
	t.ClosedAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()
	t.AddDomainEvent(NewTicketClosedEvent(t, previous))
	return true
}

// TicketClosedEvent is published when a ticket is closed; downstream timers
// and notifications subscribe to it
type TicketClosedEvent struct {
	shared.BaseDomainEvent
	TicketID       uuid.UUID    `json:"ticket_id"`
	ContactID      uuid.UUID    `json:"contact_id"`
	PreviousStatus TicketStatus `json:"previous_status"`
}

// NewTicketClosedEvent creates a new TicketClosedEvent
func NewTicketClosedEvent(t *Ticket, previous TicketStatus) *TicketClosedEvent {
	return &TicketClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTicketClosed, AggregateTypeTicket, t.ID, t.TenantID),
		TicketID:        t.ID,
		ContactID:       t.ContactID,
		PreviousStatus:  previous,
	}
}

// TicketRepository defines the ticket operations the identity engine needs
type TicketRepository interface {
	// FindByIDForTenant finds a ticket by ID within a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Ticket, error)

	// FindNotClosedByContact lists tickets of a contact that are not closed
	FindNotClosedByContact(ctx context.Context, tenantID, contactID uuid.UUID) ([]Ticket, error)

	// Save persists ticket state changes
	Save(ctx context.Context, t *Ticket) error

	// ReassignContact moves every ticket of one contact to another
	ReassignContact(ctx context.Context, tenantID, fromContactID, toContactID uuid.UUID) (int64, error)
}

// TicketLifecycle closes tickets through their lifecycle so that side
// effects (timers, notifications, audit) fire
type TicketLifecycle interface {
	Close(ctx context.Context, tenantID, ticketID uuid.UUID) error
}
