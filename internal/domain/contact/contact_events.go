package contact

import (
	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeContact = "Contact"

// Event type constants
const (
	EventTypeContactCreated = "ContactCreated"
	EventTypeContactMatched = "ContactMatched"
	EventTypeContactMerged  = "ContactMerged"
)

// ResolutionEvent is implemented by every event the resolver emits
type ResolutionEvent interface {
	shared.DomainEvent
	ResolutionNamespace() Namespace
}

// ContactCreatedEvent is published when resolution creates a new contact
type ContactCreatedEvent struct {
	shared.BaseDomainEvent
	ContactID      uuid.UUID `json:"contact_id"`
	PrimaryAddress string    `json:"primary_address"`
	Namespace      Namespace `json:"namespace"`
}

// NewContactCreatedEvent creates a new ContactCreatedEvent
func NewContactCreatedEvent(c *Contact, ns Namespace) *ContactCreatedEvent {
	return &ContactCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeContactCreated, AggregateTypeContact, c.ID, c.TenantID),
		ContactID:       c.ID,
		PrimaryAddress:  c.PrimaryAddress,
		Namespace:       ns,
	}
}

// ResolutionNamespace returns the namespace involved
func (e *ContactCreatedEvent) ResolutionNamespace() Namespace { return e.Namespace }

// ContactMatchedEvent is published when resolution finds an existing contact
type ContactMatchedEvent struct {
	shared.BaseDomainEvent
	ContactID        uuid.UUID `json:"contact_id"`
	LinkedIdentifier string    `json:"linked_identifier,omitempty"`
	Namespace        Namespace `json:"namespace"`
}

// NewContactMatchedEvent creates a new ContactMatchedEvent
func NewContactMatchedEvent(c *Contact, ns Namespace) *ContactMatchedEvent {
	return &ContactMatchedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeContactMatched, AggregateTypeContact, c.ID, c.TenantID),
		ContactID:        c.ID,
		LinkedIdentifier: c.LinkedIdentifier,
		Namespace:        ns,
	}
}

// ResolutionNamespace returns the namespace involved
func (e *ContactMatchedEvent) ResolutionNamespace() Namespace { return e.Namespace }

// ContactMergedEvent is published after a duplicate contact was folded into the winner
type ContactMergedEvent struct {
	shared.BaseDomainEvent
	WinnerID  uuid.UUID  `json:"winner_id"`
	LoserID   uuid.UUID  `json:"loser_id"`
	Namespace Namespace  `json:"namespace"`
	Stats     MergeStats `json:"stats"`
}

// NewContactMergedEvent creates a new ContactMergedEvent
func NewContactMergedEvent(winner *Contact, loserID uuid.UUID, ns Namespace, stats MergeStats) *ContactMergedEvent {
	return &ContactMergedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeContactMerged, AggregateTypeContact, winner.ID, winner.TenantID),
		WinnerID:        winner.ID,
		LoserID:         loserID,
		Namespace:       ns,
		Stats:           stats,
	}
}

// ResolutionNamespace returns the namespace involved
func (e *ContactMergedEvent) ResolutionNamespace() Namespace { return e.Namespace }
