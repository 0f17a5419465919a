package contact

import (
	"strings"

	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Contact is the canonical identity record of a correspondent within a tenant.
// PrimaryAddress is unique per tenant and is the stable lookup key.
type Contact struct {
	shared.TenantAggregateRoot
	Name                 string
	PrimaryAddress       string
	LinkedIdentifier     string // last-seen LID, may be empty
	RawNetworkIdentifier string // last-seen raw identifier exactly as received
	IsGroup              bool
	ProfilePicURL        string
}

// NewContact creates a new contact for a PN or group address
func NewContact(tenantID uuid.UUID, primaryAddress, name string, isGroup bool) (*Contact, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}

	address := Normalize(primaryAddress)
	kind := Classify(address)
	switch {
	case kind == KindMalformed:
		return nil, ErrMalformedIdentifier
	case kind == KindLinked:
		return nil, shared.NewDomainError("INVALID_PRIMARY_ADDRESS", "Primary address cannot be a linked identifier")
	case isGroup != (kind == KindGroup):
		return nil, shared.NewDomainError("INVALID_PRIMARY_ADDRESS", "Primary address namespace does not match group flag")
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DigitsOf(address)
	}

	return &Contact{
		TenantAggregateRoot:  shared.NewTenantAggregateRoot(tenantID),
		Name:                 truncateName(name),
		PrimaryAddress:       address,
		RawNetworkIdentifier: address,
		IsGroup:              isGroup,
	}, nil
}

// UpdateProfile refreshes display data; empty values keep the current ones
func (c *Contact) UpdateProfile(name, profilePicURL string) {
	if name = strings.TrimSpace(name); name != "" {
		c.Name = truncateName(name)
	}
	if profilePicURL != "" {
		c.ProfilePicURL = profilePicURL
	}
	c.Touch()
}

// ObserveRawIdentifier records the identifier an event was received from
func (c *Contact) ObserveRawIdentifier(raw string) {
	if raw = strings.TrimSpace(raw); raw == "" {
		return
	}
	c.RawNetworkIdentifier = raw
	c.Touch()
}

// ObserveLinkedIdentifier records a linked identifier for this contact.
// The most recently observed value wins over anything stored before.
func (c *Contact) ObserveLinkedIdentifier(linkedID string) error {
	if c.IsGroup {
		return ErrGroupIdentity
	}
	if Classify(linkedID) != KindLinked {
		return ErrMalformedIdentifier
	}
	c.LinkedIdentifier = linkedID
	c.RawNetworkIdentifier = linkedID
	c.Touch()
	return nil
}

// ChangePrimaryAddress moves the contact to another PN address
func (c *Contact) ChangePrimaryAddress(address string) error {
	address = Normalize(address)
	if c.IsGroup {
		return ErrGroupIdentity
	}
	if Classify(address) != KindSingleParty {
		return ErrMalformedIdentifier
	}
	c.PrimaryAddress = address
	c.Touch()
	return nil
}

// Namespace returns the namespace of the contact's primary address
func (c *Contact) Namespace() Namespace {
	if c.IsGroup {
		return NamespaceGroup
	}
	return NamespacePhone
}

// RecordCreated registers a ContactCreated event
func (c *Contact) RecordCreated(ns Namespace) {
	c.AddDomainEvent(NewContactCreatedEvent(c, ns))
}

// RecordMatched registers a ContactMatched event
func (c *Contact) RecordMatched(ns Namespace) {
	c.AddDomainEvent(NewContactMatchedEvent(c, ns))
}

// RecordMerged registers a ContactMerged event for a loser folded into this contact
func (c *Contact) RecordMerged(loserID uuid.UUID, ns Namespace, stats MergeStats) {
	c.AddDomainEvent(NewContactMergedEvent(c, loserID, ns, stats))
}

// MergeStats summarizes the rows a consolidation touched
type MergeStats struct {
	MessagesMoved int64 `json:"messages_moved"`
	TicketsClosed int   `json:"tickets_closed"`
	TicketsMoved  int64 `json:"tickets_moved"`
	LinksMoved    int64 `json:"links_moved"`
}

const maxNameLength = 200

func truncateName(name string) string {
	r := []rune(name)
	if len(r) > maxNameLength {
		return string(r[:maxNameLength])
	}
	return name
}
