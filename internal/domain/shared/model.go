package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity carries the identity and timestamps of a stored record
type Entity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewEntity returns an Entity with a fresh ID created now
func NewEntity() Entity {
	now := time.Now()
	return Entity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Touch sets UpdatedAt to now
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now()
}

// TenantAggregateRoot is the root of an aggregate owned by one tenant.
// Version starts at 1 and backs optimistic locking. Events raised by the
// aggregate stay buffered until the owning service publishes them.
type TenantAggregateRoot struct {
	Entity
	TenantID uuid.UUID
	Version  int
	events   []DomainEvent
}

// NewTenantAggregateRoot creates the root of a new aggregate for tenantID
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		Entity:   NewEntity(),
		TenantID: tenantID,
		Version:  1,
	}
}

func (a *TenantAggregateRoot) GetVersion() int { return a.Version }

func (a *TenantAggregateRoot) IncrementVersion() { a.Version++ }

// AddDomainEvent buffers event for publication
func (a *TenantAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.events = append(a.events, event)
}

// GetDomainEvents returns the buffered events without clearing them
func (a *TenantAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.events
}

func (a *TenantAggregateRoot) ClearDomainEvents() {
	a.events = nil
}

// PullDomainEvents returns the buffered events and clears the buffer
func (a *TenantAggregateRoot) PullDomainEvents() []DomainEvent {
	events := a.events
	a.events = nil
	return events
}
