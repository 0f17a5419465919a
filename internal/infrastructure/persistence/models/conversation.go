package models

import (
	"time"

	"github.com/chatdesk/backend/internal/domain/conversation"
	"github.com/google/uuid"
)

// MessageModel is the persistence model for a logged message
type MessageModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_messages_tenant_contact,priority:1"`
	ContactID uuid.UUID  `gorm:"type:uuid;not null;index:idx_messages_tenant_contact,priority:2"`
	TicketID  *uuid.UUID `gorm:"type:uuid;index"`
	Body      string     `gorm:"type:text;not null;default:''"`
	FromMe    bool       `gorm:"not null;default:false"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts the persistence model to a domain Message
func (m *MessageModel) ToDomain() *conversation.Message {
	return &conversation.Message{
		ID:        m.ID,
		TenantID:  m.TenantID,
		ContactID: m.ContactID,
		TicketID:  m.TicketID,
		Body:      m.Body,
		FromMe:    m.FromMe,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// MessageModelFromDomain creates a persistence model from a domain Message
func MessageModelFromDomain(msg *conversation.Message) *MessageModel {
	return &MessageModel{
		ID:        msg.ID,
		TenantID:  msg.TenantID,
		ContactID: msg.ContactID,
		TicketID:  msg.TicketID,
		Body:      msg.Body,
		FromMe:    msg.FromMe,
		CreatedAt: msg.CreatedAt,
		UpdatedAt: msg.UpdatedAt,
	}
}

// TicketModel is the persistence model for the Ticket aggregate
type TicketModel struct {
	TenantAggregateModel
	ContactID uuid.UUID                 `gorm:"type:uuid;not null;index"`
	Status    conversation.TicketStatus `gorm:"type:varchar(20);not null;default:'open'"`
	ClosedAt  *time.Time
}

// TableName returns the table name for GORM
func (TicketModel) TableName() string {
	return "tickets"
}

// ToDomain converts the persistence model to a domain Ticket
func (m *TicketModel) ToDomain() *conversation.Ticket {
	t := &conversation.Ticket{
		ContactID: m.ContactID,
		Status:    m.Status,
		ClosedAt:  m.ClosedAt,
	}
	m.PopulateTenantAggregateRoot(&t.TenantAggregateRoot)
	return t
}

// TicketModelFromDomain creates a persistence model from a domain Ticket
func TicketModelFromDomain(t *conversation.Ticket) *TicketModel {
	m := &TicketModel{
		ContactID: t.ContactID,
		Status:    t.Status,
		ClosedAt:  t.ClosedAt,
	}
	m.FromDomainTenantAggregateRoot(t.TenantAggregateRoot)
	return m
}
