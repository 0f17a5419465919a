package conversation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicket_Close(t *testing.T) {
	ticket, err := NewTicket(uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, TicketStatusOpen, ticket.Status)

	assert.True(t, ticket.Close())
	assert.Equal(t, TicketStatusClosed, ticket.Status)
	assert.NotNil(t, ticket.ClosedAt)
	assert.Equal(t, 2, ticket.GetVersion())

	events := ticket.GetDomainEvents()
	require.Len(t, events, 1)
	closed := events[0].(*TicketClosedEvent)
	assert.Equal(t, EventTypeTicketClosed, closed.EventType())
	assert.Equal(t, TicketStatusOpen, closed.PreviousStatus)
	assert.Equal(t, ticket.ContactID, closed.ContactID)

	// closing twice is a no-op
	assert.False(t, ticket.Close())
	assert.Len(t, ticket.GetDomainEvents(), 1)
	assert.Equal(t, 2, ticket.GetVersion())
}

func TestNewTicket_RequiresContact(t *testing.T) {
	_, err := NewTicket(uuid.New(), uuid.Nil)
	assert.Error(t, err)
}

func TestTicketStatus_IsTerminal(t *testing.T) {
	assert.True(t, TicketStatusClosed.IsTerminal())
	assert.False(t, TicketStatusOpen.IsTerminal())
	assert.False(t, TicketStatusPending.IsTerminal())
}
