package contact

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chatdesk/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContact(t *testing.T) {
	tenantID := uuid.New()

	t.Run("creates PN contact", func(t *testing.T) {
		c, err := NewContact(tenantID, "5511999", "Alice", false)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, c.ID)
		assert.Equal(t, tenantID, c.TenantID)
		assert.Equal(t, "5511999@s.whatsapp.net", c.PrimaryAddress)
		assert.Equal(t, "5511999@s.whatsapp.net", c.RawNetworkIdentifier)
		assert.Equal(t, "Alice", c.Name)
		assert.Empty(t, c.LinkedIdentifier)
		assert.False(t, c.IsGroup)
		assert.Equal(t, 1, c.GetVersion())
	})

	t.Run("name defaults to digits of the address", func(t *testing.T) {
		c, err := NewContact(tenantID, "5511999@s.whatsapp.net", "  ", false)
		require.NoError(t, err)
		assert.Equal(t, "5511999", c.Name)
	})

	t.Run("long names are truncated", func(t *testing.T) {
		c, err := NewContact(tenantID, "5511999", strings.Repeat("é", 300), false)
		require.NoError(t, err)
		assert.Len(t, []rune(c.Name), 200)
	})

	t.Run("creates group contact", func(t *testing.T) {
		c, err := NewContact(tenantID, "1203630@g.us", "Team", true)
		require.NoError(t, err)
		assert.True(t, c.IsGroup)
		assert.Equal(t, NamespaceGroup, c.Namespace())
	})

	t.Run("rejects empty tenant", func(t *testing.T) {
		_, err := NewContact(uuid.Nil, "5511999", "Alice", false)
		require.Error(t, err)
	})

	t.Run("rejects malformed address", func(t *testing.T) {
		_, err := NewContact(tenantID, "", "Alice", false)
		assert.ErrorIs(t, err, ErrMalformedIdentifier)
	})

	t.Run("rejects linked identifier as primary address", func(t *testing.T) {
		_, err := NewContact(tenantID, "5511@lid", "Alice", false)
		require.Error(t, err)
		de, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "INVALID_PRIMARY_ADDRESS", de.Code)
	})

	t.Run("rejects group flag mismatch", func(t *testing.T) {
		_, err := NewContact(tenantID, "5511", "Alice", true)
		require.Error(t, err)
	})
}

func TestContact_ObserveLinkedIdentifier(t *testing.T) {
	c, err := NewContact(uuid.New(), "5511888", "", false)
	require.NoError(t, err)

	require.NoError(t, c.ObserveLinkedIdentifier("99887766@lid"))
	assert.Equal(t, "99887766@lid", c.LinkedIdentifier)
	assert.Equal(t, "99887766@lid", c.RawNetworkIdentifier)

	// most recent value wins
	require.NoError(t, c.ObserveLinkedIdentifier("11223344@lid"))
	assert.Equal(t, "11223344@lid", c.LinkedIdentifier)

	assert.ErrorIs(t, c.ObserveLinkedIdentifier("5511888@s.whatsapp.net"), ErrMalformedIdentifier)

	group, err := NewContact(uuid.New(), "1203@g.us", "", true)
	require.NoError(t, err)
	assert.ErrorIs(t, group.ObserveLinkedIdentifier("99887766@lid"), ErrGroupIdentity)
}

func TestContact_UpdateProfile(t *testing.T) {
	c, err := NewContact(uuid.New(), "5511888", "Old", false)
	require.NoError(t, err)

	c.UpdateProfile("", "")
	assert.Equal(t, "Old", c.Name)

	c.UpdateProfile("New", "https://cdn.example.com/p.jpg")
	assert.Equal(t, "New", c.Name)
	assert.Equal(t, "https://cdn.example.com/p.jpg", c.ProfilePicURL)
}

func TestContact_ChangePrimaryAddress(t *testing.T) {
	c, err := NewContact(uuid.New(), "5511888", "", false)
	require.NoError(t, err)

	require.NoError(t, c.ChangePrimaryAddress("5511777"))
	assert.Equal(t, "5511777@s.whatsapp.net", c.PrimaryAddress)

	assert.ErrorIs(t, c.ChangePrimaryAddress("5511@lid"), ErrMalformedIdentifier)
}

func TestContact_ResolutionEvents(t *testing.T) {
	c, err := NewContact(uuid.New(), "5511888", "", false)
	require.NoError(t, err)
	loser := uuid.New()

	c.RecordCreated(NamespaceLinked)
	c.RecordMatched(NamespacePhone)
	c.RecordMerged(loser, NamespaceLinked, MergeStats{MessagesMoved: 3})

	events := c.PullDomainEvents()
	require.Len(t, events, 3)
	assert.Empty(t, c.GetDomainEvents())

	created := events[0].(*ContactCreatedEvent)
	assert.Equal(t, EventTypeContactCreated, created.EventType())
	assert.Equal(t, c.TenantID, created.TenantID())
	assert.Equal(t, NamespaceLinked, created.ResolutionNamespace())

	matched := events[1].(*ContactMatchedEvent)
	assert.Equal(t, EventTypeContactMatched, matched.EventType())
	assert.Equal(t, NamespacePhone, matched.ResolutionNamespace())

	merged := events[2].(*ContactMergedEvent)
	assert.Equal(t, EventTypeContactMerged, merged.EventType())
	assert.Equal(t, loser, merged.LoserID)
	assert.Equal(t, c.ID, merged.WinnerID)
	assert.Equal(t, int64(3), merged.Stats.MessagesMoved)

	for _, e := range events {
		_, ok := e.(ResolutionEvent)
		assert.True(t, ok)
	}
}

func TestNewLinkedIdentifierEntry(t *testing.T) {
	tenantID, contactID := uuid.New(), uuid.New()

	entry, err := NewLinkedIdentifierEntry(tenantID, "5511@lid", contactID)
	require.NoError(t, err)
	assert.Equal(t, "5511@lid", entry.LinkedIdentifier)
	assert.Equal(t, contactID, entry.ContactID)

	_, err = NewLinkedIdentifierEntry(tenantID, "5511@s.whatsapp.net", contactID)
	assert.ErrorIs(t, err, ErrMalformedIdentifier)

	_, err = NewLinkedIdentifierEntry(tenantID, "5511@lid", uuid.Nil)
	assert.Error(t, err)
}

func TestPersistenceError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewPersistenceError("save contact", cause)

	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "save contact")

	wrapped := fmt.Errorf("resolve: %w", err)
	assert.ErrorIs(t, wrapped, ErrPersistence)
	assert.Equal(t, wrapped, NewPersistenceError("other", wrapped))
	assert.Nil(t, NewPersistenceError("noop", nil))

	de, ok := shared.AsDomainError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "PERSISTENCE_ERROR", de.Code)
}
