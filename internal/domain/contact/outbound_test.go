package contact

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectOutboundAddress(t *testing.T) {
	newPN := func(t *testing.T) *Contact {
		c, err := NewContact(uuid.New(), "5511888", "", false)
		require.NoError(t, err)
		return c
	}

	t.Run("prefers stored linked identifier", func(t *testing.T) {
		c := newPN(t)
		c.LinkedIdentifier = "4455@lid"
		c.RawNetworkIdentifier = "9999@lid"
		assert.Equal(t, "4455@lid", SelectOutboundAddress(c))
	})

	t.Run("extracts linked form from raw identifier", func(t *testing.T) {
		c := newPN(t)
		c.RawNetworkIdentifier = "4455@lid@s.whatsapp.net"
		assert.Equal(t, "4455@lid", SelectOutboundAddress(c))
	})

	t.Run("uses raw linked identifier as is when no numeric prefix", func(t *testing.T) {
		c := newPN(t)
		c.RawNetworkIdentifier = "x4455@lid"
		assert.Equal(t, "x4455@lid", SelectOutboundAddress(c))
	})

	t.Run("falls back to primary address", func(t *testing.T) {
		c := newPN(t)
		assert.Equal(t, "5511888@s.whatsapp.net", SelectOutboundAddress(c))
	})

	t.Run("group gets group suffix", func(t *testing.T) {
		c, err := NewContact(uuid.New(), "1203630@g.us", "", true)
		require.NoError(t, err)
		assert.Equal(t, "1203630@g.us", SelectOutboundAddress(c))
	})

	t.Run("nil contact", func(t *testing.T) {
		assert.Empty(t, SelectOutboundAddress(nil))
	})
}
