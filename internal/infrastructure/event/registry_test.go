package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry(t *testing.T) {
	t.Run("combines typed and wildcard handlers", func(t *testing.T) {
		r := NewHandlerRegistry()
		typed := newTestHandler("ContactCreated")
		all := newTestHandler()

		r.Register(typed, "ContactCreated")
		r.Register(all)

		assert.Len(t, r.GetHandlers("ContactCreated"), 2)
		assert.Len(t, r.GetHandlers("ContactMerged"), 1)
	})

	t.Run("duplicate registration is ignored", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newTestHandler("ContactMatched")

		r.Register(h, "ContactMatched")
		r.Register(h, "ContactMatched")

		assert.Len(t, r.GetHandlers("ContactMatched"), 1)
	})

	t.Run("unregister removes handler everywhere", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newTestHandler()

		r.Register(h, "ContactCreated", "ContactMerged")
		r.Register(h)
		r.Unregister(h)

		assert.Empty(t, r.GetHandlers("ContactCreated"))
		assert.Empty(t, r.GetHandlers("ContactMerged"))
	})
}
