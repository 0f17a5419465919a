package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *HTTPSessionGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPSessionGateway(Config{BaseURL: srv.URL, APIKey: "secret", RetryCount: 1})
}

func TestHTTPSessionGateway_ResolvePhoneForLinkedID(t *testing.T) {
	t.Run("returns mapped phone", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/lid/123@lid/phone", r.URL.Path)
			assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
			_ = json.NewEncoder(w).Encode(map[string]any{"phone": "5511999999999:12@s.whatsapp.net", "found": true})
		})

		phone, found, err := gw.ResolvePhoneForLinkedID(context.Background(), "123@lid")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "5511999999999:12@s.whatsapp.net", phone)
	})

	t.Run("not found is not an error", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, found, err := gw.ResolvePhoneForLinkedID(context.Background(), "123@lid")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("server errors are retried then reported as transport unavailable", func(t *testing.T) {
		var calls int32
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"session not connected"}`))
		})

		_, _, err := gw.ResolvePhoneForLinkedID(context.Background(), "123@lid")
		assert.ErrorIs(t, err, contact.ErrTransportUnavailable)
		assert.Contains(t, err.Error(), "session not connected")
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("context deadline bounds a hanging sidecar", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, _, err := gw.ResolvePhoneForLinkedID(ctx, "123@lid")
		assert.ErrorIs(t, err, contact.ErrTransportUnavailable)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestHTTPSessionGateway_CheckAddressExists(t *testing.T) {
	t.Run("returns existence and alternate address", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			var req addressCheckRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "123@lid", req.JID)
			_ = json.NewEncoder(w).Encode(addressCheckResponse{Exists: true, JID: "5511999999999@s.whatsapp.net"})
		})

		check, err := gw.CheckAddressExists(context.Background(), "123@lid")
		require.NoError(t, err)
		assert.True(t, check.Exists)
		assert.Equal(t, "5511999999999@s.whatsapp.net", check.AlternateAddress)
	})

	t.Run("client errors map to transport unavailable", func(t *testing.T) {
		gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})

		_, err := gw.CheckAddressExists(context.Background(), "x")
		assert.ErrorIs(t, err, contact.ErrTransportUnavailable)
	})
}
