// Package transport talks to the session sidecar that owns the live network
// connection. The identity engine only reads from it.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/chatdesk/backend/internal/infrastructure/logger"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Config holds HTTPSessionGateway settings
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
}

type phoneLookupResponse struct {
	Phone string `json:"phone"`
	Found bool   `json:"found"`
}

type addressCheckRequest struct {
	JID string `json:"jid"`
}

type addressCheckResponse struct {
	Exists bool   `json:"exists"`
	JID    string `json:"jid"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTPSessionGateway implements contact.SessionGateway over the sidecar's HTTP API
type HTTPSessionGateway struct {
	client *resty.Client
}

// NewHTTPSessionGateway creates a gateway for the sidecar at cfg.BaseURL
func NewHTTPSessionGateway(cfg Config) *HTTPSessionGateway {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(50 * time.Millisecond).
		SetRetryMaxWaitTime(250 * time.Millisecond).
		SetHeader("Accept", "application/json").
		SetError(&errorResponse{})
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.APIKey != "" {
		client.SetHeader("X-API-Key", cfg.APIKey)
	}
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err == nil && r.StatusCode() >= http.StatusInternalServerError
	})

	return &HTTPSessionGateway{client: client}
}

// ResolvePhoneForLinkedID asks the session for the phone number behind a LID.
// A 404 means the session has no mapping and is not an error.
func (g *HTTPSessionGateway) ResolvePhoneForLinkedID(ctx context.Context, linkedID string) (string, bool, error) {
	var body phoneLookupResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetPathParam("lid", linkedID).
		SetResult(&body).
		Get("/v1/lid/{lid}/phone")
	if err != nil {
		return "", false, fmt.Errorf("%w: lid lookup: %v", contact.ErrTransportUnavailable, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return "", false, nil
	case resp.IsError():
		return "", false, g.statusError(ctx, "lid lookup", resp)
	}

	if !body.Found || body.Phone == "" {
		return "", false, nil
	}
	return body.Phone, true, nil
}

// CheckAddressExists asks the network whether rawID is a registered account
func (g *HTTPSessionGateway) CheckAddressExists(ctx context.Context, rawID string) (contact.AddressCheck, error) {
	var body addressCheckResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(addressCheckRequest{JID: rawID}).
		SetResult(&body).
		Post("/v1/contacts/check")
	if err != nil {
		return contact.AddressCheck{}, fmt.Errorf("%w: address check: %v", contact.ErrTransportUnavailable, err)
	}
	if resp.IsError() {
		return contact.AddressCheck{}, g.statusError(ctx, "address check", resp)
	}

	return contact.AddressCheck{Exists: body.Exists, AlternateAddress: body.JID}, nil
}

func (g *HTTPSessionGateway) statusError(ctx context.Context, op string, resp *resty.Response) error {
	msg := resp.Status()
	if e, ok := resp.Error().(*errorResponse); ok && e.Error != "" {
		msg = e.Error
	}
	logger.L(ctx).Debug("Session sidecar returned error",
		zap.String("op", op),
		zap.Int("status_code", resp.StatusCode()),
		zap.String("error", msg),
	)
	return fmt.Errorf("%w: %s: %s", contact.ErrTransportUnavailable, op, msg)
}

var _ contact.SessionGateway = (*HTTPSessionGateway)(nil)
