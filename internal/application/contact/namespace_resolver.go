package contact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chatdesk/backend/internal/domain/contact"
	"github.com/chatdesk/backend/internal/infrastructure/logger"
	"github.com/chatdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultTransportTimeout bounds a transport query when no timeout is configured
const DefaultTransportTimeout = 3 * time.Second

// NamespaceResolver asks the transport session about identifiers in the other
// namespace. Every failure degrades to "unknown": callers take the fallback path.
type NamespaceResolver struct {
	gateway contact.SessionGateway
	timeout time.Duration
	metrics *telemetry.IdentityMetrics
	logger  *zap.Logger
}

// NewNamespaceResolver creates a NamespaceResolver. A nil gateway is allowed and
// behaves like a transport that is always unavailable.
func NewNamespaceResolver(gateway contact.SessionGateway, timeout time.Duration, metrics *telemetry.IdentityMetrics, zapLogger *zap.Logger) *NamespaceResolver {
	if timeout <= 0 {
		timeout = DefaultTransportTimeout
	}
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &NamespaceResolver{
		gateway: gateway,
		timeout: timeout,
		metrics: metrics,
		logger:  zapLogger,
	}
}

// ResolvePhoneForLinkedID returns the bare phone number mapped to linkedID,
// with any device marker removed. It returns false when the session does not
// know the mapping or could not be asked.
func (r *NamespaceResolver) ResolvePhoneForLinkedID(ctx context.Context, linkedID string) (string, bool) {
	const op = "resolve_phone"
	if r.gateway == nil {
		r.fallback(ctx, op, "no_session", linkedID, nil)
		return "", false
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	phone, found, err := r.gateway.ResolvePhoneForLinkedID(callCtx, linkedID)
	if err != nil {
		r.fallback(ctx, op, reasonOf(callCtx, err), linkedID, err)
		return "", false
	}
	if !found {
		return "", false
	}

	number := contact.PhoneNumberOf(phone)
	if contact.LeadingDigits(number) == "" {
		r.fallback(ctx, op, "unparseable", linkedID, fmt.Errorf("unexpected phone identifier %q", phone))
		return "", false
	}
	return number, true
}

// CheckAddress asks the network whether rawID is registered. The second
// result is false when the transport could not answer.
func (r *NamespaceResolver) CheckAddress(ctx context.Context, rawID string) (contact.AddressCheck, bool) {
	const op = "check_address"
	if r.gateway == nil {
		r.fallback(ctx, op, "no_session", rawID, nil)
		return contact.AddressCheck{}, false
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	check, err := r.gateway.CheckAddressExists(callCtx, rawID)
	if err != nil {
		r.fallback(ctx, op, reasonOf(callCtx, err), rawID, err)
		return contact.AddressCheck{}, false
	}
	return check, true
}

func (r *NamespaceResolver) fallback(ctx context.Context, op, reason, identifier string, cause error) {
	r.metrics.RecordTransportFallback(ctx, op, reason)

	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("reason", reason),
		zap.String("identifier", identifier),
	}
	if cause == nil {
		logger.WithLogger(ctx, r.logger).Debug("transport session not configured, using fallback", fields...)
		return
	}
	if !errors.Is(cause, contact.ErrTransportUnavailable) {
		cause = fmt.Errorf("%w: %w", contact.ErrTransportUnavailable, cause)
	}
	fields = append(fields, zap.Error(cause))
	logger.WithLogger(ctx, r.logger).Warn("transport query failed, using fallback", fields...)
}

func reasonOf(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "error"
}
