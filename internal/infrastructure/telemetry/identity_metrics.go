package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Resolution outcomes recorded on the resolutions counter.
const (
	OutcomeCreated = "created"
	OutcomeMatched = "matched"
	OutcomeFailed  = "failed"
)

// IdentityMetrics groups the instruments of the identity resolution engine.
//
// Metrics:
//   - identity_resolutions_total: Counter by outcome and namespace
//   - identity_events_total: Counter of published resolution events by type
//   - identity_merges_total: Counter of consolidated contacts
//   - identity_transport_fallbacks_total: Counter of failed namespace lookups
//   - identity_stale_retries_total: Counter of resolutions restarted after a stale contact
//   - identity_resolve_duration_seconds: Histogram of end to end resolution time
//   - identity_merge_duration_seconds: Histogram of consolidation time
//   - identity_lock_wait_seconds: Histogram of tenant lock acquisition time
type IdentityMetrics struct {
	resolutions        *Counter
	events             *Counter
	merges             *Counter
	transportFallbacks *Counter
	staleRetries       *Counter
	resolveDuration    *Histogram
	mergeDuration      *Histogram
	lockWait           *Histogram
}

// NewIdentityMetrics creates the identity instruments on meter.
func NewIdentityMetrics(meter metric.Meter) (*IdentityMetrics, error) {
	var err error
	m := &IdentityMetrics{}

	if m.resolutions, err = NewCounter(meter, "identity_resolutions_total",
		"Contact resolutions by outcome and namespace", "{resolution}"); err != nil {
		return nil, err
	}
	if m.events, err = NewCounter(meter, "identity_events_total",
		"Resolution events by type and namespace", "{event}"); err != nil {
		return nil, err
	}
	if m.merges, err = NewCounter(meter, "identity_merges_total",
		"Contacts consolidated into a surviving contact", "{merge}"); err != nil {
		return nil, err
	}
	if m.transportFallbacks, err = NewCounter(meter, "identity_transport_fallbacks_total",
		"Namespace lookups that fell back to the numeric prefix", "{lookup}"); err != nil {
		return nil, err
	}
	if m.staleRetries, err = NewCounter(meter, "identity_stale_retries_total",
		"Resolutions restarted after the target contact disappeared", "{retry}"); err != nil {
		return nil, err
	}
	if m.resolveDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "identity_resolve_duration_seconds",
		Description: "Duration of contact resolution",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.mergeDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "identity_merge_duration_seconds",
		Description: "Duration of contact consolidation",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.lockWait, err = NewHistogram(meter, HistogramOpts{
		Name:        "identity_lock_wait_seconds",
		Description: "Time spent waiting for the per-tenant resolution lock",
		Unit:        "s",
		Boundaries:  LockWaitBuckets,
	}); err != nil {
		return nil, err
	}

	return m, nil
}

// NewNoopIdentityMetrics returns instruments that discard every measurement.
func NewNoopIdentityMetrics() *IdentityMetrics {
	m, err := NewIdentityMetrics(noop.NewMeterProvider().Meter(TracerName))
	if err != nil {
		// the noop meter never fails instrument creation
		panic(err)
	}
	return m
}

func tenantAttr(tenantID uuid.UUID) attribute.KeyValue {
	return AttrTenantID.String(tenantID.String())
}

// RecordResolution counts a finished resolution and its duration.
func (m *IdentityMetrics) RecordResolution(ctx context.Context, tenantID uuid.UUID, outcome, namespace string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{tenantAttr(tenantID), AttrOutcome.String(outcome), AttrNamespace.String(namespace)}
	m.resolutions.Inc(ctx, attrs...)
	m.resolveDuration.RecordDuration(ctx, d, AttrOutcome.String(outcome), AttrNamespace.String(namespace))
}

// RecordEvent counts a published resolution event
func (m *IdentityMetrics) RecordEvent(ctx context.Context, tenantID uuid.UUID, eventType, namespace string) {
	if m == nil {
		return
	}
	m.events.Inc(ctx, tenantAttr(tenantID), AttrEventType.String(eventType), AttrNamespace.String(namespace))
}

// RecordMerge counts a consolidation and its duration.
func (m *IdentityMetrics) RecordMerge(ctx context.Context, tenantID uuid.UUID, d time.Duration) {
	if m == nil {
		return
	}
	m.merges.Inc(ctx, tenantAttr(tenantID))
	m.mergeDuration.RecordDuration(ctx, d)
}

// RecordTransportFallback counts a namespace lookup that produced no phone number.
func (m *IdentityMetrics) RecordTransportFallback(ctx context.Context, operation, reason string) {
	if m == nil {
		return
	}
	m.transportFallbacks.Inc(ctx, AttrOperation.String(operation), AttrReason.String(reason))
}

// RecordStaleRetry counts a resolution restarted after ErrStaleContact.
func (m *IdentityMetrics) RecordStaleRetry(ctx context.Context, tenantID uuid.UUID) {
	if m == nil {
		return
	}
	m.staleRetries.Inc(ctx, tenantAttr(tenantID))
}

// RecordLockWait records how long a caller waited for the tenant lock.
func (m *IdentityMetrics) RecordLockWait(ctx context.Context, operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.RecordDuration(ctx, d, AttrOperation.String(operation))
}
