package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/chatdesk/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartSpan(t *testing.T) {
	recorder := setupTestTracer(t)

	ctx, span := telemetry.StartSpan(context.Background(), "contact_resolver", "resolve",
		telemetry.AttrNamespace.String("lid"))
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "contact_resolver.resolve", spans[0].Name())

	var found bool
	for _, attr := range spans[0].Attributes() {
		if attr.Key == telemetry.AttrNamespace && attr.Value.AsString() == "lid" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRecordError(t *testing.T) {
	recorder := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "consolidator", "consolidate")
	telemetry.RecordError(span, errors.New("boom"))
	telemetry.RecordError(span, nil)
	telemetry.RecordError(nil, errors.New("ignored"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
}
