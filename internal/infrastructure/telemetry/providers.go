package telemetry

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Providers bundles the tracer and meter providers of one process
type Providers struct {
	Tracer *TracerProvider
	Meter  *MeterProvider
}

// Setup creates both providers from the same settings
func Setup(ctx context.Context, settings Settings, logger *zap.Logger) (*Providers, error) {
	tp, err := NewTracerProvider(ctx, settings, logger)
	if err != nil {
		return nil, err
	}
	mp, err := NewMeterProvider(ctx, settings, logger)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	return &Providers{Tracer: tp, Meter: mp}, nil
}

// Shutdown stops the meter provider before the tracer provider
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(p.Meter.Shutdown(ctx), p.Tracer.Shutdown(ctx))
}
