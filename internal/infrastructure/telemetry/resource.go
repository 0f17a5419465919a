package telemetry

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// ServiceInfo identifies the process on exported spans and metrics
type ServiceInfo struct {
	Name        string
	Version     string
	Environment string
}

// Settings configures OTLP export for traces and metrics.
// A disabled Settings yields providers backed by the global no-op implementations.
type Settings struct {
	Enabled        bool
	Endpoint       string
	Insecure       bool
	SamplingRatio  float64
	ExportInterval time.Duration
	Service        ServiceInfo
}

const (
	defaultExportInterval = 60 * time.Second
	shutdownTimeout       = 10 * time.Second
)

func newResource(info ServiceInfo) (*resource.Resource, error) {
	version := info.Version
	if version == "" {
		version = "dev"
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(info.Name),
		semconv.ServiceVersion(version),
	}
	if info.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentName(info.Environment))
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}
	return res, nil
}
