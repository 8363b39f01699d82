// Package tracing configures OpenTelemetry for versesync.
//
// The sync engine creates spans through the global otel API; this package
// installs the tracer provider those spans are exported by. When tracing
// is disabled a no-op provider is installed and spans cost nothing.
package tracing

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/custodia-labs/versesync/internal/core/domain"
)

// TracerName is the instrumentation name used by versesync spans.
const TracerName = "github.com/custodia-labs/versesync"

// Config holds tracing configuration.
type Config struct {
	Exporter       domain.TracingExporter // Where spans are sent
	ServiceName    string                 // Service name for traces
	ServiceVersion string                 // Build version recorded on the resource
	Output         io.Writer              // Output for the stdout exporter (defaults to os.Stdout)
}

// Provider owns the installed tracer provider.
type Provider struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// New builds a tracer provider for cfg and installs it globally.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Exporter == "" || cfg.Exporter == domain.TracingNone {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return &Provider{tracer: tp.Tracer(TracerName)}, nil
	}

	exporter, err := createExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "versesync"
	}

	// Not merged with resource.Default() to avoid schema URL conflicts.
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return &Provider{
		tracer:   provider.Tracer(TracerName, trace.WithInstrumentationVersion(cfg.ServiceVersion)),
		provider: provider,
	}, nil
}

func createExporter(cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case domain.TracingStdout:
		opts := []stdouttrace.Option{
			stdouttrace.WithPrettyPrint(),
		}
		if cfg.Output != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Output))
		}
		return stdouttrace.New(opts...)
	default:
		return nil, fmt.Errorf("%w: unsupported exporter %q", domain.ErrInvalidInput, cfg.Exporter)
	}
}

// Tracer returns the provider's tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes pending spans and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}
