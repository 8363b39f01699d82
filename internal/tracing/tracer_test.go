package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/custodia-labs/versesync/internal/core/domain"
)

func resetGlobal(t *testing.T) {
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
}

func TestNew_Disabled(t *testing.T) {
	resetGlobal(t)
	ctx := context.Background()

	p, err := New(ctx, Config{Exporter: domain.TracingNone})
	require.NoError(t, err)

	_, span := p.Tracer().Start(ctx, "sync.table")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, p.Shutdown(ctx))
}

func TestNew_StdoutExporter(t *testing.T) {
	resetGlobal(t)
	ctx := context.Background()
	var buf bytes.Buffer

	p, err := New(ctx, Config{
		Exporter:       domain.TracingStdout,
		ServiceVersion: "test",
		Output:         &buf,
	})
	require.NoError(t, err)

	// Spans created through the global API reach the exporter.
	_, span := otel.Tracer("test").Start(ctx, "sync.table")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, p.Shutdown(ctx))
	assert.Contains(t, buf.String(), "sync.table")
	assert.Contains(t, buf.String(), "versesync")
}

func TestNew_UnsupportedExporter(t *testing.T) {
	resetGlobal(t)

	p, err := New(context.Background(), Config{Exporter: "jaeger"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, p)
}
