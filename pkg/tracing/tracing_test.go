package tracing_test

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/saikilaru/TAMcust/pkg/tracing"
)

func TestStartSpanWithoutTracer(t *testing.T) {
	tracing.SetTracer(nil)
	ctx, span := tracing.StartSpan(context.Background(), "noop")
	defer span.End()

	assert.False(t, span.SpanContext().IsValid())
	assert.Empty(t, tracing.GetTraceParent(ctx))
	assert.Empty(t, tracing.GetTraceID(ctx))
}

func TestStartSpanWithTracer(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() {
		tracing.SetTracer(nil)
		_ = tp.Shutdown(context.Background())
	})
	tracing.SetTracer(tp.Tracer("test"))

	ctx, span := tracing.StartSpan(context.Background(), "op")
	defer span.End()

	require.True(t, span.SpanContext().IsValid())
	assert.Equal(t, span.SpanContext().TraceID().String(), tracing.GetTraceID(ctx))
	assert.Contains(t, tracing.GetTraceParent(ctx), span.SpanContext().TraceID().String())
}

func TestSetupDisabled(t *testing.T) {
	shutdown, err := tracing.Setup(context.Background(), tracing.Config{}, ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {}))
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
