package tracing

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/saikilaru/TAMcust/pkg/tracing/exporters"
)

type Config struct {
	Enabled     bool
	ServiceName string
	Environment string
	Version     string
	SampleRatio float64
	OTLP        exporters.OTLPConfig
}

// Setup installs a global tracer provider and returns its shutdown function. When tracing is
// disabled the returned function is a no-op and StartSpan keeps returning non-recording spans.
func Setup(ctx context.Context, cfg Config, logger ectologger.Logger) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.Version),
		attribute.String("deployment.environment", cfg.Environment),
	))
	if err != nil {
		return noop, fmt.Errorf("failed to build trace resource: %w", err)
	}

	exporter, err := exporters.NewOTLPExporter(ctx, cfg.OTLP)
	if err != nil {
		return noop, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	SetTracer(tp.Tracer(cfg.ServiceName))

	logger.WithFields(map[string]any{
		"endpoint": cfg.OTLP.Endpoint,
		"protocol": cfg.OTLP.Protocol,
		"ratio":    ratio,
	}).Info("tracing initialized")

	return tp.Shutdown, nil
}
