package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultServiceName is reported when no service name is configured.
const DefaultServiceName = "vendor-rewards-api"

// Span attribute keys shared by the ledger and the HTTP layer.
const (
	AttrVendorID = attribute.Key("rewards.vendor_id")
	AttrUserID   = attribute.Key("rewards.user_id")
	AttrDealID   = attribute.Key("rewards.deal_id")
	AttrItems    = attribute.Key("rewards.item_count")
	AttrMode     = attribute.Key("rewards.mode")
	AttrEarned   = attribute.Key("rewards.points_earned")
	AttrSpent    = attribute.Key("rewards.points_spent")
	AttrCreated  = attribute.Key("rewards.balance_created")
	AttrApplied  = attribute.Key("rewards.applied")
)

// Config holds tracing configuration.
type Config struct {
	Enabled     bool
	Endpoint    string // Jaeger collector, e.g. "http://localhost:14268/api/traces"
	ServiceName string
	Environment string
	Version     string
	SampleRatio float64 // 0 or >= 1 samples everything
}

// Tracer wraps OpenTelemetry tracer functionality.
type Tracer struct {
	tracer trace.Tracer
}

var globalTracer *Tracer

// InitTracing initializes OpenTelemetry tracing.
func InitTracing(cfg Config) (*Tracer, error) {
	if !cfg.Enabled {
		return UseProvider(noop.NewTracerProvider()), nil
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = DefaultServiceName
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.Endpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.Version),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	sampler := tracesdk.AlwaysSample()
	if cfg.SampleRatio > 0 && cfg.SampleRatio < 1 {
		sampler = tracesdk.ParentBased(tracesdk.TraceIDRatioBased(cfg.SampleRatio))
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(res),
		tracesdk.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	globalTracer = &Tracer{tracer: otel.Tracer(cfg.ServiceName)}
	return globalTracer, nil
}

// UseProvider makes tp the source of every span the service starts. Tests
// pass an SDK provider with an in-memory recorder.
func UseProvider(tp trace.TracerProvider) *Tracer {
	globalTracer = &Tracer{tracer: tp.Tracer(DefaultServiceName)}
	return globalTracer
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// GetTracer returns the global tracer instance, or a no-op tracer before
// InitTracing has run.
func GetTracer() *Tracer {
	if globalTracer == nil {
		return &Tracer{
			tracer: noop.NewTracerProvider().Tracer("noop"),
		}
	}
	return globalTracer
}

// Fail marks span as failed with err and returns err unchanged.
func Fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Shutdown flushes and shuts down the tracer provider.
func Shutdown(ctx context.Context) error {
	if tp, ok := otel.GetTracerProvider().(*tracesdk.TracerProvider); ok {
		return tp.Shutdown(ctx)
	}
	return nil
}
