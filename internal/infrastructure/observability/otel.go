package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/smartscheduler/backend"

// Metrics holds all application metrics
type Metrics struct {
	RequestCount          metric.Int64Counter
	RequestDuration       metric.Float64Histogram
	StoreOpDuration       metric.Float64Histogram
	CacheHitCount         metric.Int64Counter
	CacheMissCount        metric.Int64Counter
	SagaOutcome           metric.Int64Counter
	CompensationFailures  metric.Int64Counter
	RetractionDegraded    metric.Int64Counter
	RecommendationOutcome metric.Int64Counter
}

// Setup initializes OpenTelemetry tracing with an OTLP gRPC exporter
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tracerProvider.Shutdown, nil
}

// InitMetrics initializes application metrics against the global meter provider
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}
	var err error

	if m.RequestCount, err = meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Number of HTTP requests")); err != nil {
		return nil, err
	}
	if m.RequestDuration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.StoreOpDuration, err = meter.Float64Histogram("store.operation.duration",
		metric.WithDescription("Availability store operation duration in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.CacheHitCount, err = meter.Int64Counter("cache.hit.count",
		metric.WithDescription("Number of cache hits")); err != nil {
		return nil, err
	}
	if m.CacheMissCount, err = meter.Int64Counter("cache.miss.count",
		metric.WithDescription("Number of cache misses")); err != nil {
		return nil, err
	}
	if m.SagaOutcome, err = meter.Int64Counter("booking.saga.outcome",
		metric.WithDescription("Booking saga terminations by final state")); err != nil {
		return nil, err
	}
	if m.CompensationFailures, err = meter.Int64Counter("booking.compensation.failures",
		metric.WithDescription("Reservations left without a calendar event after a failed rollback")); err != nil {
		return nil, err
	}
	if m.RetractionDegraded, err = meter.Int64Counter("booking.retraction.degraded",
		metric.WithDescription("Bookings whose availability retraction failed")); err != nil {
		return nil, err
	}
	if m.RecommendationOutcome, err = meter.Int64Counter("recommendation.outcome",
		metric.WithDescription("Recommendation requests by outcome")); err != nil {
		return nil, err
	}

	return m, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRequestMetric records an HTTP request
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	)
	metrics.RequestCount.Add(ctx, 1, attrs)
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordStoreMetric records an availability store operation
func RecordStoreMetric(ctx context.Context, metrics *Metrics, operation string, duration time.Duration) {
	if metrics == nil {
		return
	}
	metrics.StoreOpDuration.Record(ctx, float64(duration.Milliseconds()),
		metric.WithAttributes(attribute.String("store.operation", operation)))
}

// RecordCacheHit records a cache hit
func RecordCacheHit(ctx context.Context, metrics *Metrics, key string) {
	if metrics == nil {
		return
	}
	metrics.CacheHitCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.key", key)))
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(ctx context.Context, metrics *Metrics, key string) {
	if metrics == nil {
		return
	}
	metrics.CacheMissCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.key", key)))
}

// RecordSagaOutcome counts a finished booking saga by its final state
func RecordSagaOutcome(ctx context.Context, metrics *Metrics, state string) {
	if metrics == nil {
		return
	}
	metrics.SagaOutcome.Add(ctx, 1, metric.WithAttributes(attribute.String("saga.state", state)))
}

// RecordCompensationFailure counts a rollback that could not remove the reservation
func RecordCompensationFailure(ctx context.Context, metrics *Metrics, providerID string) {
	if metrics == nil {
		return
	}
	metrics.CompensationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("provider.id", providerID)))
}

// RecordRetractionDegraded counts a booking that left availability in place
func RecordRetractionDegraded(ctx context.Context, metrics *Metrics, providerID string) {
	if metrics == nil {
		return
	}
	metrics.RetractionDegraded.Add(ctx, 1, metric.WithAttributes(attribute.String("provider.id", providerID)))
}

// RecordRecommendationOutcome counts a recommendation request by outcome
func RecordRecommendationOutcome(ctx context.Context, metrics *Metrics, outcome string) {
	if metrics == nil {
		return
	}
	metrics.RecommendationOutcome.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
