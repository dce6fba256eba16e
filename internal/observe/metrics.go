// Package observe provides application-wide observability primitives for
// Schedvox: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Schedvox metrics.
const meterName = "github.com/schedvox/schedvox"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// TurnDuration tracks end-to-end conversational turn latency
	// (extraction + response generation).
	TurnDuration metric.Float64Histogram

	// LLMDuration tracks response-generation latency.
	LLMDuration metric.Float64Histogram

	// CalendarDuration tracks calendar event creation latency.
	CalendarDuration metric.Float64Histogram

	// --- Counters ---

	// TurnsProcessed counts processed turns. Use with attributes:
	//   attribute.String("status", "ok"|"fallback"), attribute.Bool("ready", ...)
	TurnsProcessed metric.Int64Counter

	// ExtractionHits counts detail fields captured from transcripts. Use with
	// attribute: attribute.String("field", ...)
	ExtractionHits metric.Int64Counter

	// EventsCreated counts calendar events created. Use with attribute:
	//   attribute.String("status", "ok"|"error")
	EventsCreated metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live scheduling sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// LLM round trips, which dominate turn latency.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TurnDuration, err = m.Float64Histogram("schedvox.turn.duration",
		metric.WithDescription("End-to-end latency of a conversational turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("schedvox.llm.duration",
		metric.WithDescription("Latency of response generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CalendarDuration, err = m.Float64Histogram("schedvox.calendar.duration",
		metric.WithDescription("Latency of calendar event creation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TurnsProcessed, err = m.Int64Counter("schedvox.turns.processed",
		metric.WithDescription("Total conversational turns by status and readiness."),
	); err != nil {
		return nil, err
	}
	if met.ExtractionHits, err = m.Int64Counter("schedvox.extraction.hits",
		metric.WithDescription("Total detail fields captured from transcripts by field."),
	); err != nil {
		return nil, err
	}
	if met.EventsCreated, err = m.Int64Counter("schedvox.events.created",
		metric.WithDescription("Total calendar events created by status."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("schedvox.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("schedvox.active_sessions",
		metric.WithDescription("Number of live scheduling sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("schedvox.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordTurn records a processed conversational turn.
func (m *Metrics) RecordTurn(ctx context.Context, status string, ready bool) {
	m.TurnsProcessed.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("status", status),
			attribute.Bool("ready", ready),
		),
	)
}

// RecordExtraction records one captured detail field.
func (m *Metrics) RecordExtraction(ctx context.Context, field string) {
	m.ExtractionHits.Add(ctx, 1,
		metric.WithAttributes(attribute.String("field", field)),
	)
}

// RecordEventCreated records a calendar event creation attempt.
func (m *Metrics) RecordEventCreated(ctx context.Context, status string) {
	m.EventsCreated.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
