// Package observe provides application-wide observability primitives for
// Hirevox: OpenTelemetry metrics, distributed tracing, structured logging,
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

// meterName is the instrumentation scope name used for all Hirevox metrics.
const meterName = "github.com/vikram-capsitech/hirevox"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// AIDuration tracks interviewer-turn generation latency. Use with
	// attribute.Bool("success", ...).
	AIDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis and playback latency. Use
	// with attribute.Bool("success", ...).
	TTSDuration metric.Float64Histogram

	// AlignmentDuration tracks transcript alignment latency.
	AlignmentDuration metric.Float64Histogram

	// --- Counters ---

	// TurnCycles counts completed listen → generate → speak cycles. Use with
	// attribute:
	//   attribute.String("status", "ok" | "ended" | "retry_exhausted")
	TurnCycles metric.Int64Counter

	// GenerationRetries counts transient generation failures that triggered
	// a retry.
	GenerationRetries metric.Int64Counter

	// PoolExhaustions counts synthesis attempts that failed on every
	// configured voice-synthesis key.
	PoolExhaustions metric.Int64Counter

	// AlignmentEntries counts aligned transcript entries. Use with attribute:
	//   attribute.String("kind", "paired" | "unanswered" | "unmatched")
	AlignmentEntries metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live interview sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for conversational-pipeline latencies.
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
	if met.AIDuration, err = m.Float64Histogram("hirevox.ai.duration",
		metric.WithDescription("Latency of interviewer turn generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("hirevox.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis and playback."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AlignmentDuration, err = m.Float64Histogram("hirevox.alignment.duration",
		metric.WithDescription("Latency of transcript alignment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TurnCycles, err = m.Int64Counter("hirevox.turn.cycles",
		metric.WithDescription("Total completed turn cycles by status."),
	); err != nil {
		return nil, err
	}
	if met.GenerationRetries, err = m.Int64Counter("hirevox.generation.retries",
		metric.WithDescription("Total transient generation failures that triggered a retry."),
	); err != nil {
		return nil, err
	}
	if met.PoolExhaustions, err = m.Int64Counter("hirevox.tts.pool_exhaustions",
		metric.WithDescription("Total synthesis attempts that failed on every voice key."),
	); err != nil {
		return nil, err
	}
	if met.AlignmentEntries, err = m.Int64Counter("hirevox.alignment.entries",
		metric.WithDescription("Total aligned transcript entries by kind."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("hirevox.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("hirevox.active_sessions",
		metric.WithDescription("Number of live interview sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("hirevox.http.request.duration",
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

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
