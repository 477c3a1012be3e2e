package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/envlake/envlake/internal/api/middleware"

// Metrics holds the OpenTelemetry metrics instruments.
type Metrics struct {
	requestDuration  metric.Float64Histogram
	requestTotal     metric.Int64Counter
	requestsInFlight metric.Int64UpDownCounter
	responseSize     metric.Int64Histogram
}

// NewMetrics creates a new Metrics instance with initialized instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"http.server.request.total",
		metric.WithDescription("Total number of HTTP server requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestsInFlight, err := meter.Int64UpDownCounter(
		"http.server.requests_in_flight",
		metric.WithDescription("Number of HTTP requests currently being processed"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	responseSize, err := meter.Int64Histogram(
		"http.server.response.size",
		metric.WithDescription("Size of HTTP server responses in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		requestsInFlight: requestsInFlight,
		responseSize:     responseSize,
	}, nil
}

// Middleware returns an HTTP middleware that records metrics for each request.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			attrs := []attribute.KeyValue{
				attribute.String("http.method", r.Method),
				attribute.String("http.route", r.URL.Path),
			}
			m.requestsInFlight.Add(r.Context(), 1, metric.WithAttributes(attrs...))
			defer m.requestsInFlight.Add(r.Context(), -1, metric.WithAttributes(attrs...))

			wrapped := newMetricsResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()

			attrs = append(attrs, attribute.String("http.status_code", strconv.Itoa(wrapped.statusCode)))
			if wrapped.statusCode >= 400 {
				attrs = append(attrs, attribute.Bool("error", true))
			}

			m.requestDuration.Record(r.Context(), duration, metric.WithAttributes(attrs...))
			m.requestTotal.Add(r.Context(), 1, metric.WithAttributes(attrs...))
			m.responseSize.Record(r.Context(), wrapped.written, metric.WithAttributes(attrs...))
		})
	}
}

// metricsResponseWriter wraps http.ResponseWriter to capture response metadata.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *metricsResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// IngestMetrics holds metrics for ingestion runs and upstream API calls.
type IngestMetrics struct {
	upstreamDuration metric.Float64Histogram
	upstreamTotal    metric.Int64Counter
	pagesStored      metric.Int64Counter
	recordsIngested  metric.Int64Counter
}

// NewIngestMetrics creates metrics for monitoring ingestion activity.
func NewIngestMetrics() (*IngestMetrics, error) {
	meter := otel.Meter(meterName)

	upstreamDuration, err := meter.Float64Histogram(
		"ingest.upstream.request.duration",
		metric.WithDescription("Duration of upstream API requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	upstreamTotal, err := meter.Int64Counter(
		"ingest.upstream.request.total",
		metric.WithDescription("Total number of upstream API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	pagesStored, err := meter.Int64Counter(
		"ingest.pages.stored",
		metric.WithDescription("Number of raw pages landed in the bronze layer"),
		metric.WithUnit("{page}"),
	)
	if err != nil {
		return nil, err
	}

	recordsIngested, err := meter.Int64Counter(
		"ingest.records.total",
		metric.WithDescription("Number of measurement records ingested"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	return &IngestMetrics{
		upstreamDuration: upstreamDuration,
		upstreamTotal:    upstreamTotal,
		pagesStored:      pagesStored,
		recordsIngested:  recordsIngested,
	}, nil
}

// RecordUpstreamRequest records one upstream API call.
func (m *IngestMetrics) RecordUpstreamRequest(source, operation string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("ingest.source", source),
		attribute.String("ingest.operation", operation),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Metrics outlive the request; background context avoids recording
	// against an already-cancelled one.
	ctx := context.TODO()
	m.upstreamDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.upstreamTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPageStored records one bronze page write.
func (m *IngestMetrics) RecordPageStored(source string, records int) {
	attrs := []attribute.KeyValue{attribute.String("ingest.source", source)}
	ctx := context.TODO()
	m.pagesStored.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.recordsIngested.Add(ctx, int64(records), metric.WithAttributes(attrs...))
}
