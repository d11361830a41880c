// Package middleware provides HTTP middleware for the payments backend.
package middleware

import (
	"time"

	"github.com/erp/payments/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetricsConfig holds configuration for the HTTP metrics middleware
type HTTPMetricsConfig struct {
	// MeterProvider supplies the meter the instruments are built on
	MeterProvider *telemetry.MeterProvider
	// ServiceName identifies the service on exported metrics
	ServiceName string
	// Enabled controls whether metrics collection is active
	Enabled bool
}

// DefaultHTTPMetricsConfig returns default HTTP metrics configuration
func DefaultHTTPMetricsConfig() HTTPMetricsConfig {
	return HTTPMetricsConfig{
		ServiceName: "payments-backend",
		Enabled:     true,
	}
}

// httpMetrics bundles the per-request instruments
type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	requestSize     *telemetry.Histogram
	responseSize    *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
}

// sizeBuckets covers typical JSON payloads, from single-registration
// requests up to bulk invoice imports
var sizeBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := telemetry.NewCounter(
		meter,
		"http_server_request_total",
		"Total number of HTTP requests",
		"{request}",
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	requestSize, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_size_bytes",
		Description: "HTTP request body size distribution in bytes",
		Unit:        "By",
		Boundaries:  sizeBuckets,
	})
	if err != nil {
		return nil, err
	}

	responseSize, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size distribution in bytes",
		Unit:        "By",
		Boundaries:  sizeBuckets,
	})
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestSize:     requestSize,
		responseSize:    responseSize,
		activeRequests:  activeRequests,
	}, nil
}

// HTTPMetrics returns a middleware recording request count, latency,
// request/response sizes and in-flight requests. The counter carries
// method, route, status code and company labels; the histograms carry
// only method and route to keep cardinality down.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passthrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), true)
}

// HTTPMetricsWithMeter builds the middleware on an explicit meter.
// Instrument registration can only fail on malformed names, in which
// case requests pass through unrecorded.
func HTTPMetricsWithMeter(meter metric.Meter, enabled bool) gin.HandlerFunc {
	if !enabled {
		return passthrough
	}
	metrics, err := newHTTPMetrics(meter)
	if err != nil {
		return passthrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		requestSize := c.Request.ContentLength

		metrics.activeRequests.Add(ctx, 1)
		c.Next()
		metrics.activeRequests.Add(ctx, -1)

		// The matched route pattern keeps /invoices/:id as one series
		// instead of one per invoice
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}

		baseAttrs := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(route),
		}

		requestAttrs := append([]attribute.KeyValue{
			telemetry.AttrHTTPStatusCode.Int(c.Writer.Status()),
		}, baseAttrs...)
		if companyID := companyIDFromJWT(c); companyID != "" {
			requestAttrs = append(requestAttrs, telemetry.AttrCompanyID.String(companyID))
		}
		metrics.requestTotal.Inc(ctx, requestAttrs...)

		metrics.requestDuration.RecordDuration(ctx, time.Since(start), baseAttrs...)
		if requestSize > 0 {
			metrics.requestSize.Record(ctx, float64(requestSize), baseAttrs...)
		}
		if responseSize := c.Writer.Size(); responseSize > 0 {
			metrics.responseSize.Record(ctx, float64(responseSize), baseAttrs...)
		}
	}
}

func passthrough(c *gin.Context) {
	c.Next()
}

// companyIDFromJWT reads the company the JWT middleware resolved, if any
func companyIDFromJWT(c *gin.Context) string {
	if companyID, exists := c.Get(JWTCompanyIDKey); exists {
		if id, ok := companyID.(string); ok {
			return id
		}
	}
	return ""
}
