// Package middleware provides HTTP middleware for the payments backend.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// MaxRequestIDLength caps request IDs taken from inbound headers
	MaxRequestIDLength = 128
	// MaxCompanyIDLength caps company IDs taken from inbound headers
	MaxCompanyIDLength = 64
)

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	// ServiceName identifies the service on exported spans
	ServiceName string
	// Enabled controls whether tracing is active
	Enabled bool
}

// DefaultTracingConfig returns default tracing configuration
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "payments-backend",
		Enabled:     true,
	}
}

// Tracing returns tracing middleware with default configuration
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig wraps otelgin so every request gets a server span
// named "METHOD route_pattern", then stamps request_id, company_id and
// user_id onto it. Correlation values coming from headers instead of
// the JWT are validated first; trace attributes are exported, so header
// content is not trusted as-is.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passthrough
	}

	otelMiddleware := otelgin.Middleware(cfg.ServiceName)

	return func(c *gin.Context) {
		otelMiddleware(c)

		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpanWithAttributes(c, span)
		}
	}
}

// enrichSpanWithAttributes stamps correlation IDs onto the span
func enrichSpanWithAttributes(c *gin.Context, span trace.Span) {
	if requestID := getRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if companyID := getCompanyID(c); companyID != "" {
		span.SetAttributes(attribute.String("company_id", companyID))
	}
	if userID := getUserID(c); userID != "" {
		span.SetAttributes(attribute.String("user_id", userID))
	}
}

// getRequestID prefers the ID assigned by the RequestID middleware and
// falls back to the inbound header, truncated to a sane length.
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	headerID := c.GetHeader(RequestIDHeader)
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

// getCompanyID prefers the company resolved from the JWT. The
// X-Company-ID header fallback only exists for unauthenticated
// endpoints and must parse as a UUID before it lands in a span.
func getCompanyID(c *gin.Context) string {
	if id := companyIDFromJWT(c); id != "" {
		return id
	}
	if headerID := c.GetHeader("X-Company-ID"); isValidCompanyID(headerID) {
		return headerID
	}
	return ""
}

// isValidCompanyID reports whether the value is a canonical hyphenated
// UUID. Only that exact form is accepted; anything else is dropped
// rather than exported as a trace attribute.
func isValidCompanyID(companyID string) bool {
	if len(companyID) != 36 {
		return false
	}
	for i, r := range companyID {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			if !isHexDigit(r) {
				return false
			}
		}
	}
	return true
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// getUserID reads the user the JWT middleware resolved, if any
func getUserID(c *gin.Context) string {
	if userID, exists := c.Get(JWTUserIDKey); exists {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return ""
}

// SpanErrorMarker marks the request span as errored on 4xx and 5xx
// responses. Mount it after the tracing middleware.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode < http.StatusBadRequest {
			return
		}

		message := http.StatusText(statusCode)
		if message == "" {
			message = "Client Error"
		}
		span.SetStatus(codes.Error, message)
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
	}
}

// TracingAttributeInjector re-applies the correlation attributes after
// authentication has run, so spans on authenticated routes carry the
// JWT-resolved company and user rather than header values. Mount it
// after both the tracing and JWT middleware.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpanWithAttributes(c, span)
		}
		c.Next()
	}
}
