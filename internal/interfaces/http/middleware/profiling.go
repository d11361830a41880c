// Package middleware provides HTTP middleware for the payments backend.
package middleware

import (
	"context"
	"strings"

	"github.com/erp/payments/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	// Enabled controls whether profiling labels are added to requests.
	Enabled bool
	// SkipPaths are paths that don't need profiling labels (e.g., health checks).
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that don't need profiling labels.
	SkipPathPrefixes []string
}

// DefaultProfilingConfig returns default profiling middleware configuration.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled: true,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/metrics",
		},
		SkipPathPrefixes: []string{
			"/swagger",
			"/api-docs",
		},
	}
}

// Profiling returns profiling middleware with default configuration.
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig returns middleware that wraps each request in a
// Pyroscope label set, so profiles can be filtered by controller, route
// pattern, method and company_id. All labels are low cardinality: the
// route is gin's matched pattern, never the raw path.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passthrough
	}

	return func(c *gin.Context) {
		if skipProfiling(cfg, c.Request.URL.Path) {
			c.Next()
			return
		}

		labels := extractProfilingLabels(c)
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func skipProfiling(cfg ProfilingConfig, path string) bool {
	for _, skipPath := range cfg.SkipPaths {
		if path == skipPath {
			return true
		}
	}
	for _, prefix := range cfg.SkipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// extractProfilingLabels builds the label set for the current request.
// company_id comes from JWT claims when authentication has run.
func extractProfilingLabels(c *gin.Context) map[string]string {
	route := c.FullPath()
	return telemetry.HTTPRequestLabels(
		extractControllerFromRoute(route),
		route,
		c.Request.Method,
		companyIDFromJWT(c),
	)
}

// extractControllerFromRoute derives a controller name from the route
// pattern by taking the first segment that is not "api", a version or a
// path parameter. "/api/v1/registrations/:id" becomes "registrations".
func extractControllerFromRoute(route string) string {
	for _, part := range strings.Split(route, "/") {
		switch {
		case part == "" || part == "api":
		case isVersionSegment(part):
		case strings.HasPrefix(part, ":") || strings.HasPrefix(part, "{"):
		default:
			return part
		}
	}
	return ""
}

// isVersionSegment reports whether a path segment looks like an API
// version such as v1 or v20.
func isVersionSegment(segment string) bool {
	if len(segment) < 2 || (segment[0] != 'v' && segment[0] != 'V') {
		return false
	}
	for _, r := range segment[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ProfilingAttributeInjector returns profiling middleware intended to
// run after the JWT middleware, so the company_id label is populated.
func ProfilingAttributeInjector() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}
