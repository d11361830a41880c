package telemetry

import (
	"context"
	"maps"
	"runtime/pprof"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Label keys used to slice profiles in the Pyroscope UI.
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelCompanyID  = "company_id"
	ProfilingLabelOperation  = "operation"
	ProfilingLabelRegion     = "region"
)

// MaxLabelValueLength caps label values so a runaway value cannot blow
// up profile cardinality.
const MaxLabelValueLength = 128

// HighCardinalityLabels lists keys that sanitizeLabels drops outright.
// One series per user or per invoice would overwhelm Pyroscope.
// company_id stays allowed: company counts are low enough in practice.
var HighCardinalityLabels = map[string]bool{
	"user_id":    true,
	"request_id": true,
	"invoice_id": true,
	"payment_id": true,
	"trace_id":   true,
	"span_id":    true,
	"session_id": true,
}

// prepareLabels copies, sanitizes and flattens a label map into the
// alternating key/value slice both pprof and pyroscope expect. Returns
// nil when nothing survives sanitization.
func prepareLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}
	copied := make(map[string]string, len(labels))
	maps.Copy(copied, labels)
	return sanitizeLabels(copied)
}

// WithProfilingLabels runs fn with the given labels attached to its
// CPU samples. The map is copied, so callers may reuse it afterwards.
//
//	telemetry.WithProfilingLabels(ctx, map[string]string{
//	    "controller": "RegistrationHandler",
//	    "operation":  "ConfirmRegistration",
//	}, func(c context.Context) {
//	    confirm(c)
//	})
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := prepareLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// WithPprofLabels is the same as WithProfilingLabels but goes through
// Go's native pprof API, for standard profiling tools without the
// Pyroscope SDK.
func WithPprofLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := prepareLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pprof.Do(ctx, pprof.Labels(pairs...), fn)
}

// ProfilingScope accumulates labels incrementally before running a
// labeled section.
type ProfilingScope struct {
	labels map[string]string
}

// NewProfilingScope creates a scope seeded with the given labels.
func NewProfilingScope(labels map[string]string) *ProfilingScope {
	scope := &ProfilingScope{
		labels: make(map[string]string),
	}
	maps.Copy(scope.labels, labels)
	return scope
}

// WithLabel adds a single label to the scope.
func (s *ProfilingScope) WithLabel(key, value string) *ProfilingScope {
	s.labels[key] = value
	return s
}

func (s *ProfilingScope) WithController(controller string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelController, controller)
}

func (s *ProfilingScope) WithRoute(route string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelRoute, route)
}

func (s *ProfilingScope) WithMethod(method string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelMethod, method)
}

func (s *ProfilingScope) WithCompanyID(companyID string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelCompanyID, companyID)
}

func (s *ProfilingScope) WithOperation(operation string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelOperation, operation)
}

func (s *ProfilingScope) WithRegion(region string) *ProfilingScope {
	return s.WithLabel(ProfilingLabelRegion, region)
}

// Labels returns a copy of the accumulated labels.
func (s *ProfilingScope) Labels() map[string]string {
	result := make(map[string]string, len(s.labels))
	maps.Copy(result, s.labels)
	return result
}

// Run executes fn with the accumulated labels.
func (s *ProfilingScope) Run(ctx context.Context, fn func(context.Context)) {
	WithProfilingLabels(ctx, s.labels, fn)
}

// sanitizeLabels drops empty and high-cardinality entries, truncates
// oversized values, normalizes keys and returns a sorted key/value
// slice so output is deterministic.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if key == "" || value == "" {
			continue
		}
		// Silently skip rather than log: this runs on hot paths.
		if HighCardinalityLabels[key] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		sanitized := sanitizeLabelKey(key)
		if sanitized == "" {
			continue
		}
		pairs = append(pairs, sanitized, value)
	}

	return pairs
}

// sanitizeLabelKey lowercases the key, maps separators to underscores
// and strips anything outside [a-z0-9_].
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, "-", "_")

	result := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			result = append(result, c)
		}
	}
	return string(result)
}

// HTTPRequestLabels builds the standard label set for HTTP request
// profiling, skipping empty components.
func HTTPRequestLabels(controller, route, method, companyID string) map[string]string {
	labels := make(map[string]string, 4)
	if controller != "" {
		labels[ProfilingLabelController] = controller
	}
	if route != "" {
		labels[ProfilingLabelRoute] = route
	}
	if method != "" {
		labels[ProfilingLabelMethod] = method
	}
	if companyID != "" {
		labels[ProfilingLabelCompanyID] = companyID
	}
	return labels
}

// OperationLabels builds labels for a named operation.
func OperationLabels(operation string, extraLabels map[string]string) map[string]string {
	labels := make(map[string]string, len(extraLabels)+1)
	labels[ProfilingLabelOperation] = operation
	maps.Copy(labels, extraLabels)
	return labels
}

// RegionLabels builds labels for a code region such as db_query.
func RegionLabels(region string, extraLabels map[string]string) map[string]string {
	labels := make(map[string]string, len(extraLabels)+1)
	labels[ProfilingLabelRegion] = region
	maps.Copy(labels, extraLabels)
	return labels
}
