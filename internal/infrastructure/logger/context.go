package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// contextKey keeps this package's context values from colliding with
// keys defined elsewhere
type contextKey string

const (
	// LoggerKey carries the request-scoped logger
	LoggerKey contextKey = "logger"
	// RequestIDKey carries the correlation ID assigned by the HTTP layer
	RequestIDKey contextKey = "request_id"
	// CompanyIDKey carries the company the caller is acting for
	CompanyIDKey contextKey = "company_id"
	// UserIDKey carries the authenticated user
	UserIDKey contextKey = "user_id"
)

// WithContext stores the logger in the context
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext returns the logger stored in the context. Code running
// outside a request (migrations, tests) gets a no-op logger rather
// than a nil panic.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// withField stores value under key and returns a logger that emits it
// on every entry, re-attaching the logger to the context so later
// FromContext calls see the enriched one.
func withField(ctx context.Context, logger *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, key, value)
	enriched := logger.With(zap.String(string(key), value))
	return WithContext(ctx, enriched), enriched
}

// WithRequestID binds the request correlation ID to the context and logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, RequestIDKey, requestID)
}

// WithCompanyID binds the acting company to the context and logger
func WithCompanyID(ctx context.Context, logger *zap.Logger, companyID string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, CompanyIDKey, companyID)
}

// WithUserID binds the authenticated user to the context and logger
func WithUserID(ctx context.Context, logger *zap.Logger, userID string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, UserIDKey, userID)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GetRequestID returns the request ID stored in the context, if any
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetCompanyID returns the company ID stored in the context, if any
func GetCompanyID(ctx context.Context) string {
	return stringValue(ctx, CompanyIDKey)
}

// GetUserID returns the user ID stored in the context, if any
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}

// validSpanContext returns the span context for the active span, or
// false when there is no span or it carries no usable IDs.
func validSpanContext(ctx context.Context) (trace.SpanContext, bool) {
	span := trace.SpanFromContext(ctx)
	if span == nil {
		return trace.SpanContext{}, false
	}
	sc := span.SpanContext()
	return sc, sc.IsValid()
}

// GetTraceID returns the active span's trace ID, or "" outside a trace
func GetTraceID(ctx context.Context) string {
	if sc, ok := validSpanContext(ctx); ok {
		return sc.TraceID().String()
	}
	return ""
}

// GetSpanID returns the active span's span ID, or "" outside a trace
func GetSpanID(ctx context.Context) string {
	if sc, ok := validSpanContext(ctx); ok {
		return sc.SpanID().String()
	}
	return ""
}

// WithTraceContext stamps trace_id and span_id onto the logger so log
// lines can be joined with traces in the backend. Outside a trace the
// logger is returned unchanged.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	sc, ok := validSpanContext(ctx)
	if !ok {
		return logger
	}
	return logger.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

// ContextLogger logs with correlation fields pulled from a context at
// emit time: trace_id and span_id from the active span, plus
// request_id, company_id and user_id when the middleware stored them.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L builds a ContextLogger around whatever logger the context carries.
//
//	logger.L(ctx).Info("payment posted", zap.String("payment_id", id))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

// WithLogger builds a ContextLogger around an explicit logger. Services
// that hold their own injected logger use this instead of L.
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: logger}
}

// resolve applies the context's correlation fields to the base logger
func (cl *ContextLogger) resolve() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}
	l = WithTraceContext(cl.ctx, l)

	for _, key := range []contextKey{RequestIDKey, CompanyIDKey, UserIDKey} {
		if v := stringValue(cl.ctx, key); v != "" {
			l = l.With(zap.String(string(key), v))
		}
	}
	return l
}

// With returns a child ContextLogger carrying extra fields
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.logger.With(fields...)}
}

// Debug logs at debug level with correlation fields
func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.resolve().Debug(msg, fields...)
}

// Info logs at info level with correlation fields
func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.resolve().Info(msg, fields...)
}

// Warn logs at warn level with correlation fields
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.resolve().Warn(msg, fields...)
}

// Error logs at error level with correlation fields
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.resolve().Error(msg, fields...)
}

// Fatal logs at fatal level with correlation fields, then exits
func (cl *ContextLogger) Fatal(msg string, fields ...zap.Field) {
	cl.resolve().Fatal(msg, fields...)
}

// Panic logs at panic level with correlation fields, then panics
func (cl *ContextLogger) Panic(msg string, fields ...zap.Field) {
	cl.resolve().Panic(msg, fields...)
}

// Zap returns the resolved *zap.Logger for code that wants one directly
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.resolve()
}

// Sugar returns the resolved logger's sugared form
func (cl *ContextLogger) Sugar() *zap.SugaredLogger {
	return cl.resolve().Sugar()
}
