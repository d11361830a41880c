package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedInvoice struct {
	ID        uint   `gorm:"primaryKey"`
	Number    string `gorm:"size:100"`
	CreatedAt time.Time
}

func setupTracingDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedInvoice{}))
	return db
}

func setupSpanRecorder(t *testing.T) (*trace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL, "full SQL logging must be opt-in")
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)
	assert.True(t, cfg.WithoutVariables, "bound variables stay out of spans unless asked for")
}

func TestNewDBTracingPlugin(t *testing.T) {
	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true

	plugin := NewDBTracingPlugin(cfg, zap.NewNop())

	require.NotNil(t, plugin)
	assert.Equal(t, cfg, plugin.config)
}

func TestNewDBTracingPlugin_NilLogger(t *testing.T) {
	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), nil)

	require.NotNil(t, plugin)
	assert.NotNil(t, plugin.logger)
}

func TestDBTracingPlugin_RegisterOtelGorm_Disabled(t *testing.T) {
	db := setupTracingDB(t)

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = false

	plugin := NewDBTracingPlugin(cfg, zap.NewNop())
	assert.NoError(t, plugin.RegisterOtelGorm(db))
}

func TestDBTracingPlugin_RegisterOtelGorm_Enabled(t *testing.T) {
	db := setupTracingDB(t)

	cfg := DBTracingConfig{
		Enabled:          true,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: true,
	}

	plugin := NewDBTracingPlugin(cfg, zap.NewNop())
	assert.NoError(t, plugin.RegisterOtelGorm(db))
}

func TestDBTracingPlugin_RegisterOtelGorm_WithFullSQL(t *testing.T) {
	db := setupTracingDB(t)

	cfg := DBTracingConfig{
		Enabled:         true,
		LogFullSQL:      true,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "sqlite",
	}

	plugin := NewDBTracingPlugin(cfg, zap.NewNop())
	assert.NoError(t, plugin.RegisterOtelGorm(db))
}

func TestDBTracingPlugin_RegisterOtelGorm_DoubleRegistration(t *testing.T) {
	db := setupTracingDB(t)

	cfg := DBTracingConfig{
		Enabled:          true,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "sqlite",
		WithoutVariables: true,
	}

	plugin := NewDBTracingPlugin(cfg, zap.NewNop())
	assert.NoError(t, plugin.RegisterOtelGorm(db))

	// Callback names collide on the second registration.
	assert.Error(t, plugin.RegisterOtelGorm(db))
}

func TestFinishQuerySpan_RowsAffected(t *testing.T) {
	db := setupTracingDB(t)
	tp, recorder := setupSpanRecorder(t)

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "batch-insert")

	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())

	invoices := []tracedInvoice{{Number: "INV/001"}, {Number: "INV/002"}, {Number: "INV/003"}}
	result := db.WithContext(ctx).Create(&invoices)
	require.NoError(t, result.Error)

	plugin.finishQuerySpan(result.Statement.DB)
	span.End()

	spans := recorder.Ended()
	require.NotEmpty(t, spans)

	foundRows := false
	for _, attr := range spans[0].Attributes() {
		if attr.Key == "db.rows_affected" {
			foundRows = true
			assert.Equal(t, int64(3), attr.Value.AsInt64())
		}
	}
	assert.True(t, foundRows, "db.rows_affected attribute should be present")
}

func TestFinishQuerySpan_NotFoundIsNotAnError(t *testing.T) {
	db := setupTracingDB(t)
	tp, recorder := setupSpanRecorder(t)

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "lookup")

	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())

	var inv tracedInvoice
	tx := db.WithContext(ctx).First(&inv, 99999)
	require.Error(t, tx.Error)

	plugin.finishQuerySpan(tx)
	span.End()

	spans := recorder.Ended()
	require.NotEmpty(t, spans)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestFinishQuerySpan_SlowQueryEvent(t *testing.T) {
	db := setupTracingDB(t)
	tp, recorder := setupSpanRecorder(t)

	cfg := DefaultDBTracingConfig()
	cfg.SlowQueryThresh = time.Nanosecond

	plugin := NewDBTracingPlugin(cfg, zap.NewNop())

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "slow-lookup")
	ctx = WithQueryStartTime(ctx)
	time.Sleep(time.Millisecond)

	tx := db.WithContext(ctx)
	var inv tracedInvoice
	tx.First(&inv)

	plugin.finishQuerySpan(tx.Statement.DB)
	span.End()

	spans := recorder.Ended()
	require.NotEmpty(t, spans)

	foundEvent := false
	for _, event := range spans[0].Events() {
		if event.Name == "slow_query_warning" {
			foundEvent = true
			for _, attr := range event.Attributes {
				if attr.Key == "duration_ms" {
					assert.GreaterOrEqual(t, attr.Value.AsInt64(), int64(1))
				}
			}
		}
	}
	assert.True(t, foundEvent, "slow_query_warning event should be recorded")
}

func TestFinishQuerySpan_NonRecordingSpan(t *testing.T) {
	db := setupTracingDB(t)
	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())

	assert.NotPanics(t, func() {
		plugin.finishQuerySpan(db.WithContext(context.Background()))
	})
}

func TestFinishQuerySpan_NilContext(t *testing.T) {
	db := setupTracingDB(t)
	plugin := NewDBTracingPlugin(DefaultDBTracingConfig(), zap.NewNop())

	assert.NotPanics(t, func() {
		plugin.finishQuerySpan(db)
	})
}

func TestWithQueryStartTime(t *testing.T) {
	ctx := WithQueryStartTime(context.Background())

	startTime, ok := ctx.Value(queryStartTimeKey).(time.Time)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), startTime, time.Second)
}

func TestDBTracing_EndToEnd(t *testing.T) {
	db := setupTracingDB(t)
	tp, recorder := setupSpanRecorder(t)

	cfg := DBTracingConfig{
		Enabled:         true,
		LogFullSQL:      true,
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "sqlite",
	}

	plugin := NewDBTracingPlugin(cfg, zap.NewNop())
	require.NoError(t, plugin.RegisterOtelGorm(db))

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "register-payment")

	tx := db.WithContext(ctx)
	require.NoError(t, tx.Create(&tracedInvoice{Number: "INV/100"}).Error)

	var found tracedInvoice
	require.NoError(t, tx.First(&found, "number = ?", "INV/100").Error)
	assert.Equal(t, "INV/100", found.Number)

	span.End()
	assert.NotEmpty(t, recorder.Ended())
}
