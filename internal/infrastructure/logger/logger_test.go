package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestProductionConfig(t *testing.T) {
	cfg := ProductionConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"default config", DefaultConfig()},
		{"production config", ProductionConfig()},
		{"nil config falls back to defaults", nil},
		{"debug console", &Config{Level: "debug", Format: "console", Output: "stdout"}},
		{"json to stderr", &Config{Level: "info", Format: "json", Output: "stderr", TimeFormat: "2006-01-02T15:04:05Z07:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"development", "production", "staging"} {
		t.Run(env, func(t *testing.T) {
			logger, err := NewForEnvironment(env)
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.level))
		})
	}
}

func TestSync(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	// Sync on stdout can fail on some platforms, it just must not panic
	_ = Sync(logger)
}

func TestCreateWriter(t *testing.T) {
	for _, output := range []string{"stdout", "stderr", "STDOUT", ""} {
		t.Run("output "+output, func(t *testing.T) {
			assert.NotNil(t, createWriter(output))
		})
	}

	t.Run("file output", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "payments.log")
		writer := createWriter(path)
		require.NotNil(t, writer)

		_, err := writer.Write([]byte("hello\n"))
		require.NoError(t, err)

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(content))
	})
}

func TestCreateEncoder(t *testing.T) {
	consoleCfg := &Config{Level: "info", Format: "console", Output: "stdout", TimeFormat: "2006-01-02T15:04:05Z07:00"}
	assert.NotNil(t, createEncoder(consoleCfg))

	jsonCfg := &Config{Level: "info", Format: "json", Output: "stdout", TimeFormat: "2006-01-02T15:04:05Z07:00"}
	assert.NotNil(t, createEncoder(jsonCfg))
}

func TestLogOutput(t *testing.T) {
	var buf bytes.Buffer

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(&buf),
		zapcore.InfoLevel,
	)
	logger := zap.New(core)

	logger.Info("registration posted", zap.String("journal", "BNK1"))

	var output map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))

	assert.Equal(t, "registration posted", output["msg"])
	assert.Equal(t, "info", output["level"])
	assert.Equal(t, "BNK1", output["journal"])
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	encoderConfig := zapcore.EncoderConfig{
		LevelKey:    "level",
		MessageKey:  "msg",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(&buf),
		zapcore.InfoLevel,
	)
	logger := zap.New(core)

	logger.Debug("debug message")
	assert.NotContains(t, buf.String(), "debug message")

	logger.Info("info message")
	assert.Contains(t, buf.String(), "info message")
}
