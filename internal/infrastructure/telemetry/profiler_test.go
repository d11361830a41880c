package telemetry_test

import (
	"sync"
	"testing"

	"github.com/erp/payments/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func disabledProfilerConfig() telemetry.ProfilerConfig {
	return telemetry.ProfilerConfig{
		Enabled:         false,
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "payments-api",
	}
}

func TestNewProfiler(t *testing.T) {
	t.Run("disabled is a no-op", func(t *testing.T) {
		cfg := disabledProfilerConfig()

		p, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NotNil(t, p)

		assert.False(t, p.IsEnabled())
		assert.Equal(t, "payments-api", p.GetConfig().ApplicationName)
		assert.NoError(t, p.Stop())
	})

	t.Run("nil logger", func(t *testing.T) {
		p, err := telemetry.NewProfiler(disabledProfilerConfig(), nil)
		require.NoError(t, err)
		require.NotNil(t, p)
	})

	t.Run("enabled requires server address", func(t *testing.T) {
		cfg := disabledProfilerConfig()
		cfg.Enabled = true
		cfg.ServerAddress = ""

		p, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
		require.Error(t, err)
		assert.Nil(t, p)
		assert.Contains(t, err.Error(), "server address is required")
	})

	t.Run("enabled requires application name", func(t *testing.T) {
		cfg := disabledProfilerConfig()
		cfg.Enabled = true
		cfg.ApplicationName = ""

		p, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
		require.Error(t, err)
		assert.Nil(t, p)
		assert.Contains(t, err.Error(), "application name is required")
	})
}

// Needs a Pyroscope server listening on ServerAddress, so only runs
// outside -short.
func TestNewProfiler_AgainstLiveServer(t *testing.T) {
	if testing.Short() {
		t.Skip("requires a running Pyroscope server")
	}

	cfg := disabledProfilerConfig()
	cfg.Enabled = true
	cfg.ProfileCPU = true
	cfg.ProfileAllocObjects = true
	cfg.ProfileAllocSpace = true
	cfg.ProfileInuseObjects = true
	cfg.ProfileInuseSpace = true
	cfg.ProfileGoroutines = true

	p, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
}

func TestProfiler_Stop(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		p, err := telemetry.NewProfiler(telemetry.ProfilerConfig{}, zaptest.NewLogger(t))
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			assert.NoError(t, p.Stop())
		}
	})

	t.Run("concurrent", func(t *testing.T) {
		p, err := telemetry.NewProfiler(telemetry.ProfilerConfig{}, zaptest.NewLogger(t))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = p.Stop()
			}()
		}
		wg.Wait()
	})
}

func TestProfiler_ConfigPassthrough(t *testing.T) {
	// All variants stay disabled so no agent is started; what matters
	// is that the options survive construction intact.
	tests := []struct {
		name   string
		mutate func(*telemetry.ProfilerConfig)
		check  func(*testing.T, telemetry.ProfilerConfig)
	}{
		{
			name: "mutex profiling",
			mutate: func(c *telemetry.ProfilerConfig) {
				c.ProfileMutexCount = true
				c.ProfileMutexDuration = true
				c.MutexProfileFraction = 10
			},
			check: func(t *testing.T, c telemetry.ProfilerConfig) {
				assert.True(t, c.ProfileMutexCount)
				assert.True(t, c.ProfileMutexDuration)
				assert.Equal(t, 10, c.MutexProfileFraction)
			},
		},
		{
			name: "block profiling",
			mutate: func(c *telemetry.ProfilerConfig) {
				c.ProfileBlockCount = true
				c.ProfileBlockDuration = true
				c.BlockProfileRate = 20
			},
			check: func(t *testing.T, c telemetry.ProfilerConfig) {
				assert.True(t, c.ProfileBlockCount)
				assert.True(t, c.ProfileBlockDuration)
				assert.Equal(t, 20, c.BlockProfileRate)
			},
		},
		{
			name: "gc runs disabled",
			mutate: func(c *telemetry.ProfilerConfig) {
				c.DisableGCRuns = true
			},
			check: func(t *testing.T, c telemetry.ProfilerConfig) {
				assert.True(t, c.DisableGCRuns)
			},
		},
		{
			name: "basic auth",
			mutate: func(c *telemetry.ProfilerConfig) {
				c.BasicAuthUser = "pyro"
				c.BasicAuthPassword = "secret"
			},
			check: func(t *testing.T, c telemetry.ProfilerConfig) {
				assert.Equal(t, "pyro", c.BasicAuthUser)
				assert.Equal(t, "secret", c.BasicAuthPassword)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := disabledProfilerConfig()
			tt.mutate(&cfg)

			p, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.False(t, p.IsEnabled())

			tt.check(t, p.GetConfig())
			assert.NoError(t, p.Stop())
		})
	}
}
