package cache

import (
	"fmt"

	"github.com/erp/payments/internal/domain/access"
	"github.com/erp/payments/internal/infrastructure/config"
	"go.uber.org/zap"
)

// MenuCacheFactory creates menu visibility caches based on configuration
type MenuCacheFactory struct {
	redisConfig           config.RedisConfig
	cacheConfig           access.CacheConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// MenuCacheFactoryOption is a functional option for configuring the factory
type MenuCacheFactoryOption func(*MenuCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) MenuCacheFactoryOption {
	return func(f *MenuCacheFactory) {
		f.logger = logger
	}
}

// WithMenuCacheConfig sets cache tuning for the created caches
func WithMenuCacheConfig(cfg access.CacheConfig) MenuCacheFactoryOption {
	return func(f *MenuCacheFactory) {
		f.cacheConfig = cfg
	}
}

// WithInMemoryFallback controls whether to fall back to an in-memory cache
// when Redis is unavailable. Default is true (allow fallback).
func WithInMemoryFallback(allow bool) MenuCacheFactoryOption {
	return func(f *MenuCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewMenuCacheFactory creates a new factory
func NewMenuCacheFactory(cfg config.RedisConfig, opts ...MenuCacheFactoryOption) *MenuCacheFactory {
	f := &MenuCacheFactory{
		redisConfig:           cfg,
		cacheConfig:           access.DefaultCacheConfig(),
		logger:                zap.NewNop(),
		allowInMemoryFallback: true, // Default to allowing fallback
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-based menu visibility cache
func (f *MenuCacheFactory) CreateRedisCache() (access.MenuVisibilityCache, error) {
	redisCfg := RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}

	cache, err := NewRedisMenuCache(redisCfg,
		WithCacheConfig(f.cacheConfig),
		WithCacheLogger(f.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis menu cache: %w", err)
	}

	return cache, nil
}

// CreateInMemoryCache creates an in-memory menu visibility cache.
// WARNING: In-memory caches do not share invalidations across process
// instances, which can leave stale visibility in distributed deployments.
func (f *MenuCacheFactory) CreateInMemoryCache() access.MenuVisibilityCache {
	return NewInMemoryMenuCache(f.cacheConfig)
}

// CreateCache creates a menu visibility cache based on whether Redis is
// available. It tries Redis first, and falls back to in-memory if Redis is
// not available and fallback is allowed.
func (f *MenuCacheFactory) CreateCache() (access.MenuVisibilityCache, error) {
	cache, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis menu visibility cache")
		return cache, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for menu cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory menu visibility cache. "+
		"Restriction changes will not propagate across instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}
