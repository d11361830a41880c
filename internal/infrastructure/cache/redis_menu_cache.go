package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/payments/internal/domain/access"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Constants for Redis cache configuration
const (
	defaultScanBatchSize = 100
)

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisMenuCache implements access.MenuVisibilityCache using Redis
type RedisMenuCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	config     access.CacheConfig
	logger     *zap.Logger
}

// RedisMenuCacheOption is a functional option for configuring the cache
type RedisMenuCacheOption func(*RedisMenuCache)

// WithCacheConfig sets the cache configuration
func WithCacheConfig(config access.CacheConfig) RedisMenuCacheOption {
	return func(c *RedisMenuCache) {
		c.config = config
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisMenuCacheOption {
	return func(c *RedisMenuCache) {
		c.logger = logger
	}
}

// NewRedisMenuCache creates a new Redis-based menu visibility cache
func NewRedisMenuCache(cfg RedisConfig, opts ...RedisMenuCacheOption) (*RedisMenuCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := &RedisMenuCache{
		client:     client,
		ownsClient: true, // We created this client, so we own it
		config:     access.DefaultCacheConfig(),
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache, nil
}

// NewRedisMenuCacheWithClient creates a cache with an existing Redis client
// Note: The caller retains ownership of the client and is responsible for closing it
func NewRedisMenuCacheWithClient(client *redis.Client, opts ...RedisMenuCacheOption) *RedisMenuCache {
	cache := &RedisMenuCache{
		client:     client,
		ownsClient: false, // Client is shared, don't close it
		config:     access.DefaultCacheConfig(),
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// visibilityKey generates the cache key for one user's visible menu set
func (c *RedisMenuCache) visibilityKey(companyID, userID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", c.config.KeyPrefix, companyID.String(), userID.String())
}

// companyPattern matches every cached entry belonging to a company
func (c *RedisMenuCache) companyPattern(companyID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:*", c.config.KeyPrefix, companyID.String())
}

// Get retrieves the cached visible menu IDs for a user
func (c *RedisMenuCache) Get(ctx context.Context, companyID, userID uuid.UUID) ([]uuid.UUID, bool, error) {
	cacheKey := c.visibilityKey(companyID, userID)

	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Cache miss for menu visibility",
			zap.String("company_id", companyID.String()),
			zap.String("user_id", userID.String()))
		return nil, false, nil
	}
	if err != nil {
		c.logger.Error("Failed to get menu visibility from cache",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, false, fmt.Errorf("failed to get menu visibility from cache: %w", err)
	}

	var menuIDs []uuid.UUID
	if err := json.Unmarshal(data, &menuIDs); err != nil {
		c.logger.Error("Failed to unmarshal menu visibility entry",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		// Delete corrupted cache entry
		_ = c.client.Del(ctx, cacheKey)
		return nil, false, fmt.Errorf("failed to unmarshal menu visibility entry: %w", err)
	}

	c.logger.Debug("Cache hit for menu visibility",
		zap.String("user_id", userID.String()),
		zap.Int("menu_count", len(menuIDs)))
	return menuIDs, true, nil
}

// Set stores the visible menu IDs for a user
func (c *RedisMenuCache) Set(ctx context.Context, companyID, userID uuid.UUID, menuIDs []uuid.UUID) error {
	cacheKey := c.visibilityKey(companyID, userID)

	data, err := json.Marshal(menuIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal menu visibility entry: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey, data, c.config.TTL).Err(); err != nil {
		c.logger.Error("Failed to set menu visibility in cache",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to set menu visibility in cache: %w", err)
	}

	c.logger.Debug("Cached menu visibility",
		zap.String("user_id", userID.String()),
		zap.Int("menu_count", len(menuIDs)),
		zap.Duration("ttl", c.config.TTL))
	return nil
}

// InvalidateCompany removes every cached visibility entry for a company.
// Uses SCAN to avoid blocking Redis with the KEYS command.
func (c *RedisMenuCache) InvalidateCompany(ctx context.Context, companyID uuid.UUID) error {
	var cursor uint64
	var deletedCount int64

	for {
		var keys []string
		var err error
		keys, cursor, err = c.client.Scan(ctx, cursor, c.companyPattern(companyID), defaultScanBatchSize).Result()
		if err != nil {
			c.logger.Error("Failed to scan menu visibility keys", zap.Error(err))
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}

		if len(keys) > 0 {
			deleted, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				c.logger.Error("Failed to delete menu visibility keys", zap.Error(err))
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
			deletedCount += deleted
		}

		if cursor == 0 {
			break
		}
	}

	c.logger.Debug("Invalidated menu visibility cache for company",
		zap.String("company_id", companyID.String()),
		zap.Int64("deleted_count", deletedCount))
	return nil
}

// Close releases any resources held by the cache
func (c *RedisMenuCache) Close() error {
	// Only close client if we own it
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisMenuCache) GetClient() *redis.Client {
	return c.client
}

// Ensure RedisMenuCache implements MenuVisibilityCache
var _ access.MenuVisibilityCache = (*RedisMenuCache)(nil)
