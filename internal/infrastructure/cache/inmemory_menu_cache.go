package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/erp/payments/internal/domain/access"
	"github.com/google/uuid"
)

// InMemoryMenuCache implements access.MenuVisibilityCache with a local map.
// Suitable for single-instance deployments and testing. Entries expire
// lazily on read.
type InMemoryMenuCache struct {
	mu      sync.RWMutex
	entries map[string]inMemoryEntry
	config  access.CacheConfig
}

type inMemoryEntry struct {
	menuIDs   []uuid.UUID
	expiresAt time.Time
}

// NewInMemoryMenuCache creates a new in-memory menu visibility cache
func NewInMemoryMenuCache(cfg access.CacheConfig) *InMemoryMenuCache {
	if cfg.TTL <= 0 {
		cfg.TTL = access.DefaultCacheConfig().TTL
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = access.DefaultCacheConfig().KeyPrefix
	}
	return &InMemoryMenuCache{
		entries: make(map[string]inMemoryEntry),
		config:  cfg,
	}
}

func (c *InMemoryMenuCache) key(companyID, userID uuid.UUID) string {
	return c.config.KeyPrefix + ":" + companyID.String() + ":" + userID.String()
}

// Get retrieves the cached visible menu IDs for a user
func (c *InMemoryMenuCache) Get(_ context.Context, companyID, userID uuid.UUID) ([]uuid.UUID, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[c.key(companyID, userID)]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, c.key(companyID, userID))
		c.mu.Unlock()
		return nil, false, nil
	}

	// Return a copy so callers cannot mutate the cached slice
	menuIDs := make([]uuid.UUID, len(entry.menuIDs))
	copy(menuIDs, entry.menuIDs)
	return menuIDs, true, nil
}

// Set stores the visible menu IDs for a user
func (c *InMemoryMenuCache) Set(_ context.Context, companyID, userID uuid.UUID, menuIDs []uuid.UUID) error {
	stored := make([]uuid.UUID, len(menuIDs))
	copy(stored, menuIDs)

	c.mu.Lock()
	c.entries[c.key(companyID, userID)] = inMemoryEntry{
		menuIDs:   stored,
		expiresAt: time.Now().Add(c.config.TTL),
	}
	c.mu.Unlock()
	return nil
}

// InvalidateCompany removes every cached visibility entry for a company
func (c *InMemoryMenuCache) InvalidateCompany(_ context.Context, companyID uuid.UUID) error {
	prefix := c.config.KeyPrefix + ":" + companyID.String() + ":"

	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
	return nil
}

// Close releases any resources held by the cache
func (c *InMemoryMenuCache) Close() error {
	c.mu.Lock()
	c.entries = make(map[string]inMemoryEntry)
	c.mu.Unlock()
	return nil
}

// Len returns the number of live entries (for testing/monitoring)
func (c *InMemoryMenuCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure InMemoryMenuCache implements MenuVisibilityCache
var _ access.MenuVisibilityCache = (*InMemoryMenuCache)(nil)
