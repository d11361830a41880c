package access

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MenuVisibilityCache caches the set of menu IDs a user may see. Entries
// are invalidated per company whenever any restriction changes.
type MenuVisibilityCache interface {
	// Get returns the cached visible menu IDs for a user, and whether the
	// entry was present
	Get(ctx context.Context, companyID, userID uuid.UUID) ([]uuid.UUID, bool, error)

	// Set stores the visible menu IDs for a user
	Set(ctx context.Context, companyID, userID uuid.UUID, menuIDs []uuid.UUID) error

	// InvalidateCompany drops every cached entry for a company
	InvalidateCompany(ctx context.Context, companyID uuid.UUID) error

	// Close releases any underlying resources
	Close() error
}

// CacheConfig holds tuning for the menu visibility cache
type CacheConfig struct {
	TTL       time.Duration
	KeyPrefix string
}

// DefaultCacheConfig returns the default cache configuration
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:       5 * time.Minute,
		KeyPrefix: "menu_visibility",
	}
}
