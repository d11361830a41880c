package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/payments/internal/domain/access"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryMenuCache_GetSet(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryMenuCache(access.DefaultCacheConfig())
	defer cache.Close()

	companyID := uuid.New()
	userID := uuid.New()
	menuIDs := []uuid.UUID{uuid.New(), uuid.New()}

	t.Run("miss before set", func(t *testing.T) {
		got, found, err := cache.Get(ctx, companyID, userID)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, got)
	})

	t.Run("hit after set", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, companyID, userID, menuIDs))

		got, found, err := cache.Get(ctx, companyID, userID)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, menuIDs, got)
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		got, _, err := cache.Get(ctx, companyID, userID)
		require.NoError(t, err)
		got[0] = uuid.New()

		again, _, err := cache.Get(ctx, companyID, userID)
		require.NoError(t, err)
		assert.Equal(t, menuIDs, again)
	})

	t.Run("empty set is a valid entry", func(t *testing.T) {
		emptyUser := uuid.New()
		require.NoError(t, cache.Set(ctx, companyID, emptyUser, []uuid.UUID{}))

		got, found, err := cache.Get(ctx, companyID, emptyUser)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Empty(t, got)
	})
}

func TestInMemoryMenuCache_Expiration(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryMenuCache(access.CacheConfig{TTL: 10 * time.Millisecond, KeyPrefix: "menu_visibility"})
	defer cache.Close()

	companyID := uuid.New()
	userID := uuid.New()
	require.NoError(t, cache.Set(ctx, companyID, userID, []uuid.UUID{uuid.New()}))

	time.Sleep(20 * time.Millisecond)

	_, found, err := cache.Get(ctx, companyID, userID)
	require.NoError(t, err)
	assert.False(t, found, "expired entry must read as a miss")
}

func TestInMemoryMenuCache_InvalidateCompany(t *testing.T) {
	ctx := context.Background()
	cache := NewInMemoryMenuCache(access.DefaultCacheConfig())
	defer cache.Close()

	companyA := uuid.New()
	companyB := uuid.New()
	userID := uuid.New()

	require.NoError(t, cache.Set(ctx, companyA, userID, []uuid.UUID{uuid.New()}))
	require.NoError(t, cache.Set(ctx, companyA, uuid.New(), []uuid.UUID{uuid.New()}))
	require.NoError(t, cache.Set(ctx, companyB, userID, []uuid.UUID{uuid.New()}))

	require.NoError(t, cache.InvalidateCompany(ctx, companyA))

	_, found, err := cache.Get(ctx, companyA, userID)
	require.NoError(t, err)
	assert.False(t, found, "company A entries must be gone")

	_, found, err = cache.Get(ctx, companyB, userID)
	require.NoError(t, err)
	assert.True(t, found, "company B entries must survive")
	assert.Equal(t, 1, cache.Len())
}
