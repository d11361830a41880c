package access

import (
	"context"
	"sync"
	"testing"

	"github.com/erp/payments/internal/domain/access"
	"github.com/erp/payments/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mock Repositories
// =============================================================================

type MockMenuRepository struct {
	mock.Mock
}

func (m *MockMenuRepository) FindByID(ctx context.Context, id uuid.UUID) (*access.Menu, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*access.Menu), args.Error(1)
}

func (m *MockMenuRepository) FindByCode(ctx context.Context, companyID uuid.UUID, code string) (*access.Menu, error) {
	args := m.Called(ctx, companyID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*access.Menu), args.Error(1)
}

func (m *MockMenuRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]access.Menu, error) {
	args := m.Called(ctx, companyID, filter)
	return args.Get(0).([]access.Menu), args.Error(1)
}

func (m *MockMenuRepository) Save(ctx context.Context, menu *access.Menu) error {
	args := m.Called(ctx, menu)
	return args.Error(0)
}

func (m *MockMenuRepository) DeleteRestrictions(ctx context.Context, menuID uuid.UUID, restrictionIDs []uuid.UUID) error {
	args := m.Called(ctx, menuID, restrictionIDs)
	return args.Error(0)
}

// memoryCache is a test double tracking invalidations
type memoryCache struct {
	mu            sync.Mutex
	entries       map[string][]uuid.UUID
	invalidations int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]uuid.UUID)}
}

func (c *memoryCache) key(companyID, userID uuid.UUID) string {
	return companyID.String() + ":" + userID.String()
}

func (c *memoryCache) Get(_ context.Context, companyID, userID uuid.UUID) ([]uuid.UUID, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids, ok := c.entries[c.key(companyID, userID)]
	return ids, ok, nil
}

func (c *memoryCache) Set(_ context.Context, companyID, userID uuid.UUID, menuIDs []uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.key(companyID, userID)] = menuIDs
	return nil
}

func (c *memoryCache) InvalidateCompany(_ context.Context, companyID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := companyID.String() + ":"
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
	c.invalidations++
	return nil
}

func (c *memoryCache) Close() error { return nil }

func newMenu(t *testing.T, companyID uuid.UUID, code string) *access.Menu {
	menu, err := access.NewMenu(companyID, code, code, nil)
	require.NoError(t, err)
	return menu
}

// =============================================================================
// Tests
// =============================================================================

func TestMenuService_CreateMenu(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()

	t.Run("duplicate code refused", func(t *testing.T) {
		repo := new(MockMenuRepository)
		service := NewMenuService(repo, nil, nil)
		repo.On("FindByCode", mock.Anything, companyID, "sales").
			Return(newMenu(t, companyID, "sales"), nil)

		_, err := service.CreateMenu(ctx, CreateMenuRequest{CompanyID: companyID, Code: "sales", Name: "Sales"})
		require.Error(t, err)
		de := err.(*shared.DomainError)
		assert.Equal(t, shared.ErrAlreadyExists.Code, de.Code)
	})

	t.Run("creates and invalidates cache", func(t *testing.T) {
		repo := new(MockMenuRepository)
		cache := newMemoryCache()
		service := NewMenuService(repo, cache, nil)
		repo.On("FindByCode", mock.Anything, companyID, "sales").Return(nil, nil)
		repo.On("Save", mock.Anything, mock.AnythingOfType("*access.Menu")).Return(nil)

		menu, err := service.CreateMenu(ctx, CreateMenuRequest{CompanyID: companyID, Code: "sales", Name: "Sales", Sequence: 5})
		require.NoError(t, err)
		assert.Equal(t, 5, menu.Sequence)
		assert.Equal(t, 1, cache.invalidations)
	})
}

func TestMenuService_VisibleMenus(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	userID := uuid.New()
	groupID := uuid.New()

	salesMenu := newMenu(t, companyID, "sales")
	adminMenu := newMenu(t, companyID, "admin")
	require.NoError(t, adminMenu.RestrictGroup(groupID))

	t.Run("restricted menu hidden from group member", func(t *testing.T) {
		repo := new(MockMenuRepository)
		cache := newMemoryCache()
		service := NewMenuService(repo, cache, nil)
		repo.On("FindAllForCompany", mock.Anything, companyID, mock.Anything).
			Return([]access.Menu{*salesMenu, *adminMenu}, nil)

		visible, err := service.VisibleMenus(ctx, companyID, userID, []uuid.UUID{groupID})
		require.NoError(t, err)
		require.Len(t, visible, 1)
		assert.Equal(t, "sales", visible[0].Code)
	})

	t.Run("unrestricted user sees everything", func(t *testing.T) {
		repo := new(MockMenuRepository)
		service := NewMenuService(repo, nil, nil)
		repo.On("FindAllForCompany", mock.Anything, companyID, mock.Anything).
			Return([]access.Menu{*salesMenu, *adminMenu}, nil)

		visible, err := service.VisibleMenus(ctx, companyID, uuid.New(), nil)
		require.NoError(t, err)
		assert.Len(t, visible, 2)
	})

	t.Run("second call served from cache", func(t *testing.T) {
		repo := new(MockMenuRepository)
		cache := newMemoryCache()
		service := NewMenuService(repo, cache, nil)
		repo.On("FindAllForCompany", mock.Anything, companyID, mock.Anything).
			Return([]access.Menu{*salesMenu, *adminMenu}, nil)

		first, err := service.VisibleMenus(ctx, companyID, userID, []uuid.UUID{groupID})
		require.NoError(t, err)
		second, err := service.VisibleMenus(ctx, companyID, userID, []uuid.UUID{groupID})
		require.NoError(t, err)
		assert.Equal(t, first, second)
		_, ok, _ := cache.Get(ctx, companyID, userID)
		assert.True(t, ok)
	})
}

func TestMenuService_Restrict(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	userID := uuid.New()

	t.Run("restricting a user invalidates the company cache", func(t *testing.T) {
		repo := new(MockMenuRepository)
		cache := newMemoryCache()
		service := NewMenuService(repo, cache, nil)
		menu := newMenu(t, companyID, "sales")
		require.NoError(t, cache.Set(ctx, companyID, userID, []uuid.UUID{menu.ID}))

		repo.On("FindByID", mock.Anything, menu.ID).Return(menu, nil)
		repo.On("Save", mock.Anything, menu).Return(nil)

		updated, err := service.Restrict(ctx, RestrictRequest{
			CompanyID: companyID,
			MenuID:    menu.ID,
			UserID:    &userID,
		})
		require.NoError(t, err)
		require.Len(t, updated.Restrictions, 1)
		assert.False(t, updated.VisibleTo(userID, nil))

		_, ok, _ := cache.Get(ctx, companyID, userID)
		assert.False(t, ok, "stale entry dropped")
	})

	t.Run("restriction without target refused", func(t *testing.T) {
		repo := new(MockMenuRepository)
		service := NewMenuService(repo, nil, nil)

		_, err := service.Restrict(ctx, RestrictRequest{CompanyID: companyID, MenuID: uuid.New()})
		require.Error(t, err)
		repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("menu of another company not found", func(t *testing.T) {
		repo := new(MockMenuRepository)
		service := NewMenuService(repo, nil, nil)
		other := newMenu(t, uuid.New(), "sales")
		repo.On("FindByID", mock.Anything, other.ID).Return(other, nil)

		_, err := service.Restrict(ctx, RestrictRequest{
			CompanyID: companyID,
			MenuID:    other.ID,
			UserID:    &userID,
		})
		require.Error(t, err)
		de := err.(*shared.DomainError)
		assert.Equal(t, shared.ErrNotFound.Code, de.Code)
	})
}

func TestMenuService_ClearRestriction(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	userID := uuid.New()

	repo := new(MockMenuRepository)
	cache := newMemoryCache()
	service := NewMenuService(repo, cache, nil)
	menu := newMenu(t, companyID, "sales")
	require.NoError(t, menu.RestrictUser(userID))
	restrictionID := menu.Restrictions[0].ID

	repo.On("FindByID", mock.Anything, menu.ID).Return(menu, nil)
	repo.On("DeleteRestrictions", mock.Anything, menu.ID, []uuid.UUID{restrictionID}).Return(nil)
	repo.On("Save", mock.Anything, menu).Return(nil)

	updated, err := service.ClearRestriction(ctx, companyID, menu.ID, restrictionID)
	require.NoError(t, err)
	assert.Empty(t, updated.Restrictions)
	assert.True(t, updated.VisibleTo(userID, nil))
	assert.Equal(t, 1, cache.invalidations)
	repo.AssertExpectations(t)
}
