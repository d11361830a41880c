package pricing

import (
	"context"
	"testing"

	"github.com/erp/payments/internal/domain/pricing"
	"github.com/erp/payments/internal/domain/shared"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mock Repositories
// =============================================================================

type MockPricelistRepository struct {
	mock.Mock
}

func (m *MockPricelistRepository) FindByID(ctx context.Context, id uuid.UUID) (*pricing.Pricelist, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.Pricelist), args.Error(1)
}

func (m *MockPricelistRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*pricing.Pricelist, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.Pricelist), args.Error(1)
}

func (m *MockPricelistRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]pricing.Pricelist, error) {
	args := m.Called(ctx, companyID, filter)
	return args.Get(0).([]pricing.Pricelist), args.Error(1)
}

func (m *MockPricelistRepository) Save(ctx context.Context, pricelist *pricing.Pricelist) error {
	args := m.Called(ctx, pricelist)
	return args.Error(0)
}

func (m *MockPricelistRepository) DeleteItems(ctx context.Context, pricelistID uuid.UUID, itemIDs []uuid.UUID) error {
	args := m.Called(ctx, pricelistID, itemIDs)
	return args.Error(0)
}

func newListWithFixedRule(t *testing.T, companyID, templateID uuid.UUID, uom string, price float64) *pricing.Pricelist {
	list, err := pricing.NewPricelist(companyID, "Wholesale", valueobject.USD)
	require.NoError(t, err)
	require.NoError(t, list.AddItem(pricing.PricelistItem{
		ProductTemplateID: templateID,
		UnitOfMeasure:     uom,
		ComputeMethod:     pricing.ComputeMethodFixed,
		FixedPrice:        decimal.NewFromFloat(price),
	}))
	return list
}

// =============================================================================
// Tests
// =============================================================================

func TestPricingService_CreatePricelist(t *testing.T) {
	ctx := context.Background()
	repo := new(MockPricelistRepository)
	service := NewPricingService(repo, nil)

	repo.On("Save", mock.Anything, mock.AnythingOfType("*pricing.Pricelist")).Return(nil)

	list, err := service.CreatePricelist(ctx, CreatePricelistRequest{
		CompanyID: uuid.New(),
		Name:      "Wholesale",
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.DefaultCurrency, list.Currency, "currency defaults when omitted")
	assert.True(t, list.Active)
	repo.AssertExpectations(t)
}

func TestPricingService_ResolvePrice(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	templateID := uuid.New()

	t.Run("fixed rule overrides", func(t *testing.T) {
		repo := new(MockPricelistRepository)
		service := NewPricingService(repo, nil)
		list := newListWithFixedRule(t, companyID, templateID, "BOX12", 95)
		repo.On("FindByIDForCompany", mock.Anything, companyID, list.ID).Return(list, nil)

		resolved, err := service.ResolvePrice(ctx, ResolvePriceRequest{
			CompanyID:         companyID,
			PricelistID:       list.ID,
			ProductTemplateID: templateID,
			UnitOfMeasure:     "BOX12",
			ComputedPrice:     decimal.NewFromInt(120),
		})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(95).Equal(resolved.UnitPrice))
		assert.True(t, resolved.Overridden)
	})

	t.Run("other unit passes computed price through", func(t *testing.T) {
		repo := new(MockPricelistRepository)
		service := NewPricingService(repo, nil)
		list := newListWithFixedRule(t, companyID, templateID, "BOX12", 95)
		repo.On("FindByIDForCompany", mock.Anything, companyID, list.ID).Return(list, nil)

		resolved, err := service.ResolvePrice(ctx, ResolvePriceRequest{
			CompanyID:         companyID,
			PricelistID:       list.ID,
			ProductTemplateID: templateID,
			UnitOfMeasure:     "EA",
			ComputedPrice:     decimal.NewFromInt(10),
		})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(10).Equal(resolved.UnitPrice))
		assert.False(t, resolved.Overridden)
	})

	t.Run("missing pricelist", func(t *testing.T) {
		repo := new(MockPricelistRepository)
		service := NewPricingService(repo, nil)
		repo.On("FindByIDForCompany", mock.Anything, companyID, mock.Anything).Return(nil, nil)

		_, err := service.ResolvePrice(ctx, ResolvePriceRequest{
			CompanyID:         companyID,
			PricelistID:       uuid.New(),
			ProductTemplateID: templateID,
			UnitOfMeasure:     "EA",
			ComputedPrice:     decimal.NewFromInt(10),
		})
		require.Error(t, err)
		de := err.(*shared.DomainError)
		assert.Equal(t, shared.ErrNotFound.Code, de.Code)
	})
}

func TestPricingService_AddAndRemoveItem(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()
	templateID := uuid.New()

	repo := new(MockPricelistRepository)
	service := NewPricingService(repo, nil)
	list, err := pricing.NewPricelist(companyID, "Retail", valueobject.USD)
	require.NoError(t, err)

	repo.On("FindByIDForCompany", mock.Anything, companyID, list.ID).Return(list, nil)
	repo.On("Save", mock.Anything, list).Return(nil)
	repo.On("DeleteItems", mock.Anything, list.ID, mock.Anything).Return(nil)

	updated, err := service.AddItem(ctx, AddItemRequest{
		CompanyID:         companyID,
		PricelistID:       list.ID,
		ProductTemplateID: templateID,
		UnitOfMeasure:     "EA",
		ComputeMethod:     pricing.ComputeMethodFixed,
		FixedPrice:        decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	itemID := updated.Items[0].ID

	updated, err = service.RemoveItem(ctx, companyID, list.ID, itemID)
	require.NoError(t, err)
	assert.Empty(t, updated.Items)
	repo.AssertExpectations(t)
}

func TestPricingService_AddItem_InvalidMethod(t *testing.T) {
	ctx := context.Background()
	companyID := uuid.New()

	repo := new(MockPricelistRepository)
	service := NewPricingService(repo, nil)
	list, err := pricing.NewPricelist(companyID, "Retail", valueobject.USD)
	require.NoError(t, err)
	repo.On("FindByIDForCompany", mock.Anything, companyID, list.ID).Return(list, nil)

	_, err = service.AddItem(ctx, AddItemRequest{
		CompanyID:         companyID,
		PricelistID:       list.ID,
		ProductTemplateID: uuid.New(),
		UnitOfMeasure:     "EA",
		ComputeMethod:     pricing.ComputeMethod("GUESS"),
	})
	require.Error(t, err)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
