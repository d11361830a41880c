package pricing

import (
	"context"
	"fmt"

	"github.com/erp/payments/internal/domain/pricing"
	"github.com/erp/payments/internal/domain/shared"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/erp/payments/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PricingService manages pricelists and resolves unit prices per unit
// of measure
type PricingService struct {
	pricelistRepo pricing.PricelistRepository
	logger        *zap.Logger
}

// NewPricingService creates a new PricingService
func NewPricingService(pricelistRepo pricing.PricelistRepository, logger *zap.Logger) *PricingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PricingService{pricelistRepo: pricelistRepo, logger: logger}
}

// CreatePricelistRequest represents a request to create a pricelist
type CreatePricelistRequest struct {
	CompanyID uuid.UUID            `json:"-"`
	Name      string               `json:"name" binding:"required"`
	Currency  valueobject.Currency `json:"currency"`
}

// CreatePricelist creates an empty pricelist
func (s *PricingService) CreatePricelist(ctx context.Context, req CreatePricelistRequest) (*pricing.Pricelist, error) {
	currency := req.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	list, err := pricing.NewPricelist(req.CompanyID, req.Name, currency)
	if err != nil {
		return nil, err
	}
	if err := s.pricelistRepo.Save(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to save pricelist: %w", err)
	}
	return list, nil
}

// GetPricelist loads a pricelist with its items
func (s *PricingService) GetPricelist(ctx context.Context, companyID, pricelistID uuid.UUID) (*pricing.Pricelist, error) {
	list, err := s.pricelistRepo.FindByIDForCompany(ctx, companyID, pricelistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricelist: %w", err)
	}
	if list == nil {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Pricelist not found")
	}
	return list, nil
}

// ListPricelists lists a company's pricelists
func (s *PricingService) ListPricelists(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]pricing.Pricelist, error) {
	lists, err := s.pricelistRepo.FindAllForCompany(ctx, companyID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list pricelists: %w", err)
	}
	return lists, nil
}

// AddItemRequest represents a new pricing rule on a pricelist
type AddItemRequest struct {
	CompanyID         uuid.UUID             `json:"-"`
	PricelistID       uuid.UUID             `json:"-"`
	ProductTemplateID uuid.UUID             `json:"product_template_id" binding:"required"`
	UnitOfMeasure     string                `json:"unit_of_measure" binding:"required"`
	ComputeMethod     pricing.ComputeMethod `json:"compute_method" binding:"required"`
	FixedPrice        decimal.Decimal       `json:"fixed_price"`
	DiscountPercent   decimal.Decimal       `json:"discount_percent"`
	MinQuantity       decimal.Decimal       `json:"min_quantity"`
}

// AddItem appends a pricing rule to a pricelist
func (s *PricingService) AddItem(ctx context.Context, req AddItemRequest) (*pricing.Pricelist, error) {
	list, err := s.GetPricelist(ctx, req.CompanyID, req.PricelistID)
	if err != nil {
		return nil, err
	}
	if err := list.AddItem(pricing.PricelistItem{
		ProductTemplateID: req.ProductTemplateID,
		UnitOfMeasure:     req.UnitOfMeasure,
		ComputeMethod:     req.ComputeMethod,
		FixedPrice:        req.FixedPrice,
		DiscountPercent:   req.DiscountPercent,
		MinQuantity:       req.MinQuantity,
	}); err != nil {
		return nil, err
	}
	if err := s.pricelistRepo.Save(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to save pricelist: %w", err)
	}
	return list, nil
}

// RemoveItem drops a pricing rule from a pricelist
func (s *PricingService) RemoveItem(ctx context.Context, companyID, pricelistID, itemID uuid.UUID) (*pricing.Pricelist, error) {
	list, err := s.GetPricelist(ctx, companyID, pricelistID)
	if err != nil {
		return nil, err
	}
	if err := list.RemoveItem(itemID); err != nil {
		return nil, err
	}
	if err := s.pricelistRepo.DeleteItems(ctx, list.ID, []uuid.UUID{itemID}); err != nil {
		return nil, fmt.Errorf("failed to delete pricelist item: %w", err)
	}
	if err := s.pricelistRepo.Save(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to save pricelist: %w", err)
	}
	return list, nil
}

// ResolvePriceRequest asks for the unit price of a product template in a
// unit of measure, given the price the standard computation produced
type ResolvePriceRequest struct {
	CompanyID         uuid.UUID       `json:"-"`
	PricelistID       uuid.UUID       `json:"-"`
	ProductTemplateID uuid.UUID       `json:"product_template_id" binding:"required"`
	UnitOfMeasure     string          `json:"unit_of_measure" binding:"required"`
	ComputedPrice     decimal.Decimal `json:"computed_price"`
}

// ResolvedPrice is the outcome of a price resolution
type ResolvedPrice struct {
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Overridden bool            `json:"overridden"`
}

// ResolvePrice returns the unit price a sale line should carry. A single
// fixed rule for the product and unit overrides the computed price;
// otherwise the computed price stands.
func (s *PricingService) ResolvePrice(ctx context.Context, req ResolvePriceRequest) (*ResolvedPrice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "pricing", "resolve_price")
	defer span.End()

	list, err := s.GetPricelist(ctx, req.CompanyID, req.PricelistID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	price := list.ResolveUnitPrice(req.ProductTemplateID, req.UnitOfMeasure, req.ComputedPrice)
	telemetry.SetAttributes(span,
		"pricelist_id", list.ID.String(),
		"overridden", !price.Equal(req.ComputedPrice),
	)
	return &ResolvedPrice{
		UnitPrice:  price,
		Overridden: !price.Equal(req.ComputedPrice),
	}, nil
}
