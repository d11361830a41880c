package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/payments/internal/domain/pricing"
	"github.com/erp/payments/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPricelistRepository implements pricing.PricelistRepository using GORM
type GormPricelistRepository struct {
	db *gorm.DB
}

// NewGormPricelistRepository creates a new GormPricelistRepository
func NewGormPricelistRepository(db *gorm.DB) *GormPricelistRepository {
	return &GormPricelistRepository{db: db}
}

// FindByID finds a pricelist with its items
func (r *GormPricelistRepository) FindByID(ctx context.Context, id uuid.UUID) (*pricing.Pricelist, error) {
	var list pricing.Pricelist
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&list, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &list, nil
}

// FindByIDForCompany finds a pricelist by ID within a company
func (r *GormPricelistRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*pricing.Pricelist, error) {
	var list pricing.Pricelist
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("company_id = ? AND id = ?", companyID, id).
		First(&list).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &list, nil
}

// FindAllForCompany finds all pricelists for a company
func (r *GormPricelistRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]pricing.Pricelist, error) {
	var lists []pricing.Pricelist
	query := r.db.WithContext(ctx).Model(&pricing.Pricelist{}).
		Preload("Items").
		Where("company_id = ?", companyID)

	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}
	orderBy := ValidateSortField(filter.OrderBy, PricelistSortFields, "name")
	query = query.Order(fmt.Sprintf("%s %s", orderBy, ValidateSortOrder(filter.OrderDir)))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if err := query.Find(&lists).Error; err != nil {
		return nil, err
	}
	return lists, nil
}

// Save creates or updates a pricelist with its items
func (r *GormPricelistRepository) Save(ctx context.Context, pricelist *pricing.Pricelist) error {
	return r.db.WithContext(ctx).Save(pricelist).Error
}

// DeleteItems removes items no longer present on the aggregate
func (r *GormPricelistRepository) DeleteItems(ctx context.Context, pricelistID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("pricelist_id = ? AND id IN ?", pricelistID, itemIDs).
		Delete(&pricing.PricelistItem{}).Error
}
