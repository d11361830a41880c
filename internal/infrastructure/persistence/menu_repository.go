package persistence

import (
	"context"
	"errors"

	"github.com/erp/payments/internal/domain/access"
	"github.com/erp/payments/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMenuRepository implements access.MenuRepository using GORM
type GormMenuRepository struct {
	db *gorm.DB
}

// NewGormMenuRepository creates a new GormMenuRepository
func NewGormMenuRepository(db *gorm.DB) *GormMenuRepository {
	return &GormMenuRepository{db: db}
}

// FindByID finds a menu with its restrictions
func (r *GormMenuRepository) FindByID(ctx context.Context, id uuid.UUID) (*access.Menu, error) {
	var menu access.Menu
	if err := r.db.WithContext(ctx).
		Preload("Restrictions").
		First(&menu, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &menu, nil
}

// FindByCode finds a menu by code for a company
func (r *GormMenuRepository) FindByCode(ctx context.Context, companyID uuid.UUID, code string) (*access.Menu, error) {
	var menu access.Menu
	if err := r.db.WithContext(ctx).
		Preload("Restrictions").
		Where("company_id = ? AND code = ?", companyID, code).
		First(&menu).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &menu, nil
}

// FindAllForCompany finds all menus for a company ordered by sequence
func (r *GormMenuRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]access.Menu, error) {
	var menus []access.Menu
	query := r.db.WithContext(ctx).Model(&access.Menu{}).
		Preload("Restrictions").
		Where("company_id = ?", companyID)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("code ILIKE ? OR name ILIKE ?", pattern, pattern)
	}
	query = query.Order("sequence ASC, code ASC")

	if err := query.Find(&menus).Error; err != nil {
		return nil, err
	}
	return menus, nil
}

// Save creates or updates a menu with its restrictions
func (r *GormMenuRepository) Save(ctx context.Context, menu *access.Menu) error {
	return r.db.WithContext(ctx).Save(menu).Error
}

// DeleteRestrictions removes restriction rows no longer on the aggregate
func (r *GormMenuRepository) DeleteRestrictions(ctx context.Context, menuID uuid.UUID, restrictionIDs []uuid.UUID) error {
	if len(restrictionIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("menu_id = ? AND id IN ?", menuID, restrictionIDs).
		Delete(&access.MenuRestriction{}).Error
}
