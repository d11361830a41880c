package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/payments/internal/domain/finance"
	"github.com/erp/payments/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRegistrationRepository implements finance.RegistrationRepository using GORM
type GormRegistrationRepository struct {
	db *gorm.DB
}

// NewGormRegistrationRepository creates a new GormRegistrationRepository
func NewGormRegistrationRepository(db *gorm.DB) *GormRegistrationRepository {
	return &GormRegistrationRepository{db: db}
}

// FindByID finds a registration with its lines
func (r *GormRegistrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.PaymentRegistration, error) {
	var reg finance.PaymentRegistration
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&reg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reg, nil
}

// FindByIDForCompany finds a registration by ID within a company
func (r *GormRegistrationRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*finance.PaymentRegistration, error) {
	var reg finance.PaymentRegistration
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("company_id = ? AND id = ?", companyID, id).
		First(&reg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reg, nil
}

// FindAllForCompany finds all registrations for a company with filtering
func (r *GormRegistrationRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter finance.RegistrationFilter) ([]finance.PaymentRegistration, error) {
	var regs []finance.PaymentRegistration
	query := r.db.WithContext(ctx).Model(&finance.PaymentRegistration{}).
		Preload("Lines").
		Where("company_id = ?", companyID)
	query = r.applyFilter(query, filter)

	orderBy := ValidateSortField(filter.OrderBy, RegistrationSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if err := query.Find(&regs).Error; err != nil {
		return nil, err
	}
	return regs, nil
}

// Save creates or updates a registration with its lines
func (r *GormRegistrationRepository) Save(ctx context.Context, reg *finance.PaymentRegistration) error {
	return r.db.WithContext(ctx).Save(reg).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormRegistrationRepository) SaveWithLock(ctx context.Context, reg *finance.PaymentRegistration) error {
	result := r.db.WithContext(ctx).
		Model(reg).
		Where("id = ? AND version = ?", reg.ID, reg.Version-1).
		Updates(reg)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The record has been modified by another transaction")
	}
	if len(reg.Lines) > 0 {
		if err := r.db.WithContext(ctx).Save(&reg.Lines).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeleteLines removes register lines no longer present on the aggregate
func (r *GormRegistrationRepository) DeleteLines(ctx context.Context, registrationID uuid.UUID, lineIDs []uuid.UUID) error {
	if len(lineIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("registration_id = ? AND id IN ?", registrationID, lineIDs).
		Delete(&finance.RegisterLine{}).Error
}

// CountForCompany counts registrations for a company with optional filters
func (r *GormRegistrationRepository) CountForCompany(ctx context.Context, companyID uuid.UUID, filter finance.RegistrationFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&finance.PaymentRegistration{}).
		Where("company_id = ?", companyID)
	query = r.applyFilter(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormRegistrationRepository) applyFilter(query *gorm.DB, filter finance.RegistrationFilter) *gorm.DB {
	if filter.State != nil {
		query = query.Where("state = ?", *filter.State)
	}
	if filter.FromDate != nil {
		query = query.Where("payment_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("payment_date <= ?", *filter.ToDate)
	}
	return query
}
