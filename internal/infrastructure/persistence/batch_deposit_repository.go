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

// GormBatchDepositRepository implements finance.BatchDepositRepository using GORM
type GormBatchDepositRepository struct {
	db *gorm.DB
}

// NewGormBatchDepositRepository creates a new GormBatchDepositRepository
func NewGormBatchDepositRepository(db *gorm.DB) *GormBatchDepositRepository {
	return &GormBatchDepositRepository{db: db}
}

// FindByID finds a batch deposit by ID
func (r *GormBatchDepositRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.BatchDeposit, error) {
	var deposit finance.BatchDeposit
	if err := r.db.WithContext(ctx).
		First(&deposit, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &deposit, nil
}

// FindDraftByNumber finds the open deposit slip with the given number,
// or nil when none exists
func (r *GormBatchDepositRepository) FindDraftByNumber(ctx context.Context, companyID uuid.UUID, depositNumber string) (*finance.BatchDeposit, error) {
	var deposit finance.BatchDeposit
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND deposit_number = ? AND status = ?",
			companyID, depositNumber, finance.BatchDepositStatusDraft).
		First(&deposit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &deposit, nil
}

// FindAllForCompany finds all batch deposits for a company
func (r *GormBatchDepositRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]finance.BatchDeposit, error) {
	var deposits []finance.BatchDeposit
	query := r.db.WithContext(ctx).Model(&finance.BatchDeposit{}).
		Where("company_id = ?", companyID)

	if filter.Search != "" {
		query = query.Where("deposit_number ILIKE ?", "%"+filter.Search+"%")
	}
	query = query.Order(fmt.Sprintf("deposit_date %s", ValidateSortOrder(filter.OrderDir)))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if err := query.Find(&deposits).Error; err != nil {
		return nil, err
	}
	return deposits, nil
}

// Save creates or updates a batch deposit
func (r *GormBatchDepositRepository) Save(ctx context.Context, deposit *finance.BatchDeposit) error {
	return r.db.WithContext(ctx).Save(deposit).Error
}
