package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/payments/internal/domain/finance"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements finance.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment with its ledger lines
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Payment, error) {
	var payment finance.Payment
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// FindByIDForCompany finds a payment by ID within a company
func (r *GormPaymentRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*finance.Payment, error) {
	var payment finance.Payment
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("company_id = ? AND id = ?", companyID, id).
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// FindByRegistration finds the payments emitted by a registration
func (r *GormPaymentRepository) FindByRegistration(ctx context.Context, companyID, registrationID uuid.UUID) ([]finance.Payment, error) {
	var payments []finance.Payment
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("company_id = ? AND registration_id = ?", companyID, registrationID).
		Order("payment_number ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// FindAllForCompany finds all payments for a company with filtering
func (r *GormPaymentRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter finance.PaymentFilter) ([]finance.Payment, error) {
	var payments []finance.Payment
	query := r.db.WithContext(ctx).Model(&finance.Payment{}).
		Preload("Lines").
		Where("company_id = ?", companyID)
	query = r.applyFilter(query, filter)

	orderBy := ValidateSortField(filter.OrderBy, PaymentSortFields, "payment_date")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	if err := query.Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// Save creates or updates a payment with its ledger lines
func (r *GormPaymentRepository) Save(ctx context.Context, payment *finance.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

// CountForCompany counts payments for a company with optional filters
func (r *GormPaymentRepository) CountForCompany(ctx context.Context, companyID uuid.UUID, filter finance.PaymentFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&finance.Payment{}).
		Where("company_id = ?", companyID)
	query = r.applyFilter(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GeneratePaymentNumber generates the next sequential payment number for
// a company, in the form PAY-000123
func (r *GormPaymentRepository) GeneratePaymentNumber(ctx context.Context, companyID uuid.UUID) (string, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&finance.Payment{}).
		Where("company_id = ?", companyID).
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("PAY-%06d", count+1), nil
}

func (r *GormPaymentRepository) applyFilter(query *gorm.DB, filter finance.PaymentFilter) *gorm.DB {
	if filter.PartnerID != nil {
		query = query.Where("commercial_partner_id = ?", *filter.PartnerID)
	}
	if filter.PaymentType != nil {
		query = query.Where("payment_type = ?", *filter.PaymentType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.DepositNumber != nil {
		query = query.Where("deposit_number = ?", *filter.DepositNumber)
	}
	if filter.FromDate != nil {
		query = query.Where("payment_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("payment_date <= ?", *filter.ToDate)
	}
	return query
}
