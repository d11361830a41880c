package persistence

import (
	"context"
	"errors"

	"github.com/erp/payments/internal/domain/finance"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDiscountPolicyRepository implements finance.DiscountPolicyRepository using GORM
type GormDiscountPolicyRepository struct {
	db *gorm.DB
}

// NewGormDiscountPolicyRepository creates a new GormDiscountPolicyRepository
func NewGormDiscountPolicyRepository(db *gorm.DB) *GormDiscountPolicyRepository {
	return &GormDiscountPolicyRepository{db: db}
}

// FindByCompany finds the discount policy for a company, or nil when
// none has been configured
func (r *GormDiscountPolicyRepository) FindByCompany(ctx context.Context, companyID uuid.UUID) (*finance.DiscountPolicy, error) {
	var policy finance.DiscountPolicy
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		First(&policy).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &policy, nil
}

// Save creates or updates a discount policy
func (r *GormDiscountPolicyRepository) Save(ctx context.Context, policy *finance.DiscountPolicy) error {
	return r.db.WithContext(ctx).Save(policy).Error
}
