package finance

import (
	"fmt"

	"github.com/erp/payments/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountPolicy is the per-company ceiling on payment discounts. A
// registration with discount-flagged lines is refused when the unpaid
// share of those lines exceeds the configured percentage.
type DiscountPolicy struct {
	shared.CompanyAggregateRoot
	MaxDiscountPercent decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	Enabled            bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (DiscountPolicy) TableName() string {
	return "discount_policies"
}

// NewDiscountPolicy creates a discount policy for a company
func NewDiscountPolicy(companyID uuid.UUID, maxDiscountPercent decimal.Decimal) (*DiscountPolicy, error) {
	if maxDiscountPercent.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PERCENT", "Maximum discount percentage cannot be negative")
	}
	hundred := decimal.NewFromInt(100)
	if maxDiscountPercent.GreaterThan(hundred) {
		return nil, shared.NewDomainError("INVALID_PERCENT", "Maximum discount percentage cannot exceed 100")
	}
	return &DiscountPolicy{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		MaxDiscountPercent:   maxDiscountPercent,
		Enabled:              true,
	}, nil
}

// UpdateMaxDiscount changes the ceiling
func (p *DiscountPolicy) UpdateMaxDiscount(maxDiscountPercent decimal.Decimal) error {
	if maxDiscountPercent.IsNegative() || maxDiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_PERCENT", "Maximum discount percentage must be between 0 and 100")
	}
	p.MaxDiscountPercent = maxDiscountPercent
	p.Touch()
	p.IncrementVersion()
	return nil
}

// Authorize checks a discount ratio (fraction of residual left unpaid on
// discount lines) against the ceiling. The ratio is expressed as a
// fraction; the policy as a percentage.
func (p *DiscountPolicy) Authorize(ratio decimal.Decimal) error {
	if !p.Enabled {
		return shared.NewDomainError(shared.ErrCodeDiscountNotAuthorized, "Payment discounts are disabled for this company")
	}
	percent := ratio.Mul(decimal.NewFromInt(100))
	if percent.GreaterThan(p.MaxDiscountPercent) {
		return shared.NewDomainError(shared.ErrCodeDiscountNotAuthorized,
			fmt.Sprintf("Discount of %s%% exceeds the allowed maximum of %s%%",
				percent.Round(2).String(), p.MaxDiscountPercent.Round(2).String()))
	}
	return nil
}
