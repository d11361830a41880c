package payment

import (
	"context"
	"fmt"

	"github.com/erp/payments/internal/domain/finance"
	"github.com/erp/payments/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountPolicyService manages the per-company payment discount ceiling
type DiscountPolicyService struct {
	policyRepo finance.DiscountPolicyRepository
}

// NewDiscountPolicyService creates a new DiscountPolicyService
func NewDiscountPolicyService(policyRepo finance.DiscountPolicyRepository) *DiscountPolicyService {
	return &DiscountPolicyService{policyRepo: policyRepo}
}

// GetPolicy loads a company's discount policy
func (s *DiscountPolicyService) GetPolicy(ctx context.Context, companyID uuid.UUID) (*finance.DiscountPolicy, error) {
	policy, err := s.policyRepo.FindByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load discount policy: %w", err)
	}
	if policy == nil {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, "No discount policy configured")
	}
	return policy, nil
}

// SetMaxDiscount creates or updates a company's discount ceiling
func (s *DiscountPolicyService) SetMaxDiscount(ctx context.Context, companyID uuid.UUID, maxPercent decimal.Decimal) (*finance.DiscountPolicy, error) {
	policy, err := s.policyRepo.FindByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load discount policy: %w", err)
	}
	if policy == nil {
		policy, err = finance.NewDiscountPolicy(companyID, maxPercent)
		if err != nil {
			return nil, err
		}
	} else if err := policy.UpdateMaxDiscount(maxPercent); err != nil {
		return nil, err
	}
	if err := s.policyRepo.Save(ctx, policy); err != nil {
		return nil, fmt.Errorf("failed to save discount policy: %w", err)
	}
	return policy, nil
}

// PaymentQueryService reads back the payments and deposits a
// registration produced
type PaymentQueryService struct {
	paymentRepo finance.PaymentRepository
	depositRepo finance.BatchDepositRepository
}

// NewPaymentQueryService creates a new PaymentQueryService
func NewPaymentQueryService(paymentRepo finance.PaymentRepository, depositRepo finance.BatchDepositRepository) *PaymentQueryService {
	return &PaymentQueryService{paymentRepo: paymentRepo, depositRepo: depositRepo}
}

// GetPayment loads a payment with its ledger lines
func (s *PaymentQueryService) GetPayment(ctx context.Context, companyID, paymentID uuid.UUID) (*finance.Payment, error) {
	p, err := s.paymentRepo.FindByIDForCompany(ctx, companyID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if p == nil {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Payment not found")
	}
	return p, nil
}

// ListPayments returns the payments of a company matching the filter
func (s *PaymentQueryService) ListPayments(ctx context.Context, companyID uuid.UUID, filter finance.PaymentFilter) (*shared.Paginated[finance.Payment], error) {
	payments, err := s.paymentRepo.FindAllForCompany(ctx, companyID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	total, err := s.paymentRepo.CountForCompany(ctx, companyID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}
	page := shared.NewPaginated(payments, total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListByRegistration returns the payments a posted registration emitted
func (s *PaymentQueryService) ListByRegistration(ctx context.Context, companyID, registrationID uuid.UUID) ([]finance.Payment, error) {
	payments, err := s.paymentRepo.FindByRegistration(ctx, companyID, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// ListDeposits returns the batch deposits of a company
func (s *PaymentQueryService) ListDeposits(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]finance.BatchDeposit, error) {
	deposits, err := s.depositRepo.FindAllForCompany(ctx, companyID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	return deposits, nil
}
