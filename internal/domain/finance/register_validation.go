package finance

import (
	"fmt"

	"github.com/erp/payments/internal/domain/shared"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// RegistrationValidator runs the pre-posting checks on a registration.
// The checks are ordered and short-circuit: when a registration violates
// several rules at once, the first rule in the sequence is the one
// reported. Validation is a pure read; it never mutates the registration
// or the ledger.
type RegistrationValidator struct {
	policy          *DiscountPolicy
	companyCurrency valueobject.Currency
}

// NewRegistrationValidator creates a validator bound to the company's
// discount policy and operating currency
func NewRegistrationValidator(policy *DiscountPolicy, companyCurrency valueobject.Currency) *RegistrationValidator {
	return &RegistrationValidator{
		policy:          policy,
		companyCurrency: companyCurrency,
	}
}

// Validate runs the ordered checks and returns the first violation
func (v *RegistrationValidator) Validate(reg *PaymentRegistration) error {
	if len(reg.Lines) == 0 {
		return shared.NewDomainError(shared.ErrCodeEmptySelection, "No documents selected for payment")
	}

	if reg.HasDiscountLines() {
		if v.policy == nil {
			return shared.NewDomainError(shared.ErrCodeDiscountNotAuthorized, "No discount policy is configured for this company")
		}
		if err := v.policy.Authorize(reg.DiscountRatio()); err != nil {
			return err
		}
	}

	if reg.GroupByKey && countDistinctPartners(reg.Lines) > 1 {
		return shared.NewDomainError(shared.ErrCodeCannotGroupPartners, "Documents of different partners cannot be grouped into one payment")
	}

	if err := v.checkCurrency(reg.Lines); err != nil {
		return err
	}

	if countDistinctCompanies(reg.Lines) > 1 {
		return shared.NewDomainError(shared.ErrCodeCrossCompany, "Documents of different companies cannot be paid together")
	}

	if mixesDirections(reg.Lines) {
		return shared.NewDomainError(shared.ErrCodeMixedDirection, "Customer invoices and vendor bills cannot be paid together")
	}

	return nil
}

func (v *RegistrationValidator) checkCurrency(lines []RegisterLine) error {
	seen := make(map[valueobject.Currency]struct{})
	for i := range lines {
		seen[lines[i].Currency] = struct{}{}
	}
	if len(seen) > 1 {
		return shared.NewDomainError(shared.ErrCodeMultiCurrency, "Documents in different currencies cannot be paid together")
	}
	for c := range seen {
		if c != v.companyCurrency {
			return shared.NewDomainError(shared.ErrCodeMultiCurrency,
				fmt.Sprintf("Payments are only supported in the company currency %s, documents are in %s", v.companyCurrency, c))
		}
	}
	return nil
}

func countDistinctPartners(lines []RegisterLine) int {
	seen := make(map[uuid.UUID]struct{})
	for i := range lines {
		seen[lines[i].CommercialPartnerID] = struct{}{}
	}
	return len(seen)
}

func countDistinctCompanies(lines []RegisterLine) int {
	seen := make(map[uuid.UUID]struct{})
	for i := range lines {
		seen[lines[i].CompanyID] = struct{}{}
	}
	return len(seen)
}

func mixesDirections(lines []RegisterLine) bool {
	seen := make(map[PartnerRole]struct{})
	for i := range lines {
		seen[lines[i].Role()] = struct{}{}
	}
	return len(seen) > 1
}
