package finance

import (
	"fmt"
	"time"

	"github.com/erp/payments/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchDeposit bundles several payments into one external bank deposit.
// The deposit number is a free-text grouping key: a registration reuses
// the draft deposit carrying its number and creates one when none exists.
type BatchDeposit struct {
	shared.CompanyAggregateRoot
	DepositNumber string             `gorm:"type:varchar(100);not null;index"`
	JournalCode   string             `gorm:"type:varchar(50);not null"`
	Status        BatchDepositStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	DepositDate   time.Time          `gorm:"not null"`
	PaymentCount  int                `gorm:"not null;default:0"`
	TotalAmount   decimal.Decimal    `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (BatchDeposit) TableName() string {
	return "batch_deposits"
}

// NewBatchDeposit creates a draft deposit
func NewBatchDeposit(companyID uuid.UUID, depositNumber, journalCode string, depositDate time.Time) (*BatchDeposit, error) {
	if depositNumber == "" {
		return nil, shared.NewDomainError("INVALID_DEPOSIT_NUMBER", "Deposit number cannot be empty")
	}
	if journalCode == "" {
		return nil, shared.NewDomainError("INVALID_JOURNAL", "Journal code is required")
	}
	if depositDate.IsZero() {
		depositDate = time.Now()
	}
	bd := &BatchDeposit{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		DepositNumber:        depositNumber,
		JournalCode:          journalCode,
		Status:               BatchDepositStatusDraft,
		DepositDate:          depositDate,
		TotalAmount:          decimal.Zero,
	}
	bd.AddDomainEvent(NewBatchDepositCreatedEvent(bd))
	return bd, nil
}

// CanAcceptPayments returns true while the deposit is still a draft
func (bd *BatchDeposit) CanAcceptPayments() bool {
	return bd.Status == BatchDepositStatusDraft
}

// AddPayment records a payment joining the deposit
func (bd *BatchDeposit) AddPayment(amount decimal.Decimal) error {
	if !bd.CanAcceptPayments() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Deposit %s is %s and no longer accepts payments", bd.DepositNumber, bd.Status))
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	bd.PaymentCount++
	bd.TotalAmount = bd.TotalAmount.Add(amount)
	bd.Touch()
	return nil
}

// MarkSent transitions the deposit to sent
func (bd *BatchDeposit) MarkSent() error {
	if bd.Status != BatchDepositStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot send deposit in %s status", bd.Status))
	}
	if bd.PaymentCount == 0 {
		return shared.NewDomainError("INVALID_STATE", "Cannot send an empty deposit")
	}
	bd.Status = BatchDepositStatusSent
	bd.Touch()
	bd.IncrementVersion()
	return nil
}

// MarkReconciled transitions the deposit to reconciled
func (bd *BatchDeposit) MarkReconciled() error {
	if bd.Status != BatchDepositStatusSent {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reconcile deposit in %s status", bd.Status))
	}
	bd.Status = BatchDepositStatusReconciled
	bd.Touch()
	bd.IncrementVersion()
	return nil
}
