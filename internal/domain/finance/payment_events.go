package finance

import (
	"github.com/erp/payments/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentCreatedEvent is raised when a payment is generated for a group
type PaymentCreatedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	PaymentNumber string          `json:"payment_number"`
	PaymentType   PaymentType     `json:"payment_type"`
	Amount        decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *PaymentCreatedEvent) EventType() string {
	return "PaymentCreated"
}

// NewPaymentCreatedEvent creates a new PaymentCreatedEvent
func NewPaymentCreatedEvent(p *Payment) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentCreated", "Payment", p.ID, p.CompanyID),
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		PaymentType:     p.PaymentType,
		Amount:          p.Amount,
	}
}

// PaymentPostedEvent is raised when a payment's ledger entry is posted
type PaymentPostedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	PaymentNumber string          `json:"payment_number"`
	Amount        decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *PaymentPostedEvent) EventType() string {
	return "PaymentPosted"
}

// NewPaymentPostedEvent creates a new PaymentPostedEvent
func NewPaymentPostedEvent(p *Payment) *PaymentPostedEvent {
	return &PaymentPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentPosted", "Payment", p.ID, p.CompanyID),
		PaymentID:       p.ID,
		PaymentNumber:   p.PaymentNumber,
		Amount:          p.Amount,
	}
}

// BatchDepositCreatedEvent is raised when a new deposit is opened
type BatchDepositCreatedEvent struct {
	shared.BaseDomainEvent
	BatchDepositID uuid.UUID `json:"batch_deposit_id"`
	DepositNumber  string    `json:"deposit_number"`
}

// EventType returns the event type name
func (e *BatchDepositCreatedEvent) EventType() string {
	return "BatchDepositCreated"
}

// NewBatchDepositCreatedEvent creates a new BatchDepositCreatedEvent
func NewBatchDepositCreatedEvent(bd *BatchDeposit) *BatchDepositCreatedEvent {
	return &BatchDepositCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("BatchDepositCreated", "BatchDeposit", bd.ID, bd.CompanyID),
		BatchDepositID:  bd.ID,
		DepositNumber:   bd.DepositNumber,
	}
}
