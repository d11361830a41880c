package finance

import (
	"github.com/erp/payments/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegistrationCreatedEvent is raised when a payment registration is opened
type RegistrationCreatedEvent struct {
	shared.BaseDomainEvent
	RegistrationID uuid.UUID     `json:"registration_id"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
}

// EventType returns the event type name
func (e *RegistrationCreatedEvent) EventType() string {
	return "RegistrationCreated"
}

// NewRegistrationCreatedEvent creates a new RegistrationCreatedEvent
func NewRegistrationCreatedEvent(reg *PaymentRegistration) *RegistrationCreatedEvent {
	return &RegistrationCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("RegistrationCreated", "PaymentRegistration", reg.ID, reg.CompanyID),
		RegistrationID:  reg.ID,
		PaymentMethod:   reg.PaymentMethod,
	}
}

// RegistrationValidatedEvent is raised when a registration passes the
// pre-posting checks
type RegistrationValidatedEvent struct {
	shared.BaseDomainEvent
	RegistrationID uuid.UUID       `json:"registration_id"`
	LineCount      int             `json:"line_count"`
	TotalPayment   decimal.Decimal `json:"total_payment"`
}

// EventType returns the event type name
func (e *RegistrationValidatedEvent) EventType() string {
	return "RegistrationValidated"
}

// NewRegistrationValidatedEvent creates a new RegistrationValidatedEvent
func NewRegistrationValidatedEvent(reg *PaymentRegistration) *RegistrationValidatedEvent {
	return &RegistrationValidatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("RegistrationValidated", "PaymentRegistration", reg.ID, reg.CompanyID),
		RegistrationID:  reg.ID,
		LineCount:       len(reg.Lines),
		TotalPayment:    reg.TotalPayment(),
	}
}

// RegistrationPostedEvent is raised when the grouped payments have been
// created and the registration reaches its terminal state
type RegistrationPostedEvent struct {
	shared.BaseDomainEvent
	RegistrationID uuid.UUID   `json:"registration_id"`
	PaymentIDs     []uuid.UUID `json:"payment_ids"`
}

// EventType returns the event type name
func (e *RegistrationPostedEvent) EventType() string {
	return "RegistrationPosted"
}

// NewRegistrationPostedEvent creates a new RegistrationPostedEvent
func NewRegistrationPostedEvent(reg *PaymentRegistration, paymentIDs []uuid.UUID) *RegistrationPostedEvent {
	return &RegistrationPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("RegistrationPosted", "PaymentRegistration", reg.ID, reg.CompanyID),
		RegistrationID:  reg.ID,
		PaymentIDs:      paymentIDs,
	}
}
