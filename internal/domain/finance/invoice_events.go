package finance

import (
	"github.com/erp/payments/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceCreatedEvent is raised when a new invoice or bill is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID    `json:"invoice_id"`
	InvoiceNumber string       `json:"invoice_number"`
	DocumentType  DocumentType `json:"document_type"`
	PartnerID     uuid.UUID    `json:"partner_id"`
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return "InvoiceCreated"
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCreated", "Invoice", inv.ID, inv.CompanyID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		DocumentType:    inv.DocumentType,
		PartnerID:       inv.PartnerID,
	}
}

// InvoicePostedEvent is raised when an invoice is posted
type InvoicePostedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	AmountTotal   decimal.Decimal `json:"amount_total"`
}

// EventType returns the event type name
func (e *InvoicePostedEvent) EventType() string {
	return "InvoicePosted"
}

// NewInvoicePostedEvent creates a new InvoicePostedEvent
func NewInvoicePostedEvent(inv *Invoice) *InvoicePostedEvent {
	return &InvoicePostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePosted", "Invoice", inv.ID, inv.CompanyID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		AmountTotal:     inv.AmountTotal,
	}
}

// InvoicePaidEvent is raised when a document becomes fully paid
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	PaymentID     uuid.UUID `json:"payment_id"`
}

// EventType returns the event type name
func (e *InvoicePaidEvent) EventType() string {
	return "InvoicePaid"
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice, paymentID uuid.UUID) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePaid", "Invoice", inv.ID, inv.CompanyID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		PaymentID:       paymentID,
	}
}

// InvoiceWrittenOffEvent is raised when part of a document's residual is
// settled by a credit note instead of a payment
type InvoiceWrittenOffEvent struct {
	shared.BaseDomainEvent
	InvoiceID    uuid.UUID       `json:"invoice_id"`
	CreditNoteID uuid.UUID       `json:"credit_note_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *InvoiceWrittenOffEvent) EventType() string {
	return "InvoiceWrittenOff"
}

// NewInvoiceWrittenOffEvent creates a new InvoiceWrittenOffEvent
func NewInvoiceWrittenOffEvent(inv *Invoice, creditNoteID uuid.UUID, amount decimal.Decimal) *InvoiceWrittenOffEvent {
	return &InvoiceWrittenOffEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceWrittenOff", "Invoice", inv.ID, inv.CompanyID),
		InvoiceID:       inv.ID,
		CreditNoteID:    creditNoteID,
		Amount:          amount,
	}
}
