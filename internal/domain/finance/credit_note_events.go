package finance

import (
	"github.com/erp/payments/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditNoteCreatedEvent is raised when a reversal document is generated
type CreditNoteCreatedEvent struct {
	shared.BaseDomainEvent
	CreditNoteID    uuid.UUID `json:"credit_note_id"`
	NoteNumber      string    `json:"note_number"`
	SourceInvoiceID uuid.UUID `json:"source_invoice_id"`
}

// EventType returns the event type name
func (e *CreditNoteCreatedEvent) EventType() string {
	return "CreditNoteCreated"
}

// NewCreditNoteCreatedEvent creates a new CreditNoteCreatedEvent
func NewCreditNoteCreatedEvent(cn *CreditNote) *CreditNoteCreatedEvent {
	return &CreditNoteCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("CreditNoteCreated", "CreditNote", cn.ID, cn.CompanyID),
		CreditNoteID:    cn.ID,
		NoteNumber:      cn.NoteNumber,
		SourceInvoiceID: cn.SourceInvoiceID,
	}
}

// CreditNoteRewrittenEvent is raised when a reversal is rewritten into a
// write-off carrying only the discounted amount
type CreditNoteRewrittenEvent struct {
	shared.BaseDomainEvent
	CreditNoteID    uuid.UUID       `json:"credit_note_id"`
	SourceInvoiceID uuid.UUID       `json:"source_invoice_id"`
	Amount          decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *CreditNoteRewrittenEvent) EventType() string {
	return "CreditNoteRewritten"
}

// NewCreditNoteRewrittenEvent creates a new CreditNoteRewrittenEvent
func NewCreditNoteRewrittenEvent(cn *CreditNote, amount decimal.Decimal) *CreditNoteRewrittenEvent {
	return &CreditNoteRewrittenEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("CreditNoteRewritten", "CreditNote", cn.ID, cn.CompanyID),
		CreditNoteID:    cn.ID,
		SourceInvoiceID: cn.SourceInvoiceID,
		Amount:          amount,
	}
}
