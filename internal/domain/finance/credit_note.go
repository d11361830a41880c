package finance

import (
	"fmt"
	"time"

	"github.com/erp/payments/internal/domain/shared"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WriteOffLineLabel is the label set on the rebuilt product line of a
// write-off credit note
const WriteOffLineLabel = "Discount by Client Payment"

// CreditNoteLine is a journal item belonging to a credit note
type CreditNoteLine struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	CreditNoteID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Label          string          `gorm:"type:varchar(500)"`
	AccountCode    string          `gorm:"type:varchar(50);not null"`
	ProductID      *uuid.UUID      `gorm:"type:uuid"`
	ProductName    string          `gorm:"type:varchar(200)"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PriceUnit      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PriceSubtotal  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PriceTotal     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxBaseAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Debit          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Credit         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Balance        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AmountCurrency decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AmountResidual decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (CreditNoteLine) TableName() string {
	return "credit_note_lines"
}

// IsTaxLine returns true when the line carries a tax base amount
func (l *CreditNoteLine) IsTaxLine() bool {
	return l.TaxBaseAmount.GreaterThan(decimal.Zero)
}

// IsCreditLine returns true when the line carries a credit balance
func (l *CreditNoteLine) IsCreditLine() bool {
	return l.Credit.GreaterThan(decimal.Zero)
}

// IsProductLine returns true when the line references a product
func (l *CreditNoteLine) IsProductLine() bool {
	return l.ProductID != nil
}

// CreditNote is a reversal document generated against an invoice or bill.
// The generic reversal mirrors every source line; a write-off rewrite then
// reduces it to a single net product line plus its counterpart.
type CreditNote struct {
	shared.CompanyAggregateRoot
	NoteNumber           string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_credit_note_company_number,priority:2"`
	DocumentType         DocumentType         `gorm:"type:varchar(30);not null"`
	SourceInvoiceID      uuid.UUID            `gorm:"type:uuid;not null;index"`
	SourceInvoiceNumber  string               `gorm:"type:varchar(50);not null"`
	PartnerID            uuid.UUID            `gorm:"type:uuid;not null;index"`
	Currency             valueobject.Currency `gorm:"type:varchar(3);not null"`
	Status               InvoiceStatus        `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	NoteDate             time.Time            `gorm:"not null"`
	AmountUntaxed        decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	AmountTotal          decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	AmountResidual       decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	AmountUntaxedSigned  decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	AmountTotalSigned    decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	AmountResidualSigned decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Lines                []CreditNoteLine     `gorm:"foreignKey:CreditNoteID;references:ID"`

	removedLineIDs []uuid.UUID `gorm:"-"`
}

// TableName returns the table name for GORM
func (CreditNote) TableName() string {
	return "credit_notes"
}

// NewCreditNoteFromInvoice builds the generic reversal of a posted invoice.
// Every source line is mirrored with debit and credit swapped and the
// amount in currency negated; header totals are copied from the source.
func NewCreditNoteFromInvoice(inv *Invoice, noteNumber string, noteDate time.Time) (*CreditNote, error) {
	if inv == nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Source invoice is required")
	}
	if inv.Status != InvoiceStatusPosted {
		return nil, shared.NewDomainError("INVALID_STATE", "Only posted invoices can be reversed")
	}
	if noteNumber == "" {
		return nil, shared.NewDomainError("INVALID_NOTE_NUMBER", "Credit note number cannot be empty")
	}
	if noteDate.IsZero() {
		noteDate = time.Now()
	}

	cn := &CreditNote{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(inv.CompanyID),
		NoteNumber:           noteNumber,
		DocumentType:         inv.DocumentType.ReversalType(),
		SourceInvoiceID:      inv.ID,
		SourceInvoiceNumber:  inv.InvoiceNumber,
		PartnerID:            inv.PartnerID,
		Currency:             inv.Currency,
		Status:               InvoiceStatusPosted,
		NoteDate:             noteDate,
		AmountUntaxed:        inv.AmountUntaxed,
		AmountTotal:          inv.AmountTotal,
		AmountResidual:       inv.AmountTotal,
		AmountUntaxedSigned:  inv.AmountUntaxed.Neg(),
		AmountTotalSigned:    inv.AmountTotal.Neg(),
		AmountResidualSigned: inv.AmountTotal.Neg(),
		Lines:                make([]CreditNoteLine, 0, len(inv.Lines)),
	}

	for i := range inv.Lines {
		src := &inv.Lines[i]
		cn.Lines = append(cn.Lines, CreditNoteLine{
			ID:             uuid.New(),
			CreditNoteID:   cn.ID,
			Label:          src.Label,
			AccountCode:    src.AccountCode,
			ProductID:      src.ProductID,
			ProductName:    src.ProductName,
			Quantity:       src.Quantity,
			PriceUnit:      src.PriceUnit,
			PriceSubtotal:  src.PriceSubtotal,
			PriceTotal:     src.PriceTotal,
			TaxBaseAmount:  src.TaxBaseAmount,
			Debit:          src.Credit,
			Credit:         src.Debit,
			Balance:        src.Credit.Sub(src.Debit),
			AmountCurrency: src.AmountCurrency.Neg(),
			AmountResidual: src.AmountResidual.Neg(),
		})
	}

	cn.AddDomainEvent(NewCreditNoteCreatedEvent(cn))

	return cn, nil
}

// RemovedLineIDs returns the IDs of lines discarded by a rewrite. The
// repository deletes these rows when the aggregate is saved.
func (cn *CreditNote) RemovedLineIDs() []uuid.UUID {
	return cn.removedLineIDs
}

// RewriteForWriteOff rebuilds the credit note down to a single net product
// line and its receivable counterpart, both carrying amountToReverse.
//
// The generic reversal duplicates every line of the origin document, but a
// payment write-off only needs the residual value on one line. The rewrite
// assumes the reversal template shape: one tax-bearing line, one
// credit-bearing line and one product line. Anything else aborts with
// LEDGER_INCONSISTENCY and must roll back the whole registration.
func (cn *CreditNote) RewriteForWriteOff(amountToReverse decimal.Decimal) error {
	if amountToReverse.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount to reverse must be positive")
	}

	var taxLines, creditLines, productLines []*CreditNoteLine
	for i := range cn.Lines {
		l := &cn.Lines[i]
		if l.IsTaxLine() {
			taxLines = append(taxLines, l)
		}
		if l.IsCreditLine() {
			creditLines = append(creditLines, l)
		}
		if l.IsProductLine() {
			productLines = append(productLines, l)
		}
	}
	if len(taxLines) != 1 {
		return shared.NewDomainError(shared.ErrCodeLedgerInconsistency,
			fmt.Sprintf("Reversal template must contain exactly one tax line, found %d", len(taxLines)))
	}
	if len(creditLines) != 1 {
		return shared.NewDomainError(shared.ErrCodeLedgerInconsistency,
			fmt.Sprintf("Reversal template must contain exactly one credit line, found %d", len(creditLines)))
	}
	if len(productLines) < 1 {
		return shared.NewDomainError(shared.ErrCodeLedgerInconsistency,
			"Reversal template must contain at least one product line")
	}

	taxLine := taxLines[0]
	creditLine := creditLines[0]
	productLine := productLines[0]
	if productLine == taxLine || productLine == creditLine {
		// The product line survives the rewrite; it cannot double as the
		// removed tax line or the credit counterpart.
		for _, candidate := range productLines[1:] {
			if candidate != taxLine && candidate != creditLine {
				productLine = candidate
				break
			}
		}
		if productLine == taxLine || productLine == creditLine {
			return shared.NewDomainError(shared.ErrCodeLedgerInconsistency,
				"Reversal template has no distinct product line to rebuild")
		}
	}

	// Clean every line first; the two surviving lines are rebuilt from zero.
	for i := range cn.Lines {
		l := &cn.Lines[i]
		l.Quantity = decimal.Zero
		l.PriceUnit = decimal.Zero
		l.PriceSubtotal = decimal.Zero
		l.PriceTotal = decimal.Zero
		l.AmountResidual = decimal.Zero
		l.Debit = decimal.Zero
		l.Credit = decimal.Zero
		l.Balance = decimal.Zero
		l.TaxBaseAmount = decimal.Zero
		l.AmountCurrency = decimal.Zero
	}

	one := decimal.NewFromInt(1)
	neg := amountToReverse.Neg()

	// The write-off is tax exempt: the counterpart books the full amount as
	// a credit against the receivable.
	creditLine.Quantity = one
	creditLine.Credit = amountToReverse
	creditLine.AmountCurrency = neg
	creditLine.PriceUnit = neg
	creditLine.PriceSubtotal = neg
	creditLine.PriceTotal = neg
	creditLine.AmountResidual = neg
	creditLine.Balance = neg

	productLine.Quantity = one
	productLine.Debit = amountToReverse
	productLine.AmountCurrency = amountToReverse
	productLine.PriceUnit = amountToReverse
	productLine.PriceSubtotal = amountToReverse
	productLine.PriceTotal = amountToReverse
	productLine.Balance = amountToReverse
	productLine.ProductID = nil
	productLine.ProductName = ""
	productLine.Label = WriteOffLineLabel

	keptCredit := *creditLine
	keptProduct := *productLine
	for i := range cn.Lines {
		l := &cn.Lines[i]
		if l.ID != keptCredit.ID && l.ID != keptProduct.ID {
			cn.removedLineIDs = append(cn.removedLineIDs, l.ID)
		}
	}
	cn.Lines = []CreditNoteLine{keptProduct, keptCredit}

	cn.AmountUntaxed = amountToReverse
	cn.AmountTotal = amountToReverse
	cn.AmountResidual = amountToReverse
	cn.AmountUntaxedSigned = neg
	cn.AmountTotalSigned = neg
	cn.AmountResidualSigned = neg
	cn.Touch()
	cn.IncrementVersion()

	cn.AddDomainEvent(NewCreditNoteRewrittenEvent(cn, amountToReverse))

	return nil
}
