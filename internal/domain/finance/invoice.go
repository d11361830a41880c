package finance

import (
	"fmt"
	"time"

	"github.com/erp/payments/internal/domain/shared"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceLine is a journal item belonging to an invoice or bill
type InvoiceLine struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index"`
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
	DateMaturity   *time.Time
}

// TableName returns the table name for GORM
func (InvoiceLine) TableName() string {
	return "invoice_lines"
}

// IsTaxLine returns true when the line carries a tax base amount
func (l *InvoiceLine) IsTaxLine() bool {
	return l.TaxBaseAmount.GreaterThan(decimal.Zero)
}

// IsCreditLine returns true when the line carries a credit balance
func (l *InvoiceLine) IsCreditLine() bool {
	return l.Credit.GreaterThan(decimal.Zero)
}

// IsProductLine returns true when the line references a product
func (l *InvoiceLine) IsProductLine() bool {
	return l.ProductID != nil
}

// Invoice represents a payable ledger document (customer invoice or vendor
// bill) aggregate root. It carries the residual amount still open for
// payment and the destination receivable/payable account.
type Invoice struct {
	shared.CompanyAggregateRoot
	InvoiceNumber        string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_company_number,priority:2"`
	DocumentType         DocumentType         `gorm:"type:varchar(30);not null;index"`
	PartnerID            uuid.UUID            `gorm:"type:uuid;not null;index"`
	PartnerName          string               `gorm:"type:varchar(200);not null"`
	CommercialPartnerID  uuid.UUID            `gorm:"type:uuid;not null;index"` // Top-level billing entity
	BankAccountID        *uuid.UUID           `gorm:"type:uuid"`
	Currency             valueobject.Currency `gorm:"type:varchar(3);not null"`
	DestinationAccount   string               `gorm:"type:varchar(50);not null"` // Receivable/payable account code
	Status               InvoiceStatus        `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	PaymentState         PaymentState         `gorm:"type:varchar(20);not null;default:'NOT_PAID';index"`
	InvoiceDate          time.Time            `gorm:"not null"`
	DueDate              *time.Time           `gorm:"index"`
	Reference            string               `gorm:"type:varchar(200)"` // Free-text document reference
	PaymentReference     string               `gorm:"type:varchar(200)"` // Reference to quote when paying
	AmountUntaxed        decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	AmountTotal          decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	AmountResidual       decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	AmountUntaxedSigned  decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	AmountTotalSigned    decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	AmountResidualSigned decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	PrepaymentAmount     decimal.Decimal      `gorm:"type:decimal(18,4);not null"` // Stamped by payment registration
	RelatedPaymentID     *uuid.UUID           `gorm:"type:uuid;index"`
	Lines                []InvoiceLine        `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// NewInvoice creates a new invoice or bill in draft state
func NewInvoice(
	companyID uuid.UUID,
	invoiceNumber string,
	docType DocumentType,
	partnerID uuid.UUID,
	partnerName string,
	commercialPartnerID uuid.UUID,
	currency valueobject.Currency,
	destinationAccount string,
	invoiceDate time.Time,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if !docType.IsValid() || !docType.IsInvoice() {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_TYPE", "Document type must be a customer invoice or vendor bill")
	}
	if partnerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTNER", "Partner ID cannot be empty")
	}
	if partnerName == "" {
		return nil, shared.NewDomainError("INVALID_PARTNER_NAME", "Partner name cannot be empty")
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency is not valid")
	}
	if destinationAccount == "" {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Destination account is required")
	}
	if invoiceDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_INVOICE_DATE", "Invoice date is required")
	}
	if commercialPartnerID == uuid.Nil {
		commercialPartnerID = partnerID
	}

	inv := &Invoice{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		InvoiceNumber:        invoiceNumber,
		DocumentType:         docType,
		PartnerID:            partnerID,
		PartnerName:          partnerName,
		CommercialPartnerID:  commercialPartnerID,
		Currency:             currency,
		DestinationAccount:   destinationAccount,
		Status:               InvoiceStatusDraft,
		PaymentState:         PaymentStateNotPaid,
		InvoiceDate:          invoiceDate,
		AmountUntaxed:        decimal.Zero,
		AmountTotal:          decimal.Zero,
		AmountResidual:       decimal.Zero,
		AmountUntaxedSigned:  decimal.Zero,
		AmountTotalSigned:    decimal.Zero,
		AmountResidualSigned: decimal.Zero,
		PrepaymentAmount:     decimal.Zero,
		Lines:                make([]InvoiceLine, 0),
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// AddLine adds a journal item to a draft invoice
func (inv *Invoice) AddLine(line InvoiceLine) error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Lines can only be added to draft invoices")
	}
	if line.AccountCode == "" {
		return shared.NewDomainError("INVALID_ACCOUNT", "Line account code is required")
	}
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	line.InvoiceID = inv.ID
	line.Balance = line.Debit.Sub(line.Credit)
	inv.Lines = append(inv.Lines, line)
	inv.Touch()
	return nil
}

// Post moves the invoice to posted and freezes its totals. Totals are
// derived from the product and tax lines; the residual starts at the full
// total. Signed totals flip for vendor-side documents.
func (inv *Invoice) Post() error {
	if inv.Status != InvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot post invoice in %s status", inv.Status))
	}
	if len(inv.Lines) == 0 {
		return shared.NewDomainError("EMPTY_INVOICE", "Cannot post an invoice without lines")
	}

	untaxed := decimal.Zero
	tax := decimal.Zero
	for i := range inv.Lines {
		l := &inv.Lines[i]
		if l.IsTaxLine() {
			tax = tax.Add(l.PriceTotal.Sub(l.PriceSubtotal))
			continue
		}
		if l.IsProductLine() {
			untaxed = untaxed.Add(l.PriceSubtotal)
		}
	}
	total := untaxed.Add(tax)

	sign := decimal.NewFromInt(1)
	if inv.DocumentType == DocumentTypeVendorBill {
		sign = decimal.NewFromInt(-1)
	}

	inv.AmountUntaxed = untaxed
	inv.AmountTotal = total
	inv.AmountResidual = total
	inv.AmountUntaxedSigned = untaxed.Mul(sign)
	inv.AmountTotalSigned = total.Mul(sign)
	inv.AmountResidualSigned = total.Mul(sign)
	inv.Status = InvoiceStatusPosted
	inv.PaymentState = PaymentStateNotPaid
	inv.Touch()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoicePostedEvent(inv))

	return nil
}

// DisplayReference returns the reference used when joining documents into a
// payment communication string
func (inv *Invoice) DisplayReference() string {
	if inv.PaymentReference != "" {
		return inv.PaymentReference
	}
	if inv.Reference != "" {
		return inv.Reference
	}
	return inv.InvoiceNumber
}

// Role returns the partner role this document resolves to
func (inv *Invoice) Role() PartnerRole {
	return inv.DocumentType.Role()
}

// IsOpen returns true while the document is posted with an outstanding residual
func (inv *Invoice) IsOpen() bool {
	return inv.Status == InvoiceStatusPosted &&
		inv.PaymentState.IsOpen() &&
		inv.AmountResidual.GreaterThan(decimal.Zero)
}

// SetPrepayment stamps the amount a registration intends to pay against
// this document. The payment ledger lines read it back when the grouped
// entry is generated.
func (inv *Invoice) SetPrepayment(amount decimal.Decimal) error {
	if inv.Status != InvoiceStatusPosted {
		return shared.NewDomainError("INVALID_STATE", "Prepayment can only be set on posted invoices")
	}
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Prepayment amount cannot be negative")
	}
	inv.PrepaymentAmount = amount
	inv.Touch()
	return nil
}

// ApplyPayment settles part or all of the residual and links the payment
func (inv *Invoice) ApplyPayment(paymentID uuid.UUID, amount decimal.Decimal) error {
	if !inv.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", "Payments can only be applied to open documents")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.GreaterThan(inv.AmountResidual) {
		return shared.NewDomainError("EXCEEDS_RESIDUAL", fmt.Sprintf("Payment amount %s exceeds residual %s", amount.StringFixed(2), inv.AmountResidual.StringFixed(2)))
	}

	sign := decimal.NewFromInt(1)
	if inv.DocumentType == DocumentTypeVendorBill {
		sign = decimal.NewFromInt(-1)
	}

	inv.AmountResidual = inv.AmountResidual.Sub(amount)
	inv.AmountResidualSigned = inv.AmountResidual.Mul(sign)
	inv.RelatedPaymentID = &paymentID
	if inv.AmountResidual.IsZero() {
		inv.PaymentState = PaymentStatePaid
	} else {
		inv.PaymentState = PaymentStatePartial
	}
	inv.Touch()
	inv.IncrementVersion()

	if inv.PaymentState == PaymentStatePaid {
		inv.AddDomainEvent(NewInvoicePaidEvent(inv, paymentID))
	}

	return nil
}

// WriteOffResidual settles the remaining residual through a credit note
// instead of a payment. Used for discount lines.
func (inv *Invoice) WriteOffResidual(creditNoteID uuid.UUID, amount decimal.Decimal) error {
	if !inv.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", "Write-off can only be applied to open documents")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Write-off amount must be positive")
	}
	if amount.GreaterThan(inv.AmountResidual) {
		return shared.NewDomainError("EXCEEDS_RESIDUAL", fmt.Sprintf("Write-off amount %s exceeds residual %s", amount.StringFixed(2), inv.AmountResidual.StringFixed(2)))
	}

	sign := decimal.NewFromInt(1)
	if inv.DocumentType == DocumentTypeVendorBill {
		sign = decimal.NewFromInt(-1)
	}

	inv.AmountResidual = inv.AmountResidual.Sub(amount)
	inv.AmountResidualSigned = inv.AmountResidual.Mul(sign)
	if inv.AmountResidual.IsZero() {
		inv.PaymentState = PaymentStatePaid
	} else {
		inv.PaymentState = PaymentStatePartial
	}
	inv.Touch()
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceWrittenOffEvent(inv, creditNoteID, amount))

	return nil
}
