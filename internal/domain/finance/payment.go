package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/payments/internal/domain/shared"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerLine is one journal item of a posted payment. The liquidity line
// books the money movement against the journal's bank account; the
// counterpart lines offset the receivable or payable of each settled
// document.
type LedgerLine struct {
	ID             uuid.UUID            `gorm:"type:uuid;primary_key"`
	PaymentID      uuid.UUID            `gorm:"type:uuid;not null;index"`
	Label          string               `gorm:"type:varchar(500)"`
	AccountCode    string               `gorm:"type:varchar(50);not null"`
	PartnerID      uuid.UUID            `gorm:"type:uuid;not null"`
	InvoiceID      *uuid.UUID           `gorm:"type:uuid"` // Set on counterpart lines
	Currency       valueobject.Currency `gorm:"type:varchar(3);not null"`
	Debit          decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Credit         decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	AmountCurrency decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	IsLiquidity    bool                 `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (LedgerLine) TableName() string {
	return "payment_ledger_lines"
}

// Payment is the aggregate emitted for one payment group. It carries the
// grouped amount, the joined communication string and a reference list of
// the documents it settles.
type Payment struct {
	shared.CompanyAggregateRoot
	PaymentNumber       string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_company_number,priority:2"`
	PaymentType         PaymentType          `gorm:"type:varchar(20);not null"`
	PaymentMethod       PaymentMethod        `gorm:"type:varchar(30);not null"`
	Status              PaymentStatus        `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	PartnerID           uuid.UUID            `gorm:"type:uuid;not null;index"`
	CommercialPartnerID uuid.UUID            `gorm:"type:uuid;not null;index"`
	BankAccountID       *uuid.UUID           `gorm:"type:uuid"`
	Currency            valueobject.Currency `gorm:"type:varchar(3);not null"`
	Amount              decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	PaymentDate         time.Time            `gorm:"not null"`
	JournalCode         string               `gorm:"type:varchar(50);not null"`
	LiquidityAccount    string               `gorm:"type:varchar(50);not null"`
	Communication       string               `gorm:"type:varchar(2000)"`
	DepositNumber       string               `gorm:"type:varchar(100);index"`
	CheckNumber         string               `gorm:"type:varchar(100)"`
	RegistrationID      *uuid.UUID           `gorm:"type:uuid;index"`
	BatchDepositID      *uuid.UUID           `gorm:"type:uuid;index"`
	RelatedInvoiceRefs  string               `gorm:"type:text"` // Comma-joined invoice UUIDs
	Lines               []LedgerLine         `gorm:"foreignKey:PaymentID;references:ID"`
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a draft payment from builder output
func NewPayment(companyID uuid.UUID, paymentNumber string, values PaymentValues) (*Payment, error) {
	if paymentNumber == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_NUMBER", "Payment number cannot be empty")
	}
	if values.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !values.PaymentType.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_TYPE", "Payment direction is not valid")
	}
	if values.PartnerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTNER", "Partner ID cannot be empty")
	}
	if !values.Currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency is not valid")
	}

	refs := make([]string, 0, len(values.RelatedInvoiceIDs))
	for _, id := range values.RelatedInvoiceIDs {
		refs = append(refs, id.String())
	}

	p := &Payment{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		PaymentNumber:        paymentNumber,
		PaymentType:          values.PaymentType,
		PaymentMethod:        values.PaymentMethod,
		Status:               PaymentStatusDraft,
		PartnerID:            values.PartnerID,
		CommercialPartnerID:  values.CommercialPartnerID,
		BankAccountID:        values.BankAccountID,
		Currency:             values.Currency,
		Amount:               values.Amount,
		PaymentDate:          values.PaymentDate,
		JournalCode:          values.JournalCode,
		Communication:        values.Communication,
		DepositNumber:        values.DepositNumber,
		CheckNumber:          values.CheckNumber,
		RegistrationID:       values.RegistrationID,
		RelatedInvoiceRefs:   strings.Join(refs, ","),
		Lines:                make([]LedgerLine, 0),
	}

	p.AddDomainEvent(NewPaymentCreatedEvent(p))

	return p, nil
}

// RelatedInvoiceIDs parses the stored reference list back into UUIDs.
// A malformed entry is a hard failure; the reference list is written by
// the builder and must never be edited by hand.
func (p *Payment) RelatedInvoiceIDs() ([]uuid.UUID, error) {
	if p.RelatedInvoiceRefs == "" {
		return nil, nil
	}
	parts := strings.Split(p.RelatedInvoiceRefs, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		id, err := uuid.Parse(strings.TrimSpace(part))
		if err != nil {
			return nil, shared.NewDomainError(shared.ErrCodeLedgerInconsistency,
				fmt.Sprintf("Payment %s carries a malformed related invoice reference %q", p.PaymentNumber, part))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// BuildLedgerLines generates the journal items for the payment: one
// liquidity line carrying the full amount and one counterpart line per
// settled document carrying that document's stamped prepayment amount.
// Inbound payments debit the bank and credit the receivables; outbound
// payments mirror that.
func (p *Payment) BuildLedgerLines(invoices []*Invoice) error {
	if p.Status != PaymentStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Ledger lines can only be built on draft payments")
	}
	if len(invoices) == 0 {
		return shared.NewDomainError(shared.ErrCodeEmptySelection, "No documents to settle")
	}
	if p.LiquidityAccount == "" {
		return shared.NewDomainError("INVALID_ACCOUNT", "Liquidity account is required before building ledger lines")
	}

	inbound := p.PaymentType == PaymentTypeInbound
	lines := make([]LedgerLine, 0, len(invoices)+1)

	liquidity := LedgerLine{
		ID:          uuid.New(),
		PaymentID:   p.ID,
		Label:       p.Communication,
		AccountCode: p.LiquidityAccount,
		PartnerID:   p.PartnerID,
		Currency:    p.Currency,
		IsLiquidity: true,
	}
	if inbound {
		liquidity.Debit = p.Amount
		liquidity.AmountCurrency = p.Amount
	} else {
		liquidity.Credit = p.Amount
		liquidity.AmountCurrency = p.Amount.Neg()
	}
	lines = append(lines, liquidity)

	for _, inv := range invoices {
		amount := inv.PrepaymentAmount
		if amount.LessThanOrEqual(decimal.Zero) {
			continue
		}
		invID := inv.ID
		counterpart := LedgerLine{
			ID:          uuid.New(),
			PaymentID:   p.ID,
			Label:       inv.DisplayReference(),
			AccountCode: inv.DestinationAccount,
			PartnerID:   inv.PartnerID,
			InvoiceID:   &invID,
			Currency:    inv.Currency,
		}
		if inbound {
			counterpart.Credit = amount
			counterpart.AmountCurrency = amount.Neg()
		} else {
			counterpart.Debit = amount
			counterpart.AmountCurrency = amount
		}
		lines = append(lines, counterpart)
	}

	p.Lines = lines
	p.Touch()

	return p.ValidateLedgerLines()
}

// ValidateLedgerLines checks the generated entry for internal consistency
// before posting. The entry must balance, stay in one currency, touch one
// commercial partner, and only carry a multi-line counterpart when it
// settles more than one document.
func (p *Payment) ValidateLedgerLines() error {
	if len(p.Lines) < 2 {
		return shared.NewDomainError(shared.ErrCodeLedgerInconsistency,
			"Payment entry needs a liquidity line and at least one counterpart")
	}

	debit := decimal.Zero
	credit := decimal.Zero
	counterparts := 0
	for i := range p.Lines {
		l := &p.Lines[i]
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
		if l.Currency != p.Currency {
			return shared.NewDomainError(shared.ErrCodeLedgerInconsistency,
				fmt.Sprintf("Payment entry mixes currencies %s and %s", p.Currency, l.Currency))
		}
		if !l.IsLiquidity {
			counterparts++
		}
	}
	if !debit.Equal(credit) {
		return shared.NewDomainError(shared.ErrCodeLedgerInconsistency,
			fmt.Sprintf("Payment entry is unbalanced: debit %s, credit %s", debit.StringFixed(2), credit.StringFixed(2)))
	}

	related, err := p.RelatedInvoiceIDs()
	if err != nil {
		return err
	}
	if counterparts > 1 && len(related) <= 1 {
		return shared.NewDomainError(shared.ErrCodeLedgerInconsistency,
			"Single-document payments must carry exactly one counterpart line")
	}

	return nil
}

// Post moves the payment to posted. Ledger lines must be built and
// consistent.
func (p *Payment) Post() error {
	if p.Status != PaymentStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot post payment in %s status", p.Status))
	}
	if err := p.ValidateLedgerLines(); err != nil {
		return err
	}
	p.Status = PaymentStatusPosted
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentPostedEvent(p))
	return nil
}

// AttachToBatchDeposit links the payment to the deposit bundling it
func (p *Payment) AttachToBatchDeposit(depositID uuid.UUID) error {
	if depositID == uuid.Nil {
		return shared.NewDomainError("INVALID_DEPOSIT", "Batch deposit ID cannot be empty")
	}
	p.BatchDepositID = &depositID
	p.Touch()
	return nil
}

// SetLiquidityAccount sets the bank account code the liquidity line books
// against. Taken from the journal configuration at posting time.
func (p *Payment) SetLiquidityAccount(accountCode string) error {
	if p.Status != PaymentStatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Liquidity account can only be set on draft payments")
	}
	if accountCode == "" {
		return shared.NewDomainError("INVALID_ACCOUNT", "Liquidity account code cannot be empty")
	}
	p.LiquidityAccount = accountCode
	return nil
}
