package finance

import (
	"fmt"
	"time"

	"github.com/erp/payments/internal/domain/shared"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegisterLine is one editable row of a payment registration. It snapshots
// the open document it pays and carries the user-entered payment amount.
// The balance is the portion of the residual left unpaid by this line.
type RegisterLine struct {
	ID                  uuid.UUID            `gorm:"type:uuid;primary_key"`
	RegistrationID      uuid.UUID            `gorm:"type:uuid;not null;index"`
	InvoiceID           uuid.UUID            `gorm:"type:uuid;not null;index"`
	CompanyID           uuid.UUID            `gorm:"type:uuid;not null"`
	InvoiceNumber       string               `gorm:"type:varchar(50);not null"`
	DocumentType        DocumentType         `gorm:"type:varchar(30);not null"`
	PartnerID           uuid.UUID            `gorm:"type:uuid;not null"`
	CommercialPartnerID uuid.UUID            `gorm:"type:uuid;not null"`
	BankAccountID       *uuid.UUID           `gorm:"type:uuid"`
	Currency            valueobject.Currency `gorm:"type:varchar(3);not null"`
	DestinationAccount  string               `gorm:"type:varchar(50);not null"`
	Reference           string               `gorm:"type:varchar(200)"`
	DueDate             *time.Time
	AmountResidual      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PaymentAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Balance             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Discount            bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (RegisterLine) TableName() string {
	return "register_lines"
}

// Role returns the partner role of the document this line pays
func (l *RegisterLine) Role() PartnerRole {
	return l.DocumentType.Role()
}

// IsRetained returns true when the line survives filtering: either the
// discount flag is set or a positive payment amount was entered. Lines
// that are neither are carried in the registration but ignored by
// grouping, reference building and posting.
func (l *RegisterLine) IsRetained() bool {
	return l.Discount || l.PaymentAmount.GreaterThan(decimal.Zero)
}

// GroupKey returns the key this line groups under. Lines sharing all four
// fields fold into one payment.
func (l *RegisterLine) GroupKey() PaymentGroupKey {
	return PaymentGroupKey{
		CommercialPartnerID: l.CommercialPartnerID,
		Currency:            l.Currency,
		BankAccountID:       l.BankAccountID,
		Role:                l.Role(),
	}
}

// recompute keeps the balance consistent with residual and payment
func (l *RegisterLine) recompute() {
	l.Balance = l.AmountResidual.Sub(l.PaymentAmount)
}

// PercentBalance returns the unpaid share of this line's residual as a
// percentage, zero when the residual is zero
func (l *RegisterLine) PercentBalance() decimal.Decimal {
	if l.AmountResidual.IsZero() {
		return decimal.Zero
	}
	return l.Balance.Div(l.AmountResidual).Mul(decimal.NewFromInt(100)).Round(6)
}

// PaymentGroupKey identifies one emitted payment. All retained lines that
// agree on these four fields are settled by a single grouped payment.
type PaymentGroupKey struct {
	CommercialPartnerID uuid.UUID
	Currency            valueobject.Currency
	BankAccountID       *uuid.UUID
	Role                PartnerRole
}

// String renders a stable representation usable as a map key companion
// in logs
func (k PaymentGroupKey) String() string {
	bank := "none"
	if k.BankAccountID != nil {
		bank = k.BankAccountID.String()
	}
	return fmt.Sprintf("%s/%s/%s/%s", k.CommercialPartnerID, k.Currency, bank, k.Role)
}

// comparable form for map keys; pointers make PaymentGroupKey itself
// unsuitable as a map key
type groupKeyValue struct {
	CommercialPartnerID uuid.UUID
	Currency            valueobject.Currency
	BankAccountID       uuid.UUID
	HasBankAccount      bool
	Role                PartnerRole
}

func (k PaymentGroupKey) value() groupKeyValue {
	v := groupKeyValue{
		CommercialPartnerID: k.CommercialPartnerID,
		Currency:            k.Currency,
		Role:                k.Role,
	}
	if k.BankAccountID != nil {
		v.BankAccountID = *k.BankAccountID
		v.HasBankAccount = true
	}
	return v
}

// PaymentRegistration is the aggregate driving multi-invoice payment. It
// collects one register line per selected open document, accepts payment
// amount edits while in draft, then validates and posts the grouped
// payments in one shot.
type PaymentRegistration struct {
	shared.CompanyAggregateRoot
	State         RegistrationState `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	PaymentDate   time.Time         `gorm:"not null"`
	PaymentMethod PaymentMethod     `gorm:"type:varchar(30);not null"`
	JournalCode   string            `gorm:"type:varchar(50);not null"`
	GroupByKey    bool              `gorm:"not null;default:true"` // Fold lines into one payment per group key
	DepositNumber string            `gorm:"type:varchar(100)"`     // Batch deposit the payments bundle into
	CheckNumber   string            `gorm:"type:varchar(100)"`
	Communication string            `gorm:"type:varchar(2000)"` // Joined references of retained lines
	Lines         []RegisterLine    `gorm:"foreignKey:RegistrationID;references:ID"`
}

// TableName returns the table name for GORM
func (PaymentRegistration) TableName() string {
	return "payment_registrations"
}

// NewPaymentRegistration creates a draft registration
func NewPaymentRegistration(companyID uuid.UUID, paymentDate time.Time, method PaymentMethod, journalCode string) (*PaymentRegistration, error) {
	if paymentDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_DATE", "Payment date is required")
	}
	if method == "" {
		method = PaymentMethodBatchDeposit
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", fmt.Sprintf("Unknown payment method %s", method))
	}
	if journalCode == "" {
		return nil, shared.NewDomainError("INVALID_JOURNAL", "Journal code is required")
	}

	reg := &PaymentRegistration{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		State:                RegistrationStateDraft,
		PaymentDate:          paymentDate,
		PaymentMethod:        method,
		JournalCode:          journalCode,
		GroupByKey:           true,
		Lines:                make([]RegisterLine, 0),
	}

	reg.AddDomainEvent(NewRegistrationCreatedEvent(reg))

	return reg, nil
}

// AddLine snapshots an open document into a register line. The payment
// amount defaults to the full residual so a registration pays everything
// unless the user edits lines down.
//
// Heterogeneous partners, currencies and directions are accepted here;
// they are reported by Validate in a fixed order so the operator sees the
// most fundamental problem first.
func (reg *PaymentRegistration) AddLine(inv *Invoice) error {
	if reg.State != RegistrationStateDraft {
		return shared.NewDomainError("INVALID_STATE", "Lines can only be added to draft registrations")
	}
	if inv == nil {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice is required")
	}
	if !inv.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Document %s is not open for payment", inv.InvoiceNumber))
	}
	for i := range reg.Lines {
		if reg.Lines[i].InvoiceID == inv.ID {
			return shared.NewDomainError(shared.ErrAlreadyExists.Code, fmt.Sprintf("Document %s is already selected", inv.InvoiceNumber))
		}
	}

	line := RegisterLine{
		ID:                  uuid.New(),
		RegistrationID:      reg.ID,
		InvoiceID:           inv.ID,
		CompanyID:           inv.CompanyID,
		InvoiceNumber:       inv.InvoiceNumber,
		DocumentType:        inv.DocumentType,
		PartnerID:           inv.PartnerID,
		CommercialPartnerID: inv.CommercialPartnerID,
		BankAccountID:       inv.BankAccountID,
		Currency:            inv.Currency,
		DestinationAccount:  inv.DestinationAccount,
		Reference:           inv.DisplayReference(),
		DueDate:             inv.DueDate,
		AmountResidual:      inv.AmountResidual,
		PaymentAmount:       inv.AmountResidual,
	}
	line.recompute()
	reg.Lines = append(reg.Lines, line)
	reg.Touch()

	return nil
}

// UpdateLinePayment changes the payment amount of a line and recomputes
// its balance. Setting an amount below the residual leaves the remainder
// open unless the discount flag writes it off.
func (reg *PaymentRegistration) UpdateLinePayment(lineID uuid.UUID, amount decimal.Decimal) error {
	if reg.State != RegistrationStateDraft {
		return shared.NewDomainError("INVALID_STATE", "Lines can only be edited on draft registrations")
	}
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount cannot be negative")
	}
	line := reg.findLine(lineID)
	if line == nil {
		return shared.NewDomainError(shared.ErrNotFound.Code, "Register line not found")
	}
	if amount.GreaterThan(line.AmountResidual) {
		return shared.NewDomainError("EXCEEDS_RESIDUAL", fmt.Sprintf("Payment amount %s exceeds residual %s", amount.StringFixed(2), line.AmountResidual.StringFixed(2)))
	}
	line.PaymentAmount = amount
	line.recompute()
	reg.Touch()
	return nil
}

// SetLineDiscount toggles the discount flag on a line. A flagged line has
// its unpaid balance written off by a credit note at posting time.
func (reg *PaymentRegistration) SetLineDiscount(lineID uuid.UUID, discount bool) error {
	if reg.State != RegistrationStateDraft {
		return shared.NewDomainError("INVALID_STATE", "Lines can only be edited on draft registrations")
	}
	line := reg.findLine(lineID)
	if line == nil {
		return shared.NewDomainError(shared.ErrNotFound.Code, "Register line not found")
	}
	line.Discount = discount
	reg.Touch()
	return nil
}

// SetNumbers records the deposit and check numbers the emitted payments
// will carry
func (reg *PaymentRegistration) SetNumbers(depositNumber, checkNumber string) error {
	if reg.State != RegistrationStateDraft {
		return shared.NewDomainError("INVALID_STATE", "Numbers can only be changed on draft registrations")
	}
	reg.DepositNumber = depositNumber
	reg.CheckNumber = checkNumber
	reg.Touch()
	return nil
}

// SetGroupByKey toggles whether retained lines fold into one payment per
// group key or each retained line emits its own payment
func (reg *PaymentRegistration) SetGroupByKey(group bool) error {
	if reg.State != RegistrationStateDraft {
		return shared.NewDomainError("INVALID_STATE", "Grouping can only be changed on draft registrations")
	}
	reg.GroupByKey = group
	reg.Touch()
	return nil
}

// RemoveLine drops a line from a draft registration
func (reg *PaymentRegistration) RemoveLine(lineID uuid.UUID) error {
	if reg.State != RegistrationStateDraft {
		return shared.NewDomainError("INVALID_STATE", "Lines can only be removed from draft registrations")
	}
	for i := range reg.Lines {
		if reg.Lines[i].ID == lineID {
			reg.Lines = append(reg.Lines[:i], reg.Lines[i+1:]...)
			reg.Touch()
			return nil
		}
	}
	return shared.NewDomainError(shared.ErrNotFound.Code, "Register line not found")
}

func (reg *PaymentRegistration) findLine(lineID uuid.UUID) *RegisterLine {
	for i := range reg.Lines {
		if reg.Lines[i].ID == lineID {
			return &reg.Lines[i]
		}
	}
	return nil
}

// RetainedLines returns the lines that participate in grouping and
// posting, in selection order
func (reg *PaymentRegistration) RetainedLines() []*RegisterLine {
	out := make([]*RegisterLine, 0, len(reg.Lines))
	for i := range reg.Lines {
		if reg.Lines[i].IsRetained() {
			out = append(out, &reg.Lines[i])
		}
	}
	return out
}

// TotalPayment sums the payment amounts of the retained lines
func (reg *PaymentRegistration) TotalPayment() decimal.Decimal {
	total := decimal.Zero
	for _, l := range reg.RetainedLines() {
		total = total.Add(l.PaymentAmount)
	}
	return total
}

// DiscountRatio returns the unpaid share of the discount-flagged lines,
// as the ratio of their summed balances over their summed residuals,
// rounded to six decimal places. Zero when no line is flagged or the
// flagged residuals do not sum to a positive amount.
func (reg *PaymentRegistration) DiscountRatio() decimal.Decimal {
	balance := decimal.Zero
	residual := decimal.Zero
	for i := range reg.Lines {
		l := &reg.Lines[i]
		if !l.Discount {
			continue
		}
		balance = balance.Add(l.Balance)
		residual = residual.Add(l.AmountResidual)
	}
	if residual.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return balance.Div(residual).Round(6)
}

// HasDiscountLines returns true when at least one line carries the
// discount flag
func (reg *PaymentRegistration) HasDiscountLines() bool {
	for i := range reg.Lines {
		if reg.Lines[i].Discount {
			return true
		}
	}
	return false
}

// MarkValidated transitions the registration from draft to validated.
// Callers run the registration validator first; this method only guards
// the state machine.
func (reg *PaymentRegistration) MarkValidated() error {
	if reg.State != RegistrationStateDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot validate registration in %s state", reg.State))
	}
	reg.State = RegistrationStateValidated
	reg.Touch()
	reg.IncrementVersion()
	reg.AddDomainEvent(NewRegistrationValidatedEvent(reg))
	return nil
}

// MarkPosted transitions the registration to its terminal posted state
// and freezes the joined communication string
func (reg *PaymentRegistration) MarkPosted(communication string, paymentIDs []uuid.UUID) error {
	if reg.State != RegistrationStateValidated {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot post registration in %s state", reg.State))
	}
	reg.State = RegistrationStatePosted
	reg.Communication = communication
	reg.Touch()
	reg.IncrementVersion()
	reg.AddDomainEvent(NewRegistrationPostedEvent(reg, paymentIDs))
	return nil
}
