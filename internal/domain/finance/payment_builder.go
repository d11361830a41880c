package finance

import (
	"strings"
	"time"

	"github.com/erp/payments/internal/domain/shared"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentValues is the builder output for one payment group: everything
// NewPayment needs, derived from the group's lines and the registration
// header.
type PaymentValues struct {
	PaymentType         PaymentType
	PaymentMethod       PaymentMethod
	PartnerID           uuid.UUID
	CommercialPartnerID uuid.UUID
	BankAccountID       *uuid.UUID
	Currency            valueobject.Currency
	Amount              decimal.Decimal
	PaymentDate         time.Time
	JournalCode         string
	Communication       string
	DepositNumber       string
	CheckNumber         string
	RegistrationID      *uuid.UUID
	RelatedInvoiceIDs   []uuid.UUID
}

// BuildPaymentValues derives the payment values for one group. The amount
// sums the requested payments of every line in the group; the
// communication string joins only the retained lines' references. Partner,
// bank account and currency come from the group's first line, which is
// safe because grouping guarantees homogeneity along those axes.
func BuildPaymentValues(group *PaymentGroup, reg *PaymentRegistration) (PaymentValues, error) {
	if group == nil || len(group.Lines) == 0 {
		return PaymentValues{}, shared.NewDomainError(shared.ErrCodeEmptySelection, "Payment group has no lines")
	}

	first := group.Lines[0]

	amount := decimal.Zero
	refs := make([]string, 0, len(group.Lines))
	related := make([]uuid.UUID, 0, len(group.Lines))
	for _, l := range group.Lines {
		amount = amount.Add(l.PaymentAmount)
		related = append(related, l.InvoiceID)
		if l.IsRetained() {
			refs = append(refs, l.Reference)
		}
	}

	regID := reg.ID
	return PaymentValues{
		PaymentType:         group.PaymentType(),
		PaymentMethod:       reg.PaymentMethod,
		PartnerID:           first.PartnerID,
		CommercialPartnerID: first.CommercialPartnerID,
		BankAccountID:       first.BankAccountID,
		Currency:            first.Currency,
		Amount:              amount,
		PaymentDate:         reg.PaymentDate,
		JournalCode:         reg.JournalCode,
		Communication:       strings.Join(refs, ", "),
		DepositNumber:       reg.DepositNumber,
		CheckNumber:         reg.CheckNumber,
		RegistrationID:      &regID,
		RelatedInvoiceIDs:   related,
	}, nil
}
