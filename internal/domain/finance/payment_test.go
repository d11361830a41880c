package finance

import (
	"testing"
	"time"

	"github.com/erp/payments/internal/domain/shared"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers
func createTestPayment(t *testing.T, companyID uuid.UUID, invoices []*Invoice) *Payment {
	reg := createTestRegistration(t, companyID)
	for _, inv := range invoices {
		require.NoError(t, reg.AddLine(inv))
	}
	groups := GroupLines(reg.RetainedLines(), true)
	require.Len(t, groups, 1)
	values, err := BuildPaymentValues(groups[0], reg)
	require.NoError(t, err)

	p, err := NewPayment(companyID, "PAY-2026-001", values)
	require.NoError(t, err)
	require.NoError(t, p.SetLiquidityAccount("1000"))
	return p
}

// ============================================
// Payment Ledger Tests
// ============================================

func TestPayment_BuildLedgerLines(t *testing.T) {
	companyID := uuid.New()
	partnerID := uuid.New()
	a := createTestInvoice(t, companyID, partnerID, "INV-A", 100)
	b := createTestInvoice(t, companyID, partnerID, "INV-B", 50)
	require.NoError(t, a.SetPrepayment(decimal.NewFromInt(100)))
	require.NoError(t, b.SetPrepayment(decimal.NewFromInt(50)))

	p := createTestPayment(t, companyID, []*Invoice{a, b})
	require.NoError(t, p.BuildLedgerLines([]*Invoice{a, b}))

	require.Len(t, p.Lines, 3)

	liquidity := p.Lines[0]
	assert.True(t, liquidity.IsLiquidity)
	assert.Equal(t, "1000", liquidity.AccountCode)
	assert.True(t, decimal.NewFromInt(150).Equal(liquidity.Debit), "inbound payment debits the bank")

	assert.True(t, decimal.NewFromInt(100).Equal(p.Lines[1].Credit), "counterpart carries the stamped prepayment")
	assert.True(t, decimal.NewFromInt(50).Equal(p.Lines[2].Credit))
	assert.Equal(t, "1100", p.Lines[1].AccountCode)

	t.Run("entry balances", func(t *testing.T) {
		assert.NoError(t, p.ValidateLedgerLines())
	})
}

func TestPayment_BuildLedgerLines_SkipsZeroPrepayments(t *testing.T) {
	companyID := uuid.New()
	partnerID := uuid.New()
	a := createTestInvoice(t, companyID, partnerID, "INV-A", 100)
	b := createTestInvoice(t, companyID, partnerID, "INV-B", 50)
	require.NoError(t, a.SetPrepayment(decimal.NewFromInt(100)))
	// b keeps its zero prepayment and gets no counterpart line

	reg := createTestRegistration(t, companyID)
	require.NoError(t, reg.AddLine(a))
	lineB := addInvoiceLine(t, reg, b)
	require.NoError(t, reg.UpdateLinePayment(lineB.ID, decimal.Zero))

	groups := GroupLines(reg.RetainedLines(), true)
	values, err := BuildPaymentValues(groups[0], reg)
	require.NoError(t, err)
	p, err := NewPayment(companyID, "PAY-1", values)
	require.NoError(t, err)
	require.NoError(t, p.SetLiquidityAccount("1000"))

	require.NoError(t, p.BuildLedgerLines([]*Invoice{a, b}))
	assert.Len(t, p.Lines, 2)
}

func TestPayment_ValidateLedgerLines(t *testing.T) {
	companyID := uuid.New()
	partnerID := uuid.New()
	a := createTestInvoice(t, companyID, partnerID, "INV-A", 100)
	require.NoError(t, a.SetPrepayment(decimal.NewFromInt(100)))
	p := createTestPayment(t, companyID, []*Invoice{a})
	require.NoError(t, p.BuildLedgerLines([]*Invoice{a}))

	t.Run("unbalanced entry refused", func(t *testing.T) {
		broken := *p
		broken.Lines = make([]LedgerLine, len(p.Lines))
		copy(broken.Lines, p.Lines)
		broken.Lines[0].Debit = decimal.NewFromInt(99)
		err := broken.ValidateLedgerLines()
		require.Error(t, err)
		de, ok := err.(*shared.DomainError)
		require.True(t, ok)
		assert.Equal(t, shared.ErrCodeLedgerInconsistency, de.Code)
	})

	t.Run("mixed currency refused", func(t *testing.T) {
		broken := *p
		broken.Lines = make([]LedgerLine, len(p.Lines))
		copy(broken.Lines, p.Lines)
		broken.Lines[1].Currency = valueobject.EUR
		assert.Error(t, broken.ValidateLedgerLines())
	})

	t.Run("multi-counterpart needs multiple documents", func(t *testing.T) {
		broken := *p
		broken.Lines = make([]LedgerLine, len(p.Lines))
		copy(broken.Lines, p.Lines)
		half := decimal.NewFromInt(50)
		broken.Lines[1].Credit = half
		extra := broken.Lines[1]
		extra.ID = uuid.New()
		extra.Credit = half
		broken.Lines = append(broken.Lines, extra)
		err := broken.ValidateLedgerLines()
		require.Error(t, err)
	})
}

func TestPayment_RelatedInvoiceIDs(t *testing.T) {
	companyID := uuid.New()
	partnerID := uuid.New()
	a := createTestInvoice(t, companyID, partnerID, "INV-A", 100)
	b := createTestInvoice(t, companyID, partnerID, "INV-B", 50)
	p := createTestPayment(t, companyID, []*Invoice{a, b})

	ids, err := p.RelatedInvoiceIDs()
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID}, ids)

	t.Run("malformed reference is a hard failure", func(t *testing.T) {
		p.RelatedInvoiceRefs = p.RelatedInvoiceRefs + ",not-a-uuid"
		_, err := p.RelatedInvoiceIDs()
		require.Error(t, err)
		de, ok := err.(*shared.DomainError)
		require.True(t, ok)
		assert.Equal(t, shared.ErrCodeLedgerInconsistency, de.Code)
	})
}

func TestPayment_Post(t *testing.T) {
	companyID := uuid.New()
	partnerID := uuid.New()
	a := createTestInvoice(t, companyID, partnerID, "INV-A", 100)
	require.NoError(t, a.SetPrepayment(decimal.NewFromInt(100)))
	p := createTestPayment(t, companyID, []*Invoice{a})

	t.Run("cannot post without ledger lines", func(t *testing.T) {
		assert.Error(t, p.Post())
	})

	require.NoError(t, p.BuildLedgerLines([]*Invoice{a}))
	require.NoError(t, p.Post())
	assert.Equal(t, PaymentStatusPosted, p.Status)

	t.Run("reposting refused", func(t *testing.T) {
		assert.Error(t, p.Post())
	})
}

// ============================================
// Batch Deposit Tests
// ============================================

func TestBatchDeposit_Lifecycle(t *testing.T) {
	companyID := uuid.New()
	bd, err := NewBatchDeposit(companyID, "DEP-42", "BNK1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, BatchDepositStatusDraft, bd.Status)
	assert.True(t, bd.CanAcceptPayments())

	require.NoError(t, bd.AddPayment(decimal.NewFromInt(120)))
	require.NoError(t, bd.AddPayment(decimal.NewFromInt(80)))
	assert.Equal(t, 2, bd.PaymentCount)
	assert.True(t, decimal.NewFromInt(200).Equal(bd.TotalAmount))

	require.NoError(t, bd.MarkSent())
	assert.False(t, bd.CanAcceptPayments())
	assert.Error(t, bd.AddPayment(decimal.NewFromInt(10)))

	require.NoError(t, bd.MarkReconciled())
	assert.Equal(t, BatchDepositStatusReconciled, bd.Status)
}

func TestBatchDeposit_EmptyCannotBeSent(t *testing.T) {
	bd, err := NewBatchDeposit(uuid.New(), "DEP-1", "BNK1", time.Now())
	require.NoError(t, err)
	assert.Error(t, bd.MarkSent())
}
