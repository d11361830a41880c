package finance

import (
	"testing"
	"time"

	"github.com/erp/payments/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createReversalTemplate builds a credit note whose lines mirror the
// canonical reversal shape: one tax line, one credit counterpart, one
// product line.
func createReversalTemplate(t *testing.T, tax, credit, product float64) *CreditNote {
	companyID := uuid.New()
	inv := createTestInvoice(t, companyID, uuid.New(), "INV-SRC", product)

	cn, err := NewCreditNoteFromInvoice(inv, "RINV-1", time.Now())
	require.NoError(t, err)

	productID := uuid.New()
	cn.Lines = []CreditNoteLine{
		{
			ID:            uuid.New(),
			CreditNoteID:  cn.ID,
			Label:         "Tax 20%",
			AccountCode:   "2200",
			TaxBaseAmount: decimal.NewFromFloat(product),
			Debit:         decimal.NewFromFloat(tax),
			Balance:       decimal.NewFromFloat(tax),
		},
		{
			ID:             uuid.New(),
			CreditNoteID:   cn.ID,
			Label:          "INV-SRC",
			AccountCode:    "1100",
			Credit:         decimal.NewFromFloat(credit),
			Balance:        decimal.NewFromFloat(-credit),
			AmountCurrency: decimal.NewFromFloat(-credit),
		},
		{
			ID:            uuid.New(),
			CreditNoteID:  cn.ID,
			Label:         "Goods",
			AccountCode:   "4000",
			ProductID:     &productID,
			ProductName:   "Goods",
			Quantity:      decimal.NewFromInt(1),
			PriceUnit:     decimal.NewFromFloat(product),
			PriceSubtotal: decimal.NewFromFloat(product),
			PriceTotal:    decimal.NewFromFloat(product),
			Debit:         decimal.NewFromFloat(product),
			Balance:       decimal.NewFromFloat(product),
		},
	}
	return cn
}

// ============================================
// Reversal Generation Tests
// ============================================

func TestNewCreditNoteFromInvoice(t *testing.T) {
	companyID := uuid.New()
	inv := createTestInvoice(t, companyID, uuid.New(), "INV-1", 100)

	cn, err := NewCreditNoteFromInvoice(inv, "RINV-1", time.Now())
	require.NoError(t, err)

	assert.Equal(t, DocumentTypeCustomerCreditNote, cn.DocumentType)
	assert.Equal(t, inv.ID, cn.SourceInvoiceID)
	require.Len(t, cn.Lines, len(inv.Lines))
	assert.True(t, cn.Lines[0].Debit.Equal(inv.Lines[0].Credit), "debit and credit swap on reversal")
	assert.True(t, cn.Lines[0].Credit.Equal(inv.Lines[0].Debit))
	assert.True(t, cn.AmountTotalSigned.Equal(inv.AmountTotal.Neg()))

	t.Run("draft invoices cannot be reversed", func(t *testing.T) {
		draft, err := NewInvoice(companyID, "INV-D", DocumentTypeCustomerInvoice, uuid.New(), "P", uuid.Nil, inv.Currency, "1100", time.Now())
		require.NoError(t, err)
		_, err = NewCreditNoteFromInvoice(draft, "RINV-2", time.Now())
		assert.Error(t, err)
	})
}

// ============================================
// Write-off Rewrite Tests
// ============================================

func TestRewriteForWriteOff(t *testing.T) {
	// Reversal with lines [tax 20, credit 120, product 100], rewritten
	// for 30: exactly two lines survive, credit 30 / debit 30, relabeled,
	// header totals 30 and signed totals -30.
	cn := createReversalTemplate(t, 20, 120, 100)
	amount := decimal.NewFromInt(30)

	require.NoError(t, cn.RewriteForWriteOff(amount))

	require.Len(t, cn.Lines, 2)

	product := cn.Lines[0]
	credit := cn.Lines[1]

	assert.Nil(t, product.ProductID, "product reference is cleared")
	assert.Equal(t, WriteOffLineLabel, product.Label)
	assert.True(t, amount.Equal(product.Debit))
	assert.True(t, product.Credit.IsZero())
	assert.True(t, amount.Equal(product.AmountCurrency))
	assert.True(t, amount.Equal(product.PriceUnit))
	assert.True(t, amount.Equal(product.PriceSubtotal))
	assert.True(t, amount.Equal(product.PriceTotal))
	assert.True(t, product.AmountResidual.IsZero())

	assert.True(t, amount.Equal(credit.Credit))
	assert.True(t, credit.Debit.IsZero())
	assert.True(t, amount.Neg().Equal(credit.AmountCurrency))
	assert.True(t, amount.Neg().Equal(credit.PriceUnit))
	assert.True(t, amount.Neg().Equal(credit.AmountResidual))

	assert.True(t, amount.Equal(cn.AmountUntaxed))
	assert.True(t, amount.Equal(cn.AmountTotal))
	assert.True(t, amount.Equal(cn.AmountResidual))
	assert.True(t, amount.Neg().Equal(cn.AmountUntaxedSigned))
	assert.True(t, amount.Neg().Equal(cn.AmountTotalSigned))
	assert.True(t, amount.Neg().Equal(cn.AmountResidualSigned))

	assert.Len(t, cn.RemovedLineIDs(), 1, "the tax line is removed")
}

func TestRewriteForWriteOff_ShapeViolations(t *testing.T) {
	t.Run("missing tax line", func(t *testing.T) {
		cn := createReversalTemplate(t, 20, 120, 100)
		cn.Lines = cn.Lines[1:]
		err := cn.RewriteForWriteOff(decimal.NewFromInt(30))
		require.Error(t, err)
		de, ok := err.(*shared.DomainError)
		require.True(t, ok)
		assert.Equal(t, shared.ErrCodeLedgerInconsistency, de.Code)
	})

	t.Run("two credit lines", func(t *testing.T) {
		cn := createReversalTemplate(t, 20, 120, 100)
		extra := cn.Lines[1]
		extra.ID = uuid.New()
		cn.Lines = append(cn.Lines, extra)
		err := cn.RewriteForWriteOff(decimal.NewFromInt(30))
		require.Error(t, err)
		de, ok := err.(*shared.DomainError)
		require.True(t, ok)
		assert.Equal(t, shared.ErrCodeLedgerInconsistency, de.Code)
	})

	t.Run("no product line", func(t *testing.T) {
		cn := createReversalTemplate(t, 20, 120, 100)
		cn.Lines[2].ProductID = nil
		err := cn.RewriteForWriteOff(decimal.NewFromInt(30))
		require.Error(t, err)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		cn := createReversalTemplate(t, 20, 120, 100)
		assert.Error(t, cn.RewriteForWriteOff(decimal.Zero))
		assert.Error(t, cn.RewriteForWriteOff(decimal.NewFromInt(-5)))
	})
}
