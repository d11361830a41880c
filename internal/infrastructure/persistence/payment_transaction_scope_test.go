package persistence

import (
	"context"
	"testing"
	"time"

	apppayment "github.com/erp/payments/internal/application/payment"
	"github.com/erp/payments/internal/domain/finance"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupFinanceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&finance.Invoice{}, &finance.InvoiceLine{})
	require.NoError(t, err)

	return db
}

func newInvoiceForScopeTest(t *testing.T, number string) *finance.Invoice {
	t.Helper()

	partnerID := uuid.New()
	inv, err := finance.NewInvoice(uuid.New(), number, finance.DocumentTypeCustomerInvoice,
		partnerID, "Acme Corp", partnerID, valueobject.USD, "1100", time.Now())
	require.NoError(t, err)

	productID := uuid.New()
	require.NoError(t, inv.AddLine(finance.InvoiceLine{
		Label:         "Goods",
		AccountCode:   "4000",
		ProductID:     &productID,
		Quantity:      decimal.NewFromInt(1),
		PriceUnit:     decimal.NewFromInt(100),
		PriceSubtotal: decimal.NewFromInt(100),
		PriceTotal:    decimal.NewFromInt(100),
		Credit:        decimal.NewFromInt(100),
	}))
	require.NoError(t, inv.AddLine(finance.InvoiceLine{
		Label:       "Receivable",
		AccountCode: "1100",
		Debit:       decimal.NewFromInt(100),
	}))
	return inv
}

func TestGormTransactionScope_Execute(t *testing.T) {
	t.Run("commits all writes together", func(t *testing.T) {
		db := setupFinanceTestDB(t)
		scope := NewGormTransactionScope(db)
		ctx := context.Background()

		inv := newInvoiceForScopeTest(t, "INV-2001")
		companyID := inv.CompanyID

		err := scope.Execute(ctx, func(repos apppayment.TransactionalRepositories) error {
			return repos.InvoiceRepo().Save(ctx, inv)
		})
		require.NoError(t, err)

		found, err := NewGormInvoiceRepository(db).FindByNumber(ctx, companyID, "INV-2001")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, inv.ID, found.ID)
		assert.Len(t, found.Lines, 2)
	})

	t.Run("rolls back every write when the callback fails", func(t *testing.T) {
		db := setupFinanceTestDB(t)
		scope := NewGormTransactionScope(db)
		ctx := context.Background()

		inv := newInvoiceForScopeTest(t, "INV-2002")
		companyID := inv.CompanyID

		err := scope.Execute(ctx, func(repos apppayment.TransactionalRepositories) error {
			if saveErr := repos.InvoiceRepo().Save(ctx, inv); saveErr != nil {
				return saveErr
			}
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		found, err := NewGormInvoiceRepository(db).FindByNumber(ctx, companyID, "INV-2002")
		require.NoError(t, err)
		assert.Nil(t, found, "rolled back invoice must not be visible")
	})

	t.Run("rejects a stale writer inside the transaction", func(t *testing.T) {
		db := setupFinanceTestDB(t)
		scope := NewGormTransactionScope(db)
		ctx := context.Background()

		inv := newInvoiceForScopeTest(t, "INV-2003")
		require.NoError(t, inv.Post()) // version 2
		require.NoError(t, NewGormInvoiceRepository(db).Save(ctx, inv))

		// A writer that did not observe the posted version must be refused
		stale := *inv
		err := scope.Execute(ctx, func(repos apppayment.TransactionalRepositories) error {
			return repos.InvoiceRepo().SaveWithLock(ctx, &stale)
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "modified by another transaction")

		// The current version still goes through
		require.NoError(t, inv.ApplyPayment(uuid.New(), decimal.NewFromInt(40))) // version 3
		err = scope.Execute(ctx, func(repos apppayment.TransactionalRepositories) error {
			return repos.InvoiceRepo().SaveWithLock(ctx, inv)
		})
		require.NoError(t, err)

		found, err := NewGormInvoiceRepository(db).FindByID(ctx, inv.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.True(t, found.AmountResidual.Equal(decimal.NewFromInt(60)))
		assert.Equal(t, finance.PaymentStatePartial, found.PaymentState)
	})
}
