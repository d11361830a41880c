package persistence

import (
	"context"

	apppayment "github.com/erp/payments/internal/application/payment"
	"github.com/erp/payments/internal/domain/finance"
	"gorm.io/gorm"
)

// GormTransactionScope implements the posting transaction boundary using
// GORM transactions. Every repository handed to the callback shares one
// database transaction; any error rolls the whole posting back.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apppayment.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides the posting repositories scoped
// to one transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// InvoiceRepo returns the invoice repository scoped to the current transaction
func (r *gormTransactionalRepositories) InvoiceRepo() finance.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

// RegistrationRepo returns the registration repository scoped to the current transaction
func (r *gormTransactionalRepositories) RegistrationRepo() finance.RegistrationRepository {
	return NewGormRegistrationRepository(r.tx)
}

// PaymentRepo returns the payment repository scoped to the current transaction
func (r *gormTransactionalRepositories) PaymentRepo() finance.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

// CreditNoteRepo returns the credit note repository scoped to the current transaction
func (r *gormTransactionalRepositories) CreditNoteRepo() finance.CreditNoteRepository {
	return NewGormCreditNoteRepository(r.tx)
}

// BatchDepositRepo returns the batch deposit repository scoped to the current transaction
func (r *gormTransactionalRepositories) BatchDepositRepo() finance.BatchDepositRepository {
	return NewGormBatchDepositRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ apppayment.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ apppayment.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
