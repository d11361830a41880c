package payment

import (
	"context"

	"github.com/erp/payments/internal/domain/finance"
)

// TransactionalRepositories gives the posting flow access to every
// repository it touches, all scoped to one database transaction
type TransactionalRepositories interface {
	// InvoiceRepo returns the invoice repository scoped to the transaction
	InvoiceRepo() finance.InvoiceRepository

	// RegistrationRepo returns the registration repository scoped to the transaction
	RegistrationRepo() finance.RegistrationRepository

	// PaymentRepo returns the payment repository scoped to the transaction
	PaymentRepo() finance.PaymentRepository

	// CreditNoteRepo returns the credit note repository scoped to the transaction
	CreditNoteRepo() finance.CreditNoteRepository

	// BatchDepositRepo returns the batch deposit repository scoped to the transaction
	BatchDepositRepo() finance.BatchDepositRepository
}

// TransactionScope executes a function atomically: every repository write
// inside fn commits together or not at all
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}
