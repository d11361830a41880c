package finance

import (
	"context"
	"time"

	"github.com/erp/payments/internal/domain/shared"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	PartnerID    *uuid.UUID            // Filter by partner
	DocumentType *DocumentType         // Filter by document type
	Status       *InvoiceStatus        // Filter by status
	PaymentState *PaymentState         // Filter by payment state
	Currency     *valueobject.Currency // Filter by currency
	FromDate     *time.Time            // Filter by invoice date range start
	ToDate       *time.Time            // Filter by invoice date range end
	MinResidual  *decimal.Decimal      // Filter by minimum outstanding residual
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDForCompany finds an invoice by ID for a specific company
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Invoice, error)

	// FindByIDs finds invoices by a set of IDs for a company
	FindByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]Invoice, error)

	// FindByNumber finds an invoice by number for a company
	FindByNumber(ctx context.Context, companyID uuid.UUID, invoiceNumber string) (*Invoice, error)

	// FindAllForCompany finds all invoices for a company with filtering
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter InvoiceFilter) ([]Invoice, error)

	// FindOpenByPartner finds the posted, not fully paid documents of a
	// partner, ordered by due date then invoice date
	FindOpenByPartner(ctx context.Context, companyID, partnerID uuid.UUID, docType DocumentType) ([]Invoice, error)

	// Save creates or updates an invoice with its lines
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// CountForCompany counts invoices for a company with optional filters
	CountForCompany(ctx context.Context, companyID uuid.UUID, filter InvoiceFilter) (int64, error)

	// ExistsByNumber checks if an invoice number exists for a company
	ExistsByNumber(ctx context.Context, companyID uuid.UUID, invoiceNumber string) (bool, error)
}

// RegistrationFilter defines filtering options for registration queries
type RegistrationFilter struct {
	shared.Filter
	State    *RegistrationState // Filter by lifecycle state
	FromDate *time.Time         // Filter by payment date range start
	ToDate   *time.Time         // Filter by payment date range end
}

// RegistrationRepository defines the interface for payment registration persistence
type RegistrationRepository interface {
	// FindByID finds a registration with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentRegistration, error)

	// FindByIDForCompany finds a registration by ID for a specific company
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*PaymentRegistration, error)

	// FindAllForCompany finds all registrations for a company with filtering
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter RegistrationFilter) ([]PaymentRegistration, error)

	// Save creates or updates a registration with its lines
	Save(ctx context.Context, reg *PaymentRegistration) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, reg *PaymentRegistration) error

	// DeleteLines removes register lines no longer present on the aggregate
	DeleteLines(ctx context.Context, registrationID uuid.UUID, lineIDs []uuid.UUID) error

	// CountForCompany counts registrations for a company with optional filters
	CountForCompany(ctx context.Context, companyID uuid.UUID, filter RegistrationFilter) (int64, error)
}

// PaymentFilter defines filtering options for payment queries
type PaymentFilter struct {
	shared.Filter
	PartnerID     *uuid.UUID     // Filter by partner
	PaymentType   *PaymentType   // Filter by direction
	Status        *PaymentStatus // Filter by status
	DepositNumber *string        // Filter by batch deposit number
	FromDate      *time.Time     // Filter by payment date range start
	ToDate        *time.Time     // Filter by payment date range end
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	// FindByID finds a payment with its ledger lines
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByIDForCompany finds a payment by ID for a specific company
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Payment, error)

	// FindByRegistration finds the payments emitted by a registration
	FindByRegistration(ctx context.Context, companyID, registrationID uuid.UUID) ([]Payment, error)

	// FindAllForCompany finds all payments for a company with filtering
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter PaymentFilter) ([]Payment, error)

	// Save creates or updates a payment with its ledger lines
	Save(ctx context.Context, payment *Payment) error

	// CountForCompany counts payments for a company with optional filters
	CountForCompany(ctx context.Context, companyID uuid.UUID, filter PaymentFilter) (int64, error)

	// GeneratePaymentNumber generates a unique payment number for a company
	GeneratePaymentNumber(ctx context.Context, companyID uuid.UUID) (string, error)
}

// CreditNoteRepository defines the interface for credit note persistence
type CreditNoteRepository interface {
	// FindByID finds a credit note with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*CreditNote, error)

	// FindByIDForCompany finds a credit note by ID for a specific company
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*CreditNote, error)

	// FindBySourceInvoice finds the credit notes reversing an invoice
	FindBySourceInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) ([]CreditNote, error)

	// Save creates or updates a credit note with its lines, removing rows
	// discarded by a rewrite
	Save(ctx context.Context, note *CreditNote) error

	// GenerateNoteNumber generates a unique credit note number for a company
	GenerateNoteNumber(ctx context.Context, companyID uuid.UUID) (string, error)
}

// BatchDepositRepository defines the interface for batch deposit persistence
type BatchDepositRepository interface {
	// FindByID finds a batch deposit by ID
	FindByID(ctx context.Context, id uuid.UUID) (*BatchDeposit, error)

	// FindDraftByNumber finds the draft deposit carrying a deposit number,
	// nil when none exists
	FindDraftByNumber(ctx context.Context, companyID uuid.UUID, depositNumber string) (*BatchDeposit, error)

	// FindAllForCompany finds all deposits for a company
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]BatchDeposit, error)

	// Save creates or updates a batch deposit
	Save(ctx context.Context, deposit *BatchDeposit) error
}

// DiscountPolicyRepository defines the interface for discount policy persistence
type DiscountPolicyRepository interface {
	// FindByCompany finds the discount policy of a company, nil when unset
	FindByCompany(ctx context.Context, companyID uuid.UUID) (*DiscountPolicy, error)

	// Save creates or updates a discount policy
	Save(ctx context.Context, policy *DiscountPolicy) error
}
