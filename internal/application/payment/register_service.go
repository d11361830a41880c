package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/payments/internal/domain/finance"
	"github.com/erp/payments/internal/domain/shared"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/erp/payments/internal/infrastructure/logger"
	"github.com/erp/payments/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RegisterServiceConfig carries the accounting context the service posts
// against
type RegisterServiceConfig struct {
	// CompanyCurrency is the operating currency; registrations in any
	// other currency are refused
	CompanyCurrency valueobject.Currency
	// LiquidityAccounts maps journal codes to the bank account code their
	// payments book against
	LiquidityAccounts map[string]string
	// DefaultLiquidityAccount is used for journals without a mapping
	DefaultLiquidityAccount string
}

// liquidityAccountFor resolves the account code for a journal
func (c RegisterServiceConfig) liquidityAccountFor(journalCode string) string {
	if acc, ok := c.LiquidityAccounts[journalCode]; ok {
		return acc
	}
	return c.DefaultLiquidityAccount
}

// RegisterService drives the multi-invoice payment registration flow:
// draft assembly, line editing, validation and the posting transaction
// that emits grouped payments, write-off credit notes and batch deposit
// links in one shot.
type RegisterService struct {
	registrationRepo finance.RegistrationRepository
	invoiceRepo      finance.InvoiceRepository
	policyRepo       finance.DiscountPolicyRepository
	scope            TransactionScope
	config           RegisterServiceConfig
	logger           *zap.Logger
}

// NewRegisterService creates a new RegisterService
func NewRegisterService(
	registrationRepo finance.RegistrationRepository,
	invoiceRepo finance.InvoiceRepository,
	policyRepo finance.DiscountPolicyRepository,
	scope TransactionScope,
	config RegisterServiceConfig,
	logger *zap.Logger,
) *RegisterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegisterService{
		registrationRepo: registrationRepo,
		invoiceRepo:      invoiceRepo,
		policyRepo:       policyRepo,
		scope:            scope,
		config:           config,
		logger:           logger,
	}
}

// CreateRegistrationRequest represents a request to open a registration
// over a set of open documents
type CreateRegistrationRequest struct {
	CompanyID     uuid.UUID
	InvoiceIDs    []uuid.UUID
	PaymentDate   time.Time
	PaymentMethod finance.PaymentMethod
	JournalCode   string
	DepositNumber string
	CheckNumber   string
	GroupByKey    *bool // nil keeps the default (grouped)
}

// CreateRegistration opens a draft registration with one line per
// selected document. The selection must share a single destination
// account; mixing receivable and payable accounts cannot be settled by
// one entry.
func (s *RegisterService) CreateRegistration(ctx context.Context, req CreateRegistrationRequest) (*finance.PaymentRegistration, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_register", "create")
	defer span.End()

	if len(req.InvoiceIDs) == 0 {
		err := shared.NewDomainError(shared.ErrCodeEmptySelection, "No documents selected for payment")
		telemetry.RecordError(span, err)
		return nil, err
	}

	invoices, err := s.invoiceRepo.FindByIDs(ctx, req.CompanyID, req.InvoiceIDs)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	if len(invoices) != len(req.InvoiceIDs) {
		err := shared.NewDomainError(shared.ErrNotFound.Code, "One or more selected documents do not exist")
		telemetry.RecordError(span, err)
		return nil, err
	}

	account := invoices[0].DestinationAccount
	for i := range invoices {
		if invoices[i].DestinationAccount != account {
			err := shared.NewDomainError(shared.ErrCodeMixedDestinationAccount,
				"Selected documents must share a single destination account")
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	reg, err := finance.NewPaymentRegistration(req.CompanyID, req.PaymentDate, req.PaymentMethod, req.JournalCode)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := reg.SetNumbers(req.DepositNumber, req.CheckNumber); err != nil {
		return nil, err
	}
	if req.GroupByKey != nil {
		if err := reg.SetGroupByKey(*req.GroupByKey); err != nil {
			return nil, err
		}
	}
	for i := range invoices {
		if err := reg.AddLine(&invoices[i]); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	if err := s.registrationRepo.Save(ctx, reg); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save registration: %w", err)
	}

	telemetry.SetAttributes(span,
		"registration_id", reg.ID.String(),
		"line_count", len(reg.Lines),
	)
	s.logEvents(ctx, reg.GetDomainEvents())
	reg.ClearDomainEvents()

	return reg, nil
}

// GetRegistration loads a registration with its lines
func (s *RegisterService) GetRegistration(ctx context.Context, companyID, registrationID uuid.UUID) (*finance.PaymentRegistration, error) {
	reg, err := s.registrationRepo.FindByIDForCompany(ctx, companyID, registrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load registration: %w", err)
	}
	if reg == nil {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Registration not found")
	}
	return reg, nil
}

// ListRegistrations returns the registrations of a company matching the
// filter
func (s *RegisterService) ListRegistrations(ctx context.Context, companyID uuid.UUID, filter finance.RegistrationFilter) (*shared.Paginated[finance.PaymentRegistration], error) {
	regs, err := s.registrationRepo.FindAllForCompany(ctx, companyID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	total, err := s.registrationRepo.CountForCompany(ctx, companyID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count registrations: %w", err)
	}
	page := shared.NewPaginated(regs, total, filter.Page, filter.PageSize)
	return &page, nil
}

// UpdateLineRequest represents an edit to one register line
type UpdateLineRequest struct {
	CompanyID      uuid.UUID
	RegistrationID uuid.UUID
	LineID         uuid.UUID
	PaymentAmount  *decimal.Decimal
	Discount       *bool
}

// UpdateLine edits a line's payment amount or discount flag and
// recomputes its balance
func (s *RegisterService) UpdateLine(ctx context.Context, req UpdateLineRequest) (*finance.PaymentRegistration, error) {
	reg, err := s.GetRegistration(ctx, req.CompanyID, req.RegistrationID)
	if err != nil {
		return nil, err
	}
	if req.PaymentAmount != nil {
		if err := reg.UpdateLinePayment(req.LineID, *req.PaymentAmount); err != nil {
			return nil, err
		}
	}
	if req.Discount != nil {
		if err := reg.SetLineDiscount(req.LineID, *req.Discount); err != nil {
			return nil, err
		}
	}
	if err := s.registrationRepo.SaveWithLock(ctx, reg); err != nil {
		return nil, fmt.Errorf("failed to save registration: %w", err)
	}
	return reg, nil
}

// AutofillOpenInvoices appends every open posted document of a partner
// to the registration, ordered by due date then document date. Documents
// already selected are skipped.
func (s *RegisterService) AutofillOpenInvoices(ctx context.Context, companyID, registrationID, partnerID uuid.UUID, docType finance.DocumentType) (*finance.PaymentRegistration, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_register", "autofill")
	defer span.End()

	reg, err := s.GetRegistration(ctx, companyID, registrationID)
	if err != nil {
		return nil, err
	}

	open, err := s.invoiceRepo.FindOpenByPartner(ctx, companyID, partnerID, docType)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load open documents: %w", err)
	}

	added := 0
	for i := range open {
		if err := reg.AddLine(&open[i]); err != nil {
			de, ok := err.(*shared.DomainError)
			if ok && de.Code == shared.ErrAlreadyExists.Code {
				continue
			}
			telemetry.RecordError(span, err)
			return nil, err
		}
		added++
	}

	if added > 0 {
		if err := s.registrationRepo.SaveWithLock(ctx, reg); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to save registration: %w", err)
		}
	}
	telemetry.SetAttribute(span, "lines_added", added)

	return reg, nil
}

// FillResiduals sets every line's payment amount back to its full
// residual
func (s *RegisterService) FillResiduals(ctx context.Context, companyID, registrationID uuid.UUID) (*finance.PaymentRegistration, error) {
	reg, err := s.GetRegistration(ctx, companyID, registrationID)
	if err != nil {
		return nil, err
	}
	for i := range reg.Lines {
		if err := reg.UpdateLinePayment(reg.Lines[i].ID, reg.Lines[i].AmountResidual); err != nil {
			return nil, err
		}
	}
	if err := s.registrationRepo.SaveWithLock(ctx, reg); err != nil {
		return nil, fmt.Errorf("failed to save registration: %w", err)
	}
	return reg, nil
}

// Validate runs the ordered pre-posting checks without side effects and,
// on success, moves the registration to validated
func (s *RegisterService) Validate(ctx context.Context, companyID, registrationID uuid.UUID) (*finance.PaymentRegistration, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_register", "validate")
	defer span.End()

	reg, err := s.GetRegistration(ctx, companyID, registrationID)
	if err != nil {
		return nil, err
	}

	if err := s.runChecks(ctx, reg); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := reg.MarkValidated(); err != nil {
		return nil, err
	}
	if err := s.registrationRepo.SaveWithLock(ctx, reg); err != nil {
		return nil, fmt.Errorf("failed to save registration: %w", err)
	}
	s.logEvents(ctx, reg.GetDomainEvents())
	reg.ClearDomainEvents()

	return reg, nil
}

func (s *RegisterService) runChecks(ctx context.Context, reg *finance.PaymentRegistration) error {
	policy, err := s.policyRepo.FindByCompany(ctx, reg.CompanyID)
	if err != nil {
		return fmt.Errorf("failed to load discount policy: %w", err)
	}
	validator := finance.NewRegistrationValidator(policy, s.config.CompanyCurrency)
	return validator.Validate(reg)
}

// PostResult represents the outcome of posting a registration
type PostResult struct {
	RegistrationID uuid.UUID   `json:"registration_id"`
	PaymentIDs     []uuid.UUID `json:"payment_ids"`
	CreditNoteIDs  []uuid.UUID `json:"credit_note_ids"`
	BatchDepositID *uuid.UUID  `json:"batch_deposit_id,omitempty"`
	Communication  string      `json:"communication"`
}

// Post validates and posts a registration in one database transaction:
// prepayments are stamped on the documents, one payment is created per
// group that moves money, discount balances are written off through
// rewritten credit notes, and payments join the batch deposit. Any failure rolls the whole
// transaction back and the registration stays in draft.
func (s *RegisterService) Post(ctx context.Context, companyID, registrationID uuid.UUID) (*PostResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment_register", "post")
	defer span.End()
	telemetry.SetAttribute(span, "registration_id", registrationID.String())

	var result *PostResult
	var events []shared.DomainEvent

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		reg, err := repos.RegistrationRepo().FindByIDForCompany(ctx, companyID, registrationID)
		if err != nil {
			return fmt.Errorf("failed to load registration: %w", err)
		}
		if reg == nil {
			return shared.NewDomainError(shared.ErrNotFound.Code, "Registration not found")
		}
		if reg.State.IsTerminal() {
			return shared.NewDomainError("INVALID_STATE", "Registration is already posted")
		}

		// The discount policy may have changed since validation, so the
		// checks run again regardless of state.
		if err := s.runChecks(ctx, reg); err != nil {
			return err
		}
		if reg.State == finance.RegistrationStateDraft {
			if err := reg.MarkValidated(); err != nil {
				return err
			}
		}

		retained := reg.RetainedLines()
		if len(retained) == 0 {
			return shared.NewDomainError(shared.ErrCodeEmptySelection, "No retained lines to pay")
		}

		invoiceIDs := make([]uuid.UUID, 0, len(retained))
		for _, l := range retained {
			invoiceIDs = append(invoiceIDs, l.InvoiceID)
		}
		loaded, err := repos.InvoiceRepo().FindByIDs(ctx, companyID, invoiceIDs)
		if err != nil {
			return fmt.Errorf("failed to load invoices: %w", err)
		}
		if len(loaded) != len(invoiceIDs) {
			return shared.NewDomainError(shared.ErrNotFound.Code, "A selected document no longer exists")
		}
		invoicesByID := make(map[uuid.UUID]*finance.Invoice, len(loaded))
		for i := range loaded {
			invoicesByID[loaded[i].ID] = &loaded[i]
		}

		for _, l := range retained {
			inv := invoicesByID[l.InvoiceID]
			if err := inv.SetPrepayment(l.PaymentAmount); err != nil {
				return err
			}
		}

		groups := finance.GroupLines(retained, reg.GroupByKey)

		var deposit *finance.BatchDeposit
		if reg.PaymentMethod == finance.PaymentMethodBatchDeposit && reg.DepositNumber != "" {
			deposit, err = repos.BatchDepositRepo().FindDraftByNumber(ctx, companyID, reg.DepositNumber)
			if err != nil {
				return fmt.Errorf("failed to look up batch deposit: %w", err)
			}
			if deposit == nil {
				deposit, err = finance.NewBatchDeposit(companyID, reg.DepositNumber, reg.JournalCode, reg.PaymentDate)
				if err != nil {
					return err
				}
			}
		}

		paymentIDs := make([]uuid.UUID, 0, len(groups))
		creditNoteIDs := make([]uuid.UUID, 0)

		for _, group := range groups {
			values, err := finance.BuildPaymentValues(group, reg)
			if err != nil {
				return err
			}

			// A group where every line is a full write-off moves no
			// money: it settles through credit notes alone and emits no
			// payment.
			if values.Amount.IsZero() {
				for _, l := range group.Lines {
					if !l.Discount || !l.Balance.GreaterThan(decimal.Zero) {
						continue
					}
					noteID, err := s.writeOffBalance(ctx, repos, invoicesByID[l.InvoiceID], l.Balance)
					if err != nil {
						return err
					}
					creditNoteIDs = append(creditNoteIDs, noteID)
				}
				continue
			}

			number, err := repos.PaymentRepo().GeneratePaymentNumber(ctx, companyID)
			if err != nil {
				return fmt.Errorf("failed to generate payment number: %w", err)
			}
			p, err := finance.NewPayment(companyID, number, values)
			if err != nil {
				return err
			}
			if err := p.SetLiquidityAccount(s.config.liquidityAccountFor(reg.JournalCode)); err != nil {
				return err
			}

			groupInvoices := make([]*finance.Invoice, 0, len(group.Lines))
			for _, l := range group.Lines {
				groupInvoices = append(groupInvoices, invoicesByID[l.InvoiceID])
			}
			if err := p.BuildLedgerLines(groupInvoices); err != nil {
				return err
			}

			for _, l := range group.Lines {
				inv := invoicesByID[l.InvoiceID]
				if l.PaymentAmount.GreaterThan(decimal.Zero) {
					if err := inv.ApplyPayment(p.ID, l.PaymentAmount); err != nil {
						return err
					}
				}
				if l.Discount && l.Balance.GreaterThan(decimal.Zero) {
					noteID, err := s.writeOffBalance(ctx, repos, inv, l.Balance)
					if err != nil {
						return err
					}
					creditNoteIDs = append(creditNoteIDs, noteID)
				}
			}

			if deposit != nil {
				if !deposit.CanAcceptPayments() {
					return shared.NewDomainError("INVALID_STATE",
						fmt.Sprintf("Batch deposit %s no longer accepts payments", deposit.DepositNumber))
				}
				if err := deposit.AddPayment(p.Amount); err != nil {
					return err
				}
				if err := p.AttachToBatchDeposit(deposit.ID); err != nil {
					return err
				}
			}

			if err := p.Post(); err != nil {
				return err
			}
			if err := repos.PaymentRepo().Save(ctx, p); err != nil {
				return fmt.Errorf("failed to save payment: %w", err)
			}
			paymentIDs = append(paymentIDs, p.ID)
			events = append(events, p.GetDomainEvents()...)
			p.ClearDomainEvents()
		}

		for i := range loaded {
			if err := repos.InvoiceRepo().SaveWithLock(ctx, &loaded[i]); err != nil {
				return fmt.Errorf("failed to save invoice: %w", err)
			}
			events = append(events, loaded[i].GetDomainEvents()...)
			loaded[i].ClearDomainEvents()
		}

		var depositID *uuid.UUID
		if deposit != nil {
			if err := repos.BatchDepositRepo().Save(ctx, deposit); err != nil {
				return fmt.Errorf("failed to save batch deposit: %w", err)
			}
			depositID = &deposit.ID
			events = append(events, deposit.GetDomainEvents()...)
			deposit.ClearDomainEvents()
		}

		communication := finance.JoinReferences(retained)
		if err := reg.MarkPosted(communication, paymentIDs); err != nil {
			return err
		}
		if err := repos.RegistrationRepo().SaveWithLock(ctx, reg); err != nil {
			return fmt.Errorf("failed to save registration: %w", err)
		}
		events = append(events, reg.GetDomainEvents()...)
		reg.ClearDomainEvents()

		result = &PostResult{
			RegistrationID: reg.ID,
			PaymentIDs:     paymentIDs,
			CreditNoteIDs:  creditNoteIDs,
			BatchDepositID: depositID,
			Communication:  communication,
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logEvents(ctx, events)
	telemetry.SetAttribute(span, "payments_created", len(result.PaymentIDs))

	return result, nil
}

// writeOffBalance settles a discount line's unpaid balance: a reversal of
// the document is generated, rewritten down to the balance amount, and
// the residual is cleared
func (s *RegisterService) writeOffBalance(ctx context.Context, repos TransactionalRepositories, inv *finance.Invoice, balance decimal.Decimal) (uuid.UUID, error) {
	number, err := repos.CreditNoteRepo().GenerateNoteNumber(ctx, inv.CompanyID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to generate credit note number: %w", err)
	}
	note, err := finance.NewCreditNoteFromInvoice(inv, number, time.Now())
	if err != nil {
		return uuid.Nil, err
	}
	if err := note.RewriteForWriteOff(balance); err != nil {
		return uuid.Nil, err
	}
	if err := inv.WriteOffResidual(note.ID, balance); err != nil {
		return uuid.Nil, err
	}
	if err := repos.CreditNoteRepo().Save(ctx, note); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save credit note: %w", err)
	}
	s.logEvents(ctx, note.GetDomainEvents())
	note.ClearDomainEvents()
	return note.ID, nil
}

// logEvents writes the aggregates' domain events to the structured log.
// Trace and request correlation fields come from the context.
func (s *RegisterService) logEvents(ctx context.Context, events []shared.DomainEvent) {
	log := logger.WithLogger(ctx, s.logger)
	for _, e := range events {
		log.Info("domain event",
			zap.String("event_type", e.EventType()),
			zap.String("aggregate_type", e.AggregateType()),
			zap.String("aggregate_id", e.AggregateID().String()),
			zap.String("company_id", e.CompanyID().String()),
		)
	}
}
