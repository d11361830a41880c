package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/payments/internal/domain/finance"
	"github.com/erp/payments/internal/domain/shared"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/erp/payments/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceService manages the ledger documents payments run against
type InvoiceService struct {
	invoiceRepo finance.InvoiceRepository
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(invoiceRepo finance.InvoiceRepository) *InvoiceService {
	return &InvoiceService{invoiceRepo: invoiceRepo}
}

// InvoiceLineInput represents one line of an invoice being created
type InvoiceLineInput struct {
	Label          string
	AccountCode    string
	ProductID      *uuid.UUID
	ProductName    string
	Quantity       decimal.Decimal
	PriceUnit      decimal.Decimal
	PriceSubtotal  decimal.Decimal
	PriceTotal     decimal.Decimal
	TaxBaseAmount  decimal.Decimal
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	AmountCurrency decimal.Decimal
	AmountResidual decimal.Decimal
	DateMaturity   *time.Time
}

// CreateInvoiceRequest represents a request to create a ledger document
type CreateInvoiceRequest struct {
	CompanyID           uuid.UUID
	InvoiceNumber       string
	DocumentType        finance.DocumentType
	PartnerID           uuid.UUID
	PartnerName         string
	CommercialPartnerID uuid.UUID
	BankAccountID       *uuid.UUID
	Currency            valueobject.Currency
	DestinationAccount  string
	InvoiceDate         time.Time
	DueDate             *time.Time
	Reference           string
	PaymentReference    string
	Lines               []InvoiceLineInput
}

// CreateInvoice creates a draft invoice or bill with its lines
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*finance.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer span.End()

	exists, err := s.invoiceRepo.ExistsByNumber(ctx, req.CompanyID, req.InvoiceNumber)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to check invoice number: %w", err)
	}
	if exists {
		err := shared.NewDomainError(shared.ErrAlreadyExists.Code,
			fmt.Sprintf("Invoice number %s already exists", req.InvoiceNumber))
		telemetry.RecordError(span, err)
		return nil, err
	}

	inv, err := finance.NewInvoice(
		req.CompanyID,
		req.InvoiceNumber,
		req.DocumentType,
		req.PartnerID,
		req.PartnerName,
		req.CommercialPartnerID,
		req.Currency,
		req.DestinationAccount,
		req.InvoiceDate,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	inv.BankAccountID = req.BankAccountID
	inv.DueDate = req.DueDate
	inv.Reference = req.Reference
	inv.PaymentReference = req.PaymentReference

	for _, line := range req.Lines {
		if err := inv.AddLine(finance.InvoiceLine{
			Label:          line.Label,
			AccountCode:    line.AccountCode,
			ProductID:      line.ProductID,
			ProductName:    line.ProductName,
			Quantity:       line.Quantity,
			PriceUnit:      line.PriceUnit,
			PriceSubtotal:  line.PriceSubtotal,
			PriceTotal:     line.PriceTotal,
			TaxBaseAmount:  line.TaxBaseAmount,
			Debit:          line.Debit,
			Credit:         line.Credit,
			AmountCurrency: line.AmountCurrency,
			AmountResidual: line.AmountResidual,
			DateMaturity:   line.DateMaturity,
		}); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	if err := s.invoiceRepo.Save(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}
	telemetry.SetAttribute(span, "invoice_id", inv.ID.String())

	return inv, nil
}

// PostInvoice posts a draft invoice, freezing its totals
func (s *InvoiceService) PostInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (*finance.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "post")
	defer span.End()

	inv, err := s.getInvoice(ctx, companyID, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := inv.Post(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}
	return inv, nil
}

// GetInvoice loads an invoice with its lines
func (s *InvoiceService) GetInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (*finance.Invoice, error) {
	return s.getInvoice(ctx, companyID, invoiceID)
}

func (s *InvoiceService) getInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (*finance.Invoice, error) {
	inv, err := s.invoiceRepo.FindByIDForCompany(ctx, companyID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if inv == nil {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Invoice not found")
	}
	return inv, nil
}

// ListInvoices returns the invoices of a company matching the filter
func (s *InvoiceService) ListInvoices(ctx context.Context, companyID uuid.UUID, filter finance.InvoiceFilter) (*shared.Paginated[finance.Invoice], error) {
	invoices, err := s.invoiceRepo.FindAllForCompany(ctx, companyID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	total, err := s.invoiceRepo.CountForCompany(ctx, companyID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}
	page := shared.NewPaginated(invoices, total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListOpenInvoices returns a partner's open posted documents ordered by
// due date then document date
func (s *InvoiceService) ListOpenInvoices(ctx context.Context, companyID, partnerID uuid.UUID, docType finance.DocumentType) ([]finance.Invoice, error) {
	open, err := s.invoiceRepo.FindOpenByPartner(ctx, companyID, partnerID, docType)
	if err != nil {
		return nil, fmt.Errorf("failed to list open documents: %w", err)
	}
	return open, nil
}
