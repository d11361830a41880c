package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/payments/internal/domain/finance"
	"github.com/erp/payments/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements finance.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Invoice, error) {
	var invoice finance.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByIDForCompany finds an invoice by ID within a company
func (r *GormInvoiceRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*finance.Invoice, error) {
	var invoice finance.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("company_id = ? AND id = ?", companyID, id).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByIDs finds invoices by a set of IDs for a company
func (r *GormInvoiceRepository) FindByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]finance.Invoice, error) {
	if len(ids) == 0 {
		return []finance.Invoice{}, nil
	}
	var invoices []finance.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("company_id = ? AND id IN ?", companyID, ids).
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindByNumber finds an invoice by number for a company
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, companyID uuid.UUID, invoiceNumber string) (*finance.Invoice, error) {
	var invoice finance.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("company_id = ? AND invoice_number = ?", companyID, invoiceNumber).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// FindAllForCompany finds all invoices for a company with filtering
func (r *GormInvoiceRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter finance.InvoiceFilter) ([]finance.Invoice, error) {
	var invoices []finance.Invoice
	query := r.db.WithContext(ctx).Model(&finance.Invoice{}).
		Preload("Lines").
		Where("company_id = ?", companyID)
	query = r.applyFilter(query, filter)
	query = r.applyPagination(query, filter)

	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindOpenByPartner finds the posted, not fully paid documents of a
// partner, ordered by due date then invoice date
func (r *GormInvoiceRepository) FindOpenByPartner(ctx context.Context, companyID, partnerID uuid.UUID, docType finance.DocumentType) ([]finance.Invoice, error) {
	var invoices []finance.Invoice
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("company_id = ? AND commercial_partner_id = ? AND document_type = ?", companyID, partnerID, docType).
		Where("status = ?", finance.InvoiceStatusPosted).
		Where("payment_state IN ?", []finance.PaymentState{finance.PaymentStateNotPaid, finance.PaymentStatePartial}).
		Order("due_date ASC, invoice_date ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Save creates or updates an invoice with its lines
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *finance.Invoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *finance.Invoice) error {
	result := r.db.WithContext(ctx).
		Model(invoice).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
		Updates(invoice)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("OPTIMISTIC_LOCK_ERROR", "The record has been modified by another transaction")
	}
	// lines are replaced wholesale; the header update above does not touch them
	if len(invoice.Lines) > 0 {
		if err := r.db.WithContext(ctx).Save(&invoice.Lines).Error; err != nil {
			return err
		}
	}
	return nil
}

// CountForCompany counts invoices for a company with optional filters
func (r *GormInvoiceRepository) CountForCompany(ctx context.Context, companyID uuid.UUID, filter finance.InvoiceFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&finance.Invoice{}).
		Where("company_id = ?", companyID)
	query = r.applyFilter(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByNumber checks if an invoice number exists for a company
func (r *GormInvoiceRepository) ExistsByNumber(ctx context.Context, companyID uuid.UUID, invoiceNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&finance.Invoice{}).
		Where("company_id = ? AND invoice_number = ?", companyID, invoiceNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter finance.InvoiceFilter) *gorm.DB {
	if filter.PartnerID != nil {
		query = query.Where("commercial_partner_id = ?", *filter.PartnerID)
	}
	if filter.DocumentType != nil {
		query = query.Where("document_type = ?", *filter.DocumentType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PaymentState != nil {
		query = query.Where("payment_state = ?", *filter.PaymentState)
	}
	if filter.Currency != nil {
		query = query.Where("currency = ?", *filter.Currency)
	}
	if filter.FromDate != nil {
		query = query.Where("invoice_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("invoice_date <= ?", *filter.ToDate)
	}
	if filter.MinResidual != nil {
		query = query.Where("amount_residual >= ?", *filter.MinResidual)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("invoice_number ILIKE ? OR reference ILIKE ?", pattern, pattern)
	}
	return query
}

func (r *GormInvoiceRepository) applyPagination(query *gorm.DB, filter finance.InvoiceFilter) *gorm.DB {
	orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "invoice_date")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))

	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	return query
}
