package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/payments/internal/domain/finance"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCreditNoteRepository implements finance.CreditNoteRepository using GORM
type GormCreditNoteRepository struct {
	db *gorm.DB
}

// NewGormCreditNoteRepository creates a new GormCreditNoteRepository
func NewGormCreditNoteRepository(db *gorm.DB) *GormCreditNoteRepository {
	return &GormCreditNoteRepository{db: db}
}

// FindByID finds a credit note with its lines
func (r *GormCreditNoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.CreditNote, error) {
	var note finance.CreditNote
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&note, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}

// FindByIDForCompany finds a credit note by ID within a company
func (r *GormCreditNoteRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*finance.CreditNote, error) {
	var note finance.CreditNote
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("company_id = ? AND id = ?", companyID, id).
		First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}

// FindBySourceInvoice finds the credit notes reversing a document
func (r *GormCreditNoteRepository) FindBySourceInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) ([]finance.CreditNote, error) {
	var notes []finance.CreditNote
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("company_id = ? AND source_invoice_id = ?", companyID, invoiceID).
		Order("note_date ASC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

// Save creates or updates a credit note with its lines, removing rows
// the rewrite discarded
func (r *GormCreditNoteRepository) Save(ctx context.Context, note *finance.CreditNote) error {
	if err := r.db.WithContext(ctx).Save(note).Error; err != nil {
		return err
	}
	removed := note.RemovedLineIDs()
	if len(removed) > 0 {
		if err := r.db.WithContext(ctx).
			Where("credit_note_id = ? AND id IN ?", note.ID, removed).
			Delete(&finance.CreditNoteLine{}).Error; err != nil {
			return err
		}
	}
	return nil
}

// GenerateNoteNumber generates the next sequential credit note number
// for a company, in the form RINV-000042
func (r *GormCreditNoteRepository) GenerateNoteNumber(ctx context.Context, companyID uuid.UUID) (string, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&finance.CreditNote{}).
		Where("company_id = ?", companyID).
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("RINV-%06d", count+1), nil
}
