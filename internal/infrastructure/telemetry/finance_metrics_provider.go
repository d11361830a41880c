// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFinanceMetricsProvider implements FinanceMetricsProvider using GORM.
// It queries the invoices and payment_registrations tables directly for
// aggregated metrics.
type GormFinanceMetricsProvider struct {
	db *gorm.DB
}

// NewGormFinanceMetricsProvider creates a new provider.
func NewGormFinanceMetricsProvider(db *gorm.DB) *GormFinanceMetricsProvider {
	return &GormFinanceMetricsProvider{db: db}
}

// GetOpenResidualByCurrency returns the outstanding residual per currency
// across posted, not fully paid documents for a company.
func (p *GormFinanceMetricsProvider) GetOpenResidualByCurrency(ctx context.Context, companyID uuid.UUID) (map[string]float64, error) {
	var results []struct {
		Currency string
		Total    float64
	}

	err := p.db.WithContext(ctx).
		Table("invoices").
		Select("currency, COALESCE(SUM(amount_residual), 0) as total").
		Where("company_id = ?", companyID).
		Where("status = ?", "POSTED").
		Where("payment_state IN ?", []string{"NOT_PAID", "PARTIAL"}).
		Group("currency").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	residuals := make(map[string]float64, len(results))
	for _, r := range results {
		residuals[r.Currency] = r.Total
	}
	return residuals, nil
}

// GetDraftRegistrationCount returns the number of registrations still in
// draft for a company.
func (p *GormFinanceMetricsProvider) GetDraftRegistrationCount(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("payment_registrations").
		Where("company_id = ?", companyID).
		Where("state = ?", "DRAFT").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetActiveCompanyIDs returns the companies with at least one posted
// document, used to scope periodic gauge collection.
func (p *GormFinanceMetricsProvider) GetActiveCompanyIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("invoices").
		Distinct("company_id").
		Where("status = ?", "POSTED").
		Pluck("company_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Ensure GormFinanceMetricsProvider implements both provider interfaces
var (
	_ FinanceMetricsProvider = (*GormFinanceMetricsProvider)(nil)
	_ CompanyProvider        = (*GormFinanceMetricsProvider)(nil)
)
