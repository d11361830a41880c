// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the payments system.
// It tracks registration activity, emitted payments, write-offs, and the
// health of the open receivables book.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	registrationPostedTotal *Counter
	paymentEmittedTotal     *Counter
	paymentAmountTotal      *Counter
	writeOffAmountTotal     *Counter

	// Gauge metrics (point-in-time values)
	openResidualAmount    *FloatGauge
	draftRegistrationGage *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	financeProvider FinanceMetricsProvider
}

// FinanceMetricsProvider provides ledger data for periodic metrics
// collection. This interface allows the telemetry layer to query document
// state without depending on the finance domain directly.
type FinanceMetricsProvider interface {
	// GetOpenResidualByCurrency returns the outstanding residual per currency for a company
	GetOpenResidualByCurrency(ctx context.Context, companyID uuid.UUID) (map[string]float64, error)

	// GetDraftRegistrationCount returns the number of registrations still in draft for a company
	GetDraftRegistrationCount(ctx context.Context, companyID uuid.UUID) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	FinanceProvider FinanceMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		financeProvider: cfg.FinanceProvider,
	}

	var err error

	bm.registrationPostedTotal, err = NewCounter(
		cfg.Meter,
		"payments_registration_posted_total",
		"Total number of payment registrations posted",
		"{registrations}",
	)
	if err != nil {
		return nil, err
	}

	bm.paymentEmittedTotal, err = NewCounter(
		cfg.Meter,
		"payments_payment_emitted_total",
		"Total number of grouped payments emitted",
		"{payments}",
	)
	if err != nil {
		return nil, err
	}

	bm.paymentAmountTotal, err = NewCounter(
		cfg.Meter,
		"payments_payment_amount_total",
		"Total emitted payment amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	bm.writeOffAmountTotal, err = NewCounter(
		cfg.Meter,
		"payments_write_off_amount_total",
		"Total discount write-off amount in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	bm.openResidualAmount, err = NewFloatGauge(
		cfg.Meter,
		"payments_open_residual_amount",
		"Outstanding residual across open documents",
		"{currency_units}",
	)
	if err != nil {
		return nil, err
	}

	bm.draftRegistrationGage, err = NewGauge(
		cfg.Meter,
		"payments_draft_registration_count",
		"Number of registrations still in draft",
		"{registrations}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Registration Metrics
// =============================================================================

// RecordRegistrationPosted records a posted registration.
// This should be called from the application layer after the posting
// transaction commits.
func (bm *BusinessMetrics) RecordRegistrationPosted(ctx context.Context, companyID uuid.UUID, method string) {
	bm.registrationPostedTotal.Inc(ctx,
		AttrCompanyID.String(companyID.String()),
		AttrPaymentMethod.String(method),
	)
}

// RecordPaymentEmitted records one grouped payment and its amount.
// Amount should be in the document currency; it is converted to cents.
func (bm *BusinessMetrics) RecordPaymentEmitted(ctx context.Context, companyID uuid.UUID, currency string, amount decimal.Decimal) {
	bm.paymentEmittedTotal.Inc(ctx,
		AttrCompanyID.String(companyID.String()),
		AttrCurrency.String(currency),
	)

	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	bm.paymentAmountTotal.Add(ctx, amountCents,
		AttrCompanyID.String(companyID.String()),
		AttrCurrency.String(currency),
	)
}

// RecordWriteOff records the discount amount settled through a credit note.
func (bm *BusinessMetrics) RecordWriteOff(ctx context.Context, companyID uuid.UUID, currency string, amount decimal.Decimal) {
	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	bm.writeOffAmountTotal.Add(ctx, amountCents,
		AttrCompanyID.String(companyID.String()),
		AttrCurrency.String(currency),
	)
}

// =============================================================================
// Ledger Health Metrics
// =============================================================================

// RecordOpenResidual records the outstanding residual for a company and currency.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordOpenResidual(ctx context.Context, companyID uuid.UUID, currency string, amount float64) {
	bm.openResidualAmount.Record(ctx, amount,
		AttrCompanyID.String(companyID.String()),
		AttrCurrency.String(currency),
	)
}

// RecordDraftRegistrationCount records the number of draft registrations.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordDraftRegistrationCount(ctx context.Context, companyID uuid.UUID, count int64) {
	bm.draftRegistrationGage.Record(ctx, count,
		AttrCompanyID.String(companyID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// CompanyProvider provides company IDs for periodic metrics collection.
type CompanyProvider interface {
	GetActiveCompanyIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects ledger metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, companyProvider CompanyProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, companyProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, companyProvider CompanyProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectLedgerMetrics(ctx, companyProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectLedgerMetrics(ctx, companyProvider)
		}
	}
}

// collectLedgerMetrics collects ledger gauge metrics for all companies.
func (bm *BusinessMetrics) collectLedgerMetrics(ctx context.Context, companyProvider CompanyProvider) {
	if bm.financeProvider == nil {
		bm.logger.Debug("No finance provider configured, skipping ledger metrics collection")
		return
	}

	companyIDs, err := companyProvider.GetActiveCompanyIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get company IDs for metrics collection", zap.Error(err))
		return
	}

	for _, companyID := range companyIDs {
		bm.collectCompanyLedgerMetrics(ctx, companyID)
	}
}

// collectCompanyLedgerMetrics collects ledger metrics for a single company.
func (bm *BusinessMetrics) collectCompanyLedgerMetrics(ctx context.Context, companyID uuid.UUID) {
	residualByCurrency, err := bm.financeProvider.GetOpenResidualByCurrency(ctx, companyID)
	if err != nil {
		bm.logger.Warn("Failed to get open residual for company",
			zap.String("company_id", companyID.String()),
			zap.Error(err),
		)
	} else {
		for currency, amount := range residualByCurrency {
			bm.RecordOpenResidual(ctx, companyID, currency, amount)
		}
	}

	draftCount, err := bm.financeProvider.GetDraftRegistrationCount(ctx, companyID)
	if err != nil {
		bm.logger.Warn("Failed to get draft registration count for company",
			zap.String("company_id", companyID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordDraftRegistrationCount(ctx, companyID, draftCount)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
