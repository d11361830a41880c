package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	paymentapp "github.com/erp/payments/internal/application/payment"
	"github.com/erp/payments/internal/domain/finance"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/erp/payments/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockInvoiceRepository implements finance.InvoiceRepository for testing
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*finance.Invoice, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByIDs(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) ([]finance.Invoice, error) {
	args := m.Called(ctx, companyID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]finance.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByNumber(ctx context.Context, companyID uuid.UUID, invoiceNumber string) (*finance.Invoice, error) {
	args := m.Called(ctx, companyID, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter finance.InvoiceFilter) ([]finance.Invoice, error) {
	args := m.Called(ctx, companyID, filter)
	return args.Get(0).([]finance.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindOpenByPartner(ctx context.Context, companyID, partnerID uuid.UUID, docType finance.DocumentType) ([]finance.Invoice, error) {
	args := m.Called(ctx, companyID, partnerID, docType)
	return args.Get(0).([]finance.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *finance.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveWithLock(ctx context.Context, invoice *finance.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) CountForCompany(ctx context.Context, companyID uuid.UUID, filter finance.InvoiceFilter) (int64, error) {
	args := m.Called(ctx, companyID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) ExistsByNumber(ctx context.Context, companyID uuid.UUID, invoiceNumber string) (bool, error) {
	args := m.Called(ctx, companyID, invoiceNumber)
	return args.Bool(0), args.Error(1)
}

// MockRegistrationRepository implements finance.RegistrationRepository for testing
type MockRegistrationRepository struct {
	mock.Mock
}

func (m *MockRegistrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.PaymentRegistration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.PaymentRegistration), args.Error(1)
}

func (m *MockRegistrationRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*finance.PaymentRegistration, error) {
	args := m.Called(ctx, companyID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.PaymentRegistration), args.Error(1)
}

func (m *MockRegistrationRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter finance.RegistrationFilter) ([]finance.PaymentRegistration, error) {
	args := m.Called(ctx, companyID, filter)
	return args.Get(0).([]finance.PaymentRegistration), args.Error(1)
}

func (m *MockRegistrationRepository) Save(ctx context.Context, reg *finance.PaymentRegistration) error {
	args := m.Called(ctx, reg)
	return args.Error(0)
}

func (m *MockRegistrationRepository) SaveWithLock(ctx context.Context, reg *finance.PaymentRegistration) error {
	args := m.Called(ctx, reg)
	return args.Error(0)
}

func (m *MockRegistrationRepository) DeleteLines(ctx context.Context, registrationID uuid.UUID, lineIDs []uuid.UUID) error {
	args := m.Called(ctx, registrationID, lineIDs)
	return args.Error(0)
}

func (m *MockRegistrationRepository) CountForCompany(ctx context.Context, companyID uuid.UUID, filter finance.RegistrationFilter) (int64, error) {
	args := m.Called(ctx, companyID, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockDiscountPolicyRepository implements finance.DiscountPolicyRepository for testing
type MockDiscountPolicyRepository struct {
	mock.Mock
}

func (m *MockDiscountPolicyRepository) FindByCompany(ctx context.Context, companyID uuid.UUID) (*finance.DiscountPolicy, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.DiscountPolicy), args.Error(1)
}

func (m *MockDiscountPolicyRepository) Save(ctx context.Context, policy *finance.DiscountPolicy) error {
	args := m.Called(ctx, policy)
	return args.Error(0)
}

// noTxScope runs the transactional function directly against the mocks
type noTxScope struct {
	invoices      *MockInvoiceRepository
	registrations *MockRegistrationRepository
}

func (s *noTxScope) InvoiceRepo() finance.InvoiceRepository           { return s.invoices }
func (s *noTxScope) RegistrationRepo() finance.RegistrationRepository { return s.registrations }
func (s *noTxScope) PaymentRepo() finance.PaymentRepository           { return nil }
func (s *noTxScope) CreditNoteRepo() finance.CreditNoteRepository     { return nil }
func (s *noTxScope) BatchDepositRepo() finance.BatchDepositRepository { return nil }

func (s *noTxScope) Execute(ctx context.Context, fn func(repos paymentapp.TransactionalRepositories) error) error {
	return fn(s)
}

type registrationFixture struct {
	invoices      *MockInvoiceRepository
	registrations *MockRegistrationRepository
	policies      *MockDiscountPolicyRepository
	router        *gin.Engine
}

func newRegistrationFixture(companyID, userID uuid.UUID) *registrationFixture {
	f := &registrationFixture{
		invoices:      new(MockInvoiceRepository),
		registrations: new(MockRegistrationRepository),
		policies:      new(MockDiscountPolicyRepository),
	}
	scope := &noTxScope{invoices: f.invoices, registrations: f.registrations}
	service := paymentapp.NewRegisterService(
		f.registrations,
		f.invoices,
		f.policies,
		scope,
		paymentapp.RegisterServiceConfig{
			CompanyCurrency:         valueobject.USD,
			DefaultLiquidityAccount: "101401",
		},
		nil,
	)

	f.router = gin.New()
	f.router.Use(func(c *gin.Context) {
		setJWTContext(c, companyID, userID)
		c.Next()
	})
	NewRegistrationHandler(service).RegisterRoutes(f.router.Group("/api/v1"))
	return f
}

// postedInvoice builds a posted customer invoice with an open residual
func postedInvoice(t *testing.T, companyID, partnerID uuid.UUID, number string, untaxed, tax float64) *finance.Invoice {
	inv, err := finance.NewInvoice(companyID, number, finance.DocumentTypeCustomerInvoice,
		partnerID, "Customer", partnerID, valueobject.USD, "121000", time.Now())
	require.NoError(t, err)

	productID := uuid.New()
	total := untaxed + tax
	require.NoError(t, inv.AddLine(finance.InvoiceLine{
		Label:         "Goods",
		AccountCode:   "400000",
		ProductID:     &productID,
		ProductName:   "Goods",
		Quantity:      decimal.NewFromInt(1),
		PriceUnit:     decimal.NewFromFloat(untaxed),
		PriceSubtotal: decimal.NewFromFloat(untaxed),
		PriceTotal:    decimal.NewFromFloat(total),
		Credit:        decimal.NewFromFloat(untaxed),
	}))
	require.NoError(t, inv.AddLine(finance.InvoiceLine{
		Label:         "Tax",
		AccountCode:   "220000",
		TaxBaseAmount: decimal.NewFromFloat(untaxed),
		PriceSubtotal: decimal.NewFromFloat(untaxed),
		PriceTotal:    decimal.NewFromFloat(total),
		Credit:        decimal.NewFromFloat(tax),
	}))
	require.NoError(t, inv.AddLine(finance.InvoiceLine{
		Label:       number,
		AccountCode: "121000",
		Debit:       decimal.NewFromFloat(total),
	}))
	require.NoError(t, inv.Post())
	return inv
}

func TestRegistrationHandler_Create(t *testing.T) {
	companyID := uuid.New()
	userID := uuid.New()
	partnerID := uuid.New()

	t.Run("creates draft registration", func(t *testing.T) {
		f := newRegistrationFixture(companyID, userID)
		inv := postedInvoice(t, companyID, partnerID, "INV-2026-00042", 100, 20)
		f.invoices.On("FindByIDs", mock.Anything, companyID, []uuid.UUID{inv.ID}).
			Return([]finance.Invoice{*inv}, nil)
		f.registrations.On("Save", mock.Anything, mock.AnythingOfType("*finance.PaymentRegistration")).
			Return(nil)

		body, _ := json.Marshal(gin.H{
			"invoice_ids":  []string{inv.ID.String()},
			"payment_date": "2026-01-15",
			"journal_code": "BNK1",
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/registrations", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)

		data := resp.Data.(map[string]interface{})
		assert.Equal(t, "DRAFT", data["state"])
		assert.Equal(t, "BNK1", data["journal_code"])
		lines := data["lines"].([]interface{})
		require.Len(t, lines, 1)
		line := lines[0].(map[string]interface{})
		assert.Equal(t, "INV-2026-00042", line["invoice_number"])
		assert.InDelta(t, 120.0, line["payment_amount"], 0.001)
		f.registrations.AssertExpectations(t)
	})

	t.Run("missing journal code rejected by binding", func(t *testing.T) {
		f := newRegistrationFixture(companyID, userID)

		body, _ := json.Marshal(gin.H{
			"invoice_ids":  []string{uuid.New().String()},
			"payment_date": "2026-01-15",
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/registrations", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed payment date rejected", func(t *testing.T) {
		f := newRegistrationFixture(companyID, userID)

		body, _ := json.Marshal(gin.H{
			"invoice_ids":  []string{uuid.New().String()},
			"payment_date": "01/15/2026",
			"journal_code": "BNK1",
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/registrations", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown invoice yields not found", func(t *testing.T) {
		f := newRegistrationFixture(companyID, userID)
		missing := uuid.New()
		f.invoices.On("FindByIDs", mock.Anything, companyID, []uuid.UUID{missing}).
			Return([]finance.Invoice{}, nil)

		body, _ := json.Marshal(gin.H{
			"invoice_ids":  []string{missing.String()},
			"payment_date": "2026-01-15",
			"journal_code": "BNK1",
		})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/registrations", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	})
}

func TestRegistrationHandler_GetByID(t *testing.T) {
	companyID := uuid.New()
	userID := uuid.New()
	partnerID := uuid.New()

	t.Run("returns registration with lines", func(t *testing.T) {
		f := newRegistrationFixture(companyID, userID)
		inv := postedInvoice(t, companyID, partnerID, "INV-1", 50, 10)
		reg, err := finance.NewPaymentRegistration(companyID, time.Now(), finance.PaymentMethodBatchDeposit, "BNK1")
		require.NoError(t, err)
		require.NoError(t, reg.AddLine(inv))

		f.registrations.On("FindByIDForCompany", mock.Anything, companyID, reg.ID).
			Return(reg, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/registrations/"+reg.ID.String(), nil)
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, reg.ID.String(), data["id"])
		assert.Len(t, data["lines"], 1)
	})

	t.Run("not found", func(t *testing.T) {
		f := newRegistrationFixture(companyID, userID)
		missing := uuid.New()
		f.registrations.On("FindByIDForCompany", mock.Anything, companyID, missing).
			Return(nil, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/registrations/"+missing.String(), nil)
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		f := newRegistrationFixture(companyID, userID)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/registrations/not-a-uuid", nil)
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRegistrationHandler_List(t *testing.T) {
	companyID := uuid.New()
	userID := uuid.New()
	partnerID := uuid.New()

	f := newRegistrationFixture(companyID, userID)
	inv := postedInvoice(t, companyID, partnerID, "INV-1", 80, 0)
	reg, err := finance.NewPaymentRegistration(companyID, time.Now(), finance.PaymentMethodBatchDeposit, "BNK1")
	require.NoError(t, err)
	require.NoError(t, reg.AddLine(inv))

	f.registrations.On("FindAllForCompany", mock.Anything, companyID, mock.MatchedBy(func(fl finance.RegistrationFilter) bool {
		return fl.State != nil && *fl.State == finance.RegistrationStateDraft && fl.Page == 1 && fl.PageSize == 20
	})).Return([]finance.PaymentRegistration{*reg}, nil)
	f.registrations.On("CountForCompany", mock.Anything, companyID, mock.Anything).
		Return(int64(1), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/registrations?state=DRAFT", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(1), resp.Meta.Total)
	items := resp.Data.([]interface{})
	assert.Len(t, items, 1)
}

func TestRegistrationHandler_UpdateLine(t *testing.T) {
	companyID := uuid.New()
	userID := uuid.New()
	partnerID := uuid.New()

	f := newRegistrationFixture(companyID, userID)
	inv := postedInvoice(t, companyID, partnerID, "INV-1", 200, 0)
	reg, err := finance.NewPaymentRegistration(companyID, time.Now(), finance.PaymentMethodBatchDeposit, "BNK1")
	require.NoError(t, err)
	require.NoError(t, reg.AddLine(inv))
	lineID := reg.Lines[0].ID

	f.registrations.On("FindByIDForCompany", mock.Anything, companyID, reg.ID).
		Return(reg, nil)
	f.registrations.On("SaveWithLock", mock.Anything, mock.AnythingOfType("*finance.PaymentRegistration")).
		Return(nil)

	body, _ := json.Marshal(gin.H{"payment_amount": 150.0})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut,
		"/api/v1/registrations/"+reg.ID.String()+"/lines/"+lineID.String(), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	lines := data["lines"].([]interface{})
	line := lines[0].(map[string]interface{})
	assert.InDelta(t, 150.0, line["payment_amount"], 0.001)
	assert.InDelta(t, 50.0, line["balance"], 0.001)
}

func TestRegistrationHandler_FillResiduals(t *testing.T) {
	companyID := uuid.New()
	userID := uuid.New()
	partnerID := uuid.New()

	f := newRegistrationFixture(companyID, userID)
	inv := postedInvoice(t, companyID, partnerID, "INV-1", 120, 0)
	reg, err := finance.NewPaymentRegistration(companyID, time.Now(), finance.PaymentMethodBatchDeposit, "BNK1")
	require.NoError(t, err)
	require.NoError(t, reg.AddLine(inv))
	require.NoError(t, reg.UpdateLinePayment(reg.Lines[0].ID, decimal.NewFromInt(30)))

	f.registrations.On("FindByIDForCompany", mock.Anything, companyID, reg.ID).
		Return(reg, nil)
	f.registrations.On("SaveWithLock", mock.Anything, mock.AnythingOfType("*finance.PaymentRegistration")).
		Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		"/api/v1/registrations/"+reg.ID.String()+"/fill-residuals", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	lines := data["lines"].([]interface{})
	line := lines[0].(map[string]interface{})
	assert.InDelta(t, 120.0, line["payment_amount"], 0.001)
}

func TestRegistrationHandler_MissingCompany(t *testing.T) {
	f := &registrationFixture{
		invoices:      new(MockInvoiceRepository),
		registrations: new(MockRegistrationRepository),
		policies:      new(MockDiscountPolicyRepository),
	}
	scope := &noTxScope{invoices: f.invoices, registrations: f.registrations}
	service := paymentapp.NewRegisterService(
		f.registrations, f.invoices, f.policies, scope,
		paymentapp.RegisterServiceConfig{CompanyCurrency: valueobject.USD}, nil,
	)
	router := gin.New()
	NewRegistrationHandler(service).RegisterRoutes(router.Group("/api/v1"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/registrations", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
