package handler

import (
	"time"

	paymentapp "github.com/erp/payments/internal/application/payment"
	"github.com/erp/payments/internal/domain/finance"
	"github.com/erp/payments/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles payment and batch deposit query endpoints
type PaymentHandler struct {
	BaseHandler
	queryService *paymentapp.PaymentQueryService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(queryService *paymentapp.PaymentQueryService) *PaymentHandler {
	return &PaymentHandler{
		queryService: queryService,
	}
}

// ===================== Request/Response DTOs =====================

// listPaymentsQuery carries the query parameters for listing payments
type listPaymentsQuery struct {
	PartnerID     string `form:"partner_id" binding:"omitempty,uuid"`
	PaymentType   string `form:"payment_type" binding:"omitempty,oneof=INBOUND OUTBOUND"`
	Status        string `form:"status" binding:"omitempty,oneof=DRAFT POSTED CANCELLED"`
	DepositNumber string `form:"deposit_number"`
	FromDate      string `form:"from_date"`
	ToDate        string `form:"to_date"`
	Search        string `form:"search"`
	Page          int    `form:"page"`
	PageSize      int    `form:"page_size" binding:"omitempty,max=100"`
}

// listDepositsQuery carries the query parameters for listing deposits
type listDepositsQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size" binding:"omitempty,max=100"`
}

// LedgerLineResponse represents a payment ledger line in API responses
// @Description Payment ledger line response
type LedgerLineResponse struct {
	ID             string  `json:"id"`
	Label          string  `json:"label,omitempty"`
	AccountCode    string  `json:"account_code" example:"121000"`
	PartnerID      string  `json:"partner_id"`
	InvoiceID      *string `json:"invoice_id,omitempty"`
	Currency       string  `json:"currency" example:"USD"`
	Debit          float64 `json:"debit"`
	Credit         float64 `json:"credit"`
	AmountCurrency float64 `json:"amount_currency"`
	IsLiquidity    bool    `json:"is_liquidity"`
}

// PaymentResponse represents a payment in API responses
// @Description Payment response
type PaymentResponse struct {
	ID                  string               `json:"id"`
	CompanyID           string               `json:"company_id"`
	PaymentNumber       string               `json:"payment_number" example:"PAY-2026-00013"`
	PaymentType         string               `json:"payment_type" example:"INBOUND"`
	PaymentMethod       string               `json:"payment_method" example:"BATCH_DEPOSIT"`
	Status              string               `json:"status" example:"POSTED"`
	PartnerID           string               `json:"partner_id"`
	CommercialPartnerID string               `json:"commercial_partner_id"`
	BankAccountID       *string              `json:"bank_account_id,omitempty"`
	Currency            string               `json:"currency" example:"USD"`
	Amount              float64              `json:"amount" example:"350.00"`
	PaymentDate         time.Time            `json:"payment_date"`
	JournalCode         string               `json:"journal_code" example:"BNK1"`
	LiquidityAccount    string               `json:"liquidity_account" example:"101401"`
	Communication       string               `json:"communication,omitempty"`
	DepositNumber       string               `json:"deposit_number,omitempty"`
	CheckNumber         string               `json:"check_number,omitempty"`
	RegistrationID      *string              `json:"registration_id,omitempty"`
	BatchDepositID      *string              `json:"batch_deposit_id,omitempty"`
	Lines               []LedgerLineResponse `json:"lines,omitempty"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
	Version             int                  `json:"version" example:"1"`
}

// BatchDepositResponse represents a batch deposit in API responses
// @Description Batch deposit response
type BatchDepositResponse struct {
	ID            string    `json:"id"`
	CompanyID     string    `json:"company_id"`
	DepositNumber string    `json:"deposit_number" example:"DEP-2026-001"`
	JournalCode   string    `json:"journal_code" example:"BNK1"`
	Status        string    `json:"status" example:"DRAFT"`
	DepositDate   time.Time `json:"deposit_date"`
	PaymentCount  int       `json:"payment_count" example:"3"`
	TotalAmount   float64   `json:"total_amount" example:"1050.00"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toLedgerLineResponse(l *finance.LedgerLine) LedgerLineResponse {
	resp := LedgerLineResponse{
		ID:             l.ID.String(),
		Label:          l.Label,
		AccountCode:    l.AccountCode,
		PartnerID:      l.PartnerID.String(),
		Currency:       string(l.Currency),
		Debit:          l.Debit.InexactFloat64(),
		Credit:         l.Credit.InexactFloat64(),
		AmountCurrency: l.AmountCurrency.InexactFloat64(),
		IsLiquidity:    l.IsLiquidity,
	}
	if l.InvoiceID != nil {
		id := l.InvoiceID.String()
		resp.InvoiceID = &id
	}
	return resp
}

func toPaymentResponse(p *finance.Payment) PaymentResponse {
	lines := make([]LedgerLineResponse, 0, len(p.Lines))
	for i := range p.Lines {
		lines = append(lines, toLedgerLineResponse(&p.Lines[i]))
	}
	resp := PaymentResponse{
		ID:                  p.ID.String(),
		CompanyID:           p.CompanyID.String(),
		PaymentNumber:       p.PaymentNumber,
		PaymentType:         string(p.PaymentType),
		PaymentMethod:       string(p.PaymentMethod),
		Status:              string(p.Status),
		PartnerID:           p.PartnerID.String(),
		CommercialPartnerID: p.CommercialPartnerID.String(),
		Currency:            string(p.Currency),
		Amount:              p.Amount.InexactFloat64(),
		PaymentDate:         p.PaymentDate,
		JournalCode:         p.JournalCode,
		LiquidityAccount:    p.LiquidityAccount,
		Communication:       p.Communication,
		DepositNumber:       p.DepositNumber,
		CheckNumber:         p.CheckNumber,
		Lines:               lines,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
		Version:             p.Version,
	}
	if p.BankAccountID != nil {
		id := p.BankAccountID.String()
		resp.BankAccountID = &id
	}
	if p.RegistrationID != nil {
		id := p.RegistrationID.String()
		resp.RegistrationID = &id
	}
	if p.BatchDepositID != nil {
		id := p.BatchDepositID.String()
		resp.BatchDepositID = &id
	}
	return resp
}

func toPaymentResponses(payments []finance.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, toPaymentResponse(&payments[i]))
	}
	return out
}

func toBatchDepositResponse(bd *finance.BatchDeposit) BatchDepositResponse {
	return BatchDepositResponse{
		ID:            bd.ID.String(),
		CompanyID:     bd.CompanyID.String(),
		DepositNumber: bd.DepositNumber,
		JournalCode:   bd.JournalCode,
		Status:        string(bd.Status),
		DepositDate:   bd.DepositDate,
		PaymentCount:  bd.PaymentCount,
		TotalAmount:   bd.TotalAmount.InexactFloat64(),
		CreatedAt:     bd.CreatedAt,
		UpdatedAt:     bd.UpdatedAt,
	}
}

func toBatchDepositResponses(deposits []finance.BatchDeposit) []BatchDepositResponse {
	out := make([]BatchDepositResponse, 0, len(deposits))
	for i := range deposits {
		out = append(out, toBatchDepositResponse(&deposits[i]))
	}
	return out
}

// ===================== Handlers =====================

// List godoc
// @ID           listPayments
// @Summary      List payments
// @Description  Retrieve a paginated list of payments with filtering
// @Tags         payments
// @Produce      json
// @Param        partner_id query string false "Partner ID" format(uuid)
// @Param        payment_type query string false "Direction" Enums(INBOUND, OUTBOUND)
// @Param        status query string false "Status" Enums(DRAFT, POSTED, CANCELLED)
// @Param        deposit_number query string false "Batch deposit number"
// @Param        from_date query string false "Payment date range start (ISO 8601)" format(date)
// @Param        to_date query string false "Payment date range end (ISO 8601)" format(date)
// @Param        search query string false "Search term (payment number, communication)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]PaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var q listPaymentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 20
	}

	filter := finance.PaymentFilter{}
	filter.Page = q.Page
	filter.PageSize = q.PageSize
	filter.Search = q.Search
	if q.PartnerID != "" {
		partnerID, err := uuid.Parse(q.PartnerID)
		if err != nil {
			h.BadRequest(c, "Invalid partner ID format")
			return
		}
		filter.PartnerID = &partnerID
	}
	if q.PaymentType != "" {
		paymentType := finance.PaymentType(q.PaymentType)
		filter.PaymentType = &paymentType
	}
	if q.Status != "" {
		status := finance.PaymentStatus(q.Status)
		filter.Status = &status
	}
	if q.DepositNumber != "" {
		filter.DepositNumber = &q.DepositNumber
	}
	if q.FromDate != "" {
		from, err := parseDate(q.FromDate)
		if err != nil {
			h.BadRequest(c, "Invalid from date, expected YYYY-MM-DD")
			return
		}
		filter.FromDate = &from
	}
	if q.ToDate != "" {
		to, err := parseDate(q.ToDate)
		if err != nil {
			h.BadRequest(c, "Invalid to date, expected YYYY-MM-DD")
			return
		}
		filter.ToDate = &to
	}

	page, err := h.queryService.ListPayments(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, toPaymentResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// GetByID godoc
// @ID           getPayment
// @Summary      Get a payment
// @Description  Retrieve a payment with its ledger lines
// @Tags         payments
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Success      200 {object} APIResponse[PaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	p, err := h.queryService.GetPayment(c.Request.Context(), companyID, paymentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(p))
}

// ListByRegistration godoc
// @ID           listRegistrationPayments
// @Summary      List payments of a registration
// @Description  Retrieve the payments emitted by posting a registration
// @Tags         payments
// @Produce      json
// @Param        id path string true "Registration ID" format(uuid)
// @Success      200 {object} APIResponse[[]PaymentResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /registrations/{id}/payments [get]
func (h *PaymentHandler) ListByRegistration(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	registrationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid registration ID format")
		return
	}

	payments, err := h.queryService.ListByRegistration(c.Request.Context(), companyID, registrationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPaymentResponses(payments))
}

// ListDeposits godoc
// @ID           listBatchDeposits
// @Summary      List batch deposits
// @Description  Retrieve the batch deposits payments bundle into
// @Tags         payments
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]BatchDepositResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deposits [get]
func (h *PaymentHandler) ListDeposits(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var q listDepositsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 20
	}

	filter := shared.Filter{Page: q.Page, PageSize: q.PageSize}
	deposits, err := h.queryService.ListDeposits(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toBatchDepositResponses(deposits))
}

// RegisterRoutes registers all payment query routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.GET("", h.List)
		payments.GET("/:id", h.GetByID)
	}
	rg.GET("/registrations/:id/payments", h.ListByRegistration)
	rg.GET("/deposits", h.ListDeposits)
}
