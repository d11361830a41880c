package handler

import (
	"time"

	paymentapp "github.com/erp/payments/internal/application/payment"
	"github.com/erp/payments/internal/domain/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegistrationHandler handles payment registration API endpoints
type RegistrationHandler struct {
	BaseHandler
	registerService *paymentapp.RegisterService
}

// NewRegistrationHandler creates a new RegistrationHandler
func NewRegistrationHandler(registerService *paymentapp.RegisterService) *RegistrationHandler {
	return &RegistrationHandler{
		registerService: registerService,
	}
}

// ===================== Request/Response DTOs =====================

// CreateRegistrationRequest represents a request to open a registration
// over a set of open documents
// @Description Request body for opening a payment registration
type CreateRegistrationRequest struct {
	InvoiceIDs    []string `json:"invoice_ids" binding:"required,min=1,dive,uuid"`
	PaymentDate   string   `json:"payment_date" binding:"required" example:"2026-01-15"`
	PaymentMethod string   `json:"payment_method" binding:"omitempty,oneof=BATCH_DEPOSIT CHECK BANK_TRANSFER MANUAL" example:"BATCH_DEPOSIT"`
	JournalCode   string   `json:"journal_code" binding:"required,max=50" example:"BNK1"`
	DepositNumber string   `json:"deposit_number" binding:"max=100" example:"DEP-2026-001"`
	CheckNumber   string   `json:"check_number" binding:"max=100" example:"CHK-10021"`
	GroupByKey    *bool    `json:"group_by_key"`
}

// UpdateRegisterLineRequest represents an edit to one register line
// @Description Request body for editing a register line
type UpdateRegisterLineRequest struct {
	PaymentAmount *float64 `json:"payment_amount" binding:"omitempty,gte=0" example:"150.00"`
	Discount      *bool    `json:"discount"`
}

// AutofillRequest represents a request to pull a partner's open documents
// into the registration
// @Description Request body for autofilling open documents of a partner
type AutofillRequest struct {
	PartnerID    string `json:"partner_id" binding:"required,uuid"`
	DocumentType string `json:"document_type" binding:"required,oneof=CUSTOMER_INVOICE VENDOR_BILL CUSTOMER_CREDIT_NOTE VENDOR_CREDIT_NOTE" example:"CUSTOMER_INVOICE"`
}

// listRegistrationsQuery carries the query parameters for listing
type listRegistrationsQuery struct {
	State    string `form:"state" binding:"omitempty,oneof=DRAFT VALIDATED POSTED"`
	FromDate string `form:"from_date"`
	ToDate   string `form:"to_date"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size" binding:"omitempty,max=100"`
}

// RegisterLineResponse represents a register line in API responses
// @Description Register line response
type RegisterLineResponse struct {
	ID                 string     `json:"id"`
	InvoiceID          string     `json:"invoice_id"`
	InvoiceNumber      string     `json:"invoice_number" example:"INV-2026-00042"`
	DocumentType       string     `json:"document_type" example:"CUSTOMER_INVOICE"`
	PartnerID          string     `json:"partner_id"`
	Currency           string     `json:"currency" example:"USD"`
	DestinationAccount string     `json:"destination_account" example:"121000"`
	Reference          string     `json:"reference,omitempty"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	AmountResidual     float64    `json:"amount_residual" example:"200.00"`
	PaymentAmount      float64    `json:"payment_amount" example:"150.00"`
	Balance            float64    `json:"balance" example:"50.00"`
	Discount           bool       `json:"discount"`
}

// RegistrationResponse represents a payment registration in API responses
// @Description Payment registration response
type RegistrationResponse struct {
	ID            string                 `json:"id"`
	CompanyID     string                 `json:"company_id"`
	State         string                 `json:"state" example:"DRAFT"`
	PaymentDate   time.Time              `json:"payment_date"`
	PaymentMethod string                 `json:"payment_method" example:"BATCH_DEPOSIT"`
	JournalCode   string                 `json:"journal_code" example:"BNK1"`
	GroupByKey    bool                   `json:"group_by_key"`
	DepositNumber string                 `json:"deposit_number,omitempty"`
	CheckNumber   string                 `json:"check_number,omitempty"`
	Communication string                 `json:"communication,omitempty"`
	Lines         []RegisterLineResponse `json:"lines"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	Version       int                    `json:"version" example:"1"`
}

func toRegisterLineResponse(l *finance.RegisterLine) RegisterLineResponse {
	return RegisterLineResponse{
		ID:                 l.ID.String(),
		InvoiceID:          l.InvoiceID.String(),
		InvoiceNumber:      l.InvoiceNumber,
		DocumentType:       string(l.DocumentType),
		PartnerID:          l.PartnerID.String(),
		Currency:           string(l.Currency),
		DestinationAccount: l.DestinationAccount,
		Reference:          l.Reference,
		DueDate:            l.DueDate,
		AmountResidual:     l.AmountResidual.InexactFloat64(),
		PaymentAmount:      l.PaymentAmount.InexactFloat64(),
		Balance:            l.Balance.InexactFloat64(),
		Discount:           l.Discount,
	}
}

func toRegistrationResponse(reg *finance.PaymentRegistration) RegistrationResponse {
	lines := make([]RegisterLineResponse, 0, len(reg.Lines))
	for i := range reg.Lines {
		lines = append(lines, toRegisterLineResponse(&reg.Lines[i]))
	}
	return RegistrationResponse{
		ID:            reg.ID.String(),
		CompanyID:     reg.CompanyID.String(),
		State:         string(reg.State),
		PaymentDate:   reg.PaymentDate,
		PaymentMethod: string(reg.PaymentMethod),
		JournalCode:   reg.JournalCode,
		GroupByKey:    reg.GroupByKey,
		DepositNumber: reg.DepositNumber,
		CheckNumber:   reg.CheckNumber,
		Communication: reg.Communication,
		Lines:         lines,
		CreatedAt:     reg.CreatedAt,
		UpdatedAt:     reg.UpdatedAt,
		Version:       reg.Version,
	}
}

func toRegistrationResponses(regs []finance.PaymentRegistration) []RegistrationResponse {
	out := make([]RegistrationResponse, 0, len(regs))
	for i := range regs {
		out = append(out, toRegistrationResponse(&regs[i]))
	}
	return out
}

// ===================== Handlers =====================

// Create godoc
// @ID           createRegistration
// @Summary      Open a payment registration
// @Description  Open a draft registration over a set of open posted documents
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        request body CreateRegistrationRequest true "Registration creation request"
// @Success      201 {object} APIResponse[RegistrationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /registrations [post]
func (h *RegistrationHandler) Create(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var req CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	paymentDate, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		h.BadRequest(c, "Invalid payment date, expected YYYY-MM-DD")
		return
	}

	invoiceIDs := make([]uuid.UUID, 0, len(req.InvoiceIDs))
	for _, raw := range req.InvoiceIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid invoice ID format")
			return
		}
		invoiceIDs = append(invoiceIDs, id)
	}

	reg, err := h.registerService.CreateRegistration(c.Request.Context(), paymentapp.CreateRegistrationRequest{
		CompanyID:     companyID,
		InvoiceIDs:    invoiceIDs,
		PaymentDate:   paymentDate,
		PaymentMethod: finance.PaymentMethod(req.PaymentMethod),
		JournalCode:   req.JournalCode,
		DepositNumber: req.DepositNumber,
		CheckNumber:   req.CheckNumber,
		GroupByKey:    req.GroupByKey,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toRegistrationResponse(reg))
}

// List godoc
// @ID           listRegistrations
// @Summary      List payment registrations
// @Description  Retrieve a paginated list of payment registrations
// @Tags         registrations
// @Produce      json
// @Param        state query string false "Lifecycle state" Enums(DRAFT, VALIDATED, POSTED)
// @Param        from_date query string false "Payment date range start (ISO 8601)" format(date)
// @Param        to_date query string false "Payment date range end (ISO 8601)" format(date)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]RegistrationResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var q listRegistrationsQuery
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

	filter := finance.RegistrationFilter{}
	filter.Page = q.Page
	filter.PageSize = q.PageSize
	if q.State != "" {
		state := finance.RegistrationState(q.State)
		filter.State = &state
	}
	if q.FromDate != "" {
		from, err := time.Parse("2006-01-02", q.FromDate)
		if err != nil {
			h.BadRequest(c, "Invalid from date, expected YYYY-MM-DD")
			return
		}
		filter.FromDate = &from
	}
	if q.ToDate != "" {
		to, err := time.Parse("2006-01-02", q.ToDate)
		if err != nil {
			h.BadRequest(c, "Invalid to date, expected YYYY-MM-DD")
			return
		}
		filter.ToDate = &to
	}

	page, err := h.registerService.ListRegistrations(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, toRegistrationResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// GetByID godoc
// @ID           getRegistration
// @Summary      Get a payment registration
// @Description  Retrieve a payment registration with its lines
// @Tags         registrations
// @Produce      json
// @Param        id path string true "Registration ID" format(uuid)
// @Success      200 {object} APIResponse[RegistrationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /registrations/{id} [get]
func (h *RegistrationHandler) GetByID(c *gin.Context) {
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

	reg, err := h.registerService.GetRegistration(c.Request.Context(), companyID, registrationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toRegistrationResponse(reg))
}

// UpdateLine godoc
// @ID           updateRegisterLine
// @Summary      Edit a register line
// @Description  Update a line's payment amount or discount flag
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        id path string true "Registration ID" format(uuid)
// @Param        lineId path string true "Line ID" format(uuid)
// @Param        request body UpdateRegisterLineRequest true "Line update request"
// @Success      200 {object} APIResponse[RegistrationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /registrations/{id}/lines/{lineId} [put]
func (h *RegistrationHandler) UpdateLine(c *gin.Context) {
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
	lineID, err := uuid.Parse(c.Param("lineId"))
	if err != nil {
		h.BadRequest(c, "Invalid line ID format")
		return
	}

	var req UpdateRegisterLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := paymentapp.UpdateLineRequest{
		CompanyID:      companyID,
		RegistrationID: registrationID,
		LineID:         lineID,
		Discount:       req.Discount,
	}
	if req.PaymentAmount != nil {
		appReq.PaymentAmount = toDecimalPtr(*req.PaymentAmount)
	}

	reg, err := h.registerService.UpdateLine(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toRegistrationResponse(reg))
}

// Autofill godoc
// @ID           autofillRegistration
// @Summary      Autofill open documents
// @Description  Append every open posted document of a partner to the registration
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Param        id path string true "Registration ID" format(uuid)
// @Param        request body AutofillRequest true "Autofill request"
// @Success      200 {object} APIResponse[RegistrationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /registrations/{id}/autofill [post]
func (h *RegistrationHandler) Autofill(c *gin.Context) {
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

	var req AutofillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	partnerID, err := uuid.Parse(req.PartnerID)
	if err != nil {
		h.BadRequest(c, "Invalid partner ID format")
		return
	}

	reg, err := h.registerService.AutofillOpenInvoices(
		c.Request.Context(), companyID, registrationID, partnerID,
		finance.DocumentType(req.DocumentType),
	)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toRegistrationResponse(reg))
}

// FillResiduals godoc
// @ID           fillRegistrationResiduals
// @Summary      Fill lines with residual amounts
// @Description  Set every line's payment amount to its outstanding residual
// @Tags         registrations
// @Produce      json
// @Param        id path string true "Registration ID" format(uuid)
// @Success      200 {object} APIResponse[RegistrationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /registrations/{id}/fill-residuals [post]
func (h *RegistrationHandler) FillResiduals(c *gin.Context) {
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

	reg, err := h.registerService.FillResiduals(c.Request.Context(), companyID, registrationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toRegistrationResponse(reg))
}

// Validate godoc
// @ID           validateRegistration
// @Summary      Validate a registration
// @Description  Run the business checks and move the registration to VALIDATED
// @Tags         registrations
// @Produce      json
// @Param        id path string true "Registration ID" format(uuid)
// @Success      200 {object} APIResponse[RegistrationResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /registrations/{id}/validate [post]
func (h *RegistrationHandler) Validate(c *gin.Context) {
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

	reg, err := h.registerService.Validate(c.Request.Context(), companyID, registrationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toRegistrationResponse(reg))
}

// Post godoc
// @ID           postRegistration
// @Summary      Post a registration
// @Description  Post the registration in one transaction, emitting grouped payments, write-off credit notes and batch deposit links
// @Tags         registrations
// @Produce      json
// @Param        id path string true "Registration ID" format(uuid)
// @Success      200 {object} APIResponse[paymentapp.PostResult]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /registrations/{id}/post [post]
func (h *RegistrationHandler) Post(c *gin.Context) {
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

	result, err := h.registerService.Post(c.Request.Context(), companyID, registrationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// RegisterRoutes registers all payment registration routes
func (h *RegistrationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	registrations := rg.Group("/registrations")
	{
		registrations.POST("", h.Create)
		registrations.GET("", h.List)
		registrations.GET("/:id", h.GetByID)
		registrations.PUT("/:id/lines/:lineId", h.UpdateLine)
		registrations.POST("/:id/autofill", h.Autofill)
		registrations.POST("/:id/fill-residuals", h.FillResiduals)
		registrations.POST("/:id/validate", h.Validate)
		registrations.POST("/:id/post", h.Post)
	}
}
