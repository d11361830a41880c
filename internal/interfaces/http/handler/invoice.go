package handler

import (
	"time"

	paymentapp "github.com/erp/payments/internal/application/payment"
	"github.com/erp/payments/internal/domain/finance"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InvoiceHandler handles ledger document API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *paymentapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *paymentapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// ===================== Request/Response DTOs =====================

// InvoiceLineRequest represents one line of an invoice being created
// @Description One invoice line
type InvoiceLineRequest struct {
	Label          string   `json:"label" binding:"max=500" example:"Widget A x10"`
	AccountCode    string   `json:"account_code" binding:"required,max=50" example:"400000"`
	ProductID      *string  `json:"product_id" binding:"omitempty,uuid"`
	ProductName    string   `json:"product_name" binding:"max=200" example:"Widget A"`
	Quantity       float64  `json:"quantity" example:"10"`
	PriceUnit      float64  `json:"price_unit" example:"15.00"`
	PriceSubtotal  float64  `json:"price_subtotal" example:"150.00"`
	PriceTotal     float64  `json:"price_total" example:"165.00"`
	TaxBaseAmount  float64  `json:"tax_base_amount" example:"150.00"`
	Debit          float64  `json:"debit" example:"0"`
	Credit         float64  `json:"credit" example:"150.00"`
	AmountCurrency float64  `json:"amount_currency" example:"-150.00"`
	AmountResidual float64  `json:"amount_residual" example:"0"`
	DateMaturity   *string  `json:"date_maturity" binding:"omitempty" example:"2026-02-15"`
}

// CreateInvoiceRequest represents a request to create a ledger document
// @Description Request body for creating an invoice or vendor bill
type CreateInvoiceRequest struct {
	InvoiceNumber       string               `json:"invoice_number" binding:"required,max=50" example:"INV-2026-00042"`
	DocumentType        string               `json:"document_type" binding:"required,oneof=CUSTOMER_INVOICE VENDOR_BILL CUSTOMER_CREDIT_NOTE VENDOR_CREDIT_NOTE" example:"CUSTOMER_INVOICE"`
	PartnerID           string               `json:"partner_id" binding:"required,uuid"`
	PartnerName         string               `json:"partner_name" binding:"required,max=200" example:"Acme Corp"`
	CommercialPartnerID string               `json:"commercial_partner_id" binding:"omitempty,uuid"`
	BankAccountID       *string              `json:"bank_account_id" binding:"omitempty,uuid"`
	Currency            string               `json:"currency" binding:"required,currency" example:"USD"`
	DestinationAccount  string               `json:"destination_account" binding:"required,max=50" example:"121000"`
	InvoiceDate         string               `json:"invoice_date" binding:"required" example:"2026-01-15"`
	DueDate             *string              `json:"due_date" binding:"omitempty" example:"2026-02-15"`
	Reference           string               `json:"reference" binding:"max=200"`
	PaymentReference    string               `json:"payment_reference" binding:"max=200"`
	Lines               []InvoiceLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// listInvoicesQuery carries the query parameters for listing invoices
type listInvoicesQuery struct {
	PartnerID    string `form:"partner_id" binding:"omitempty,uuid"`
	DocumentType string `form:"document_type" binding:"omitempty,oneof=CUSTOMER_INVOICE VENDOR_BILL CUSTOMER_CREDIT_NOTE VENDOR_CREDIT_NOTE"`
	Status       string `form:"status" binding:"omitempty,oneof=DRAFT POSTED CANCELLED"`
	PaymentState string `form:"payment_state" binding:"omitempty,oneof=NOT_PAID PARTIAL PAID"`
	FromDate     string `form:"from_date"`
	ToDate       string `form:"to_date"`
	Search       string `form:"search"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size" binding:"omitempty,max=100"`
}

// openInvoicesQuery carries the query parameters for the open documents
// lookup
type openInvoicesQuery struct {
	PartnerID    string `form:"partner_id" binding:"required,uuid"`
	DocumentType string `form:"document_type" binding:"required,oneof=CUSTOMER_INVOICE VENDOR_BILL CUSTOMER_CREDIT_NOTE VENDOR_CREDIT_NOTE"`
}

// InvoiceLineItemResponse represents an invoice line in API responses
// @Description Invoice line response
type InvoiceLineItemResponse struct {
	ID             string     `json:"id"`
	Label          string     `json:"label,omitempty"`
	AccountCode    string     `json:"account_code" example:"400000"`
	ProductID      *string    `json:"product_id,omitempty"`
	ProductName    string     `json:"product_name,omitempty"`
	Quantity       float64    `json:"quantity" example:"10"`
	PriceUnit      float64    `json:"price_unit" example:"15.00"`
	PriceSubtotal  float64    `json:"price_subtotal" example:"150.00"`
	PriceTotal     float64    `json:"price_total" example:"165.00"`
	Debit          float64    `json:"debit"`
	Credit         float64    `json:"credit"`
	Balance        float64    `json:"balance"`
	AmountResidual float64    `json:"amount_residual"`
	DateMaturity   *time.Time `json:"date_maturity,omitempty"`
}

// InvoiceResponse represents a ledger document in API responses
// @Description Invoice response
type InvoiceResponse struct {
	ID                  string                    `json:"id"`
	CompanyID           string                    `json:"company_id"`
	InvoiceNumber       string                    `json:"invoice_number" example:"INV-2026-00042"`
	DocumentType        string                    `json:"document_type" example:"CUSTOMER_INVOICE"`
	PartnerID           string                    `json:"partner_id"`
	PartnerName         string                    `json:"partner_name" example:"Acme Corp"`
	CommercialPartnerID string                    `json:"commercial_partner_id"`
	BankAccountID       *string                   `json:"bank_account_id,omitempty"`
	Currency            string                    `json:"currency" example:"USD"`
	DestinationAccount  string                    `json:"destination_account" example:"121000"`
	Status              string                    `json:"status" example:"POSTED"`
	PaymentState        string                    `json:"payment_state" example:"NOT_PAID"`
	InvoiceDate         time.Time                 `json:"invoice_date"`
	DueDate             *time.Time                `json:"due_date,omitempty"`
	Reference           string                    `json:"reference,omitempty"`
	PaymentReference    string                    `json:"payment_reference,omitempty"`
	AmountUntaxed       float64                   `json:"amount_untaxed" example:"150.00"`
	AmountTotal         float64                   `json:"amount_total" example:"165.00"`
	AmountResidual      float64                   `json:"amount_residual" example:"165.00"`
	PrepaymentAmount    float64                   `json:"prepayment_amount"`
	RelatedPaymentID    *string                   `json:"related_payment_id,omitempty"`
	Lines               []InvoiceLineItemResponse `json:"lines,omitempty"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
	Version             int                       `json:"version" example:"1"`
}

func toInvoiceLineItemResponse(l *finance.InvoiceLine) InvoiceLineItemResponse {
	resp := InvoiceLineItemResponse{
		ID:             l.ID.String(),
		Label:          l.Label,
		AccountCode:    l.AccountCode,
		ProductName:    l.ProductName,
		Quantity:       l.Quantity.InexactFloat64(),
		PriceUnit:      l.PriceUnit.InexactFloat64(),
		PriceSubtotal:  l.PriceSubtotal.InexactFloat64(),
		PriceTotal:     l.PriceTotal.InexactFloat64(),
		Debit:          l.Debit.InexactFloat64(),
		Credit:         l.Credit.InexactFloat64(),
		Balance:        l.Balance.InexactFloat64(),
		AmountResidual: l.AmountResidual.InexactFloat64(),
		DateMaturity:   l.DateMaturity,
	}
	if l.ProductID != nil {
		id := l.ProductID.String()
		resp.ProductID = &id
	}
	return resp
}

func toInvoiceResponse(inv *finance.Invoice) InvoiceResponse {
	lines := make([]InvoiceLineItemResponse, 0, len(inv.Lines))
	for i := range inv.Lines {
		lines = append(lines, toInvoiceLineItemResponse(&inv.Lines[i]))
	}
	resp := InvoiceResponse{
		ID:                  inv.ID.String(),
		CompanyID:           inv.CompanyID.String(),
		InvoiceNumber:       inv.InvoiceNumber,
		DocumentType:        string(inv.DocumentType),
		PartnerID:           inv.PartnerID.String(),
		PartnerName:         inv.PartnerName,
		CommercialPartnerID: inv.CommercialPartnerID.String(),
		Currency:            string(inv.Currency),
		DestinationAccount:  inv.DestinationAccount,
		Status:              string(inv.Status),
		PaymentState:        string(inv.PaymentState),
		InvoiceDate:         inv.InvoiceDate,
		DueDate:             inv.DueDate,
		Reference:           inv.Reference,
		PaymentReference:    inv.PaymentReference,
		AmountUntaxed:       inv.AmountUntaxed.InexactFloat64(),
		AmountTotal:         inv.AmountTotal.InexactFloat64(),
		AmountResidual:      inv.AmountResidual.InexactFloat64(),
		PrepaymentAmount:    inv.PrepaymentAmount.InexactFloat64(),
		Lines:               lines,
		CreatedAt:           inv.CreatedAt,
		UpdatedAt:           inv.UpdatedAt,
		Version:             inv.Version,
	}
	if inv.BankAccountID != nil {
		id := inv.BankAccountID.String()
		resp.BankAccountID = &id
	}
	if inv.RelatedPaymentID != nil {
		id := inv.RelatedPaymentID.String()
		resp.RelatedPaymentID = &id
	}
	return resp
}

func toInvoiceResponses(invoices []finance.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		out = append(out, toInvoiceResponse(&invoices[i]))
	}
	return out
}

// parseDate parses a YYYY-MM-DD date string
func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// ===================== Handlers =====================

// Create godoc
// @ID           createInvoice
// @Summary      Create a ledger document
// @Description  Create a draft invoice or vendor bill with its lines
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body CreateInvoiceRequest true "Invoice creation request"
// @Success      201 {object} APIResponse[InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	partnerID, err := uuid.Parse(req.PartnerID)
	if err != nil {
		h.BadRequest(c, "Invalid partner ID format")
		return
	}
	commercialPartnerID := partnerID
	if req.CommercialPartnerID != "" {
		commercialPartnerID, err = uuid.Parse(req.CommercialPartnerID)
		if err != nil {
			h.BadRequest(c, "Invalid commercial partner ID format")
			return
		}
	}

	invoiceDate, err := parseDate(req.InvoiceDate)
	if err != nil {
		h.BadRequest(c, "Invalid invoice date, expected YYYY-MM-DD")
		return
	}

	appReq := paymentapp.CreateInvoiceRequest{
		CompanyID:           companyID,
		InvoiceNumber:       req.InvoiceNumber,
		DocumentType:        finance.DocumentType(req.DocumentType),
		PartnerID:           partnerID,
		PartnerName:         req.PartnerName,
		CommercialPartnerID: commercialPartnerID,
		Currency:            valueobject.Currency(req.Currency),
		DestinationAccount:  req.DestinationAccount,
		InvoiceDate:         invoiceDate,
		Reference:           req.Reference,
		PaymentReference:    req.PaymentReference,
	}

	if req.BankAccountID != nil {
		bankAccountID, err := uuid.Parse(*req.BankAccountID)
		if err != nil {
			h.BadRequest(c, "Invalid bank account ID format")
			return
		}
		appReq.BankAccountID = &bankAccountID
	}
	if req.DueDate != nil {
		dueDate, err := parseDate(*req.DueDate)
		if err != nil {
			h.BadRequest(c, "Invalid due date, expected YYYY-MM-DD")
			return
		}
		appReq.DueDate = &dueDate
	}

	for _, line := range req.Lines {
		input := paymentapp.InvoiceLineInput{
			Label:          line.Label,
			AccountCode:    line.AccountCode,
			ProductName:    line.ProductName,
			Quantity:       toDecimal(line.Quantity),
			PriceUnit:      toDecimal(line.PriceUnit),
			PriceSubtotal:  toDecimal(line.PriceSubtotal),
			PriceTotal:     toDecimal(line.PriceTotal),
			TaxBaseAmount:  toDecimal(line.TaxBaseAmount),
			Debit:          toDecimal(line.Debit),
			Credit:         toDecimal(line.Credit),
			AmountCurrency: toDecimal(line.AmountCurrency),
			AmountResidual: toDecimal(line.AmountResidual),
		}
		if line.ProductID != nil {
			productID, err := uuid.Parse(*line.ProductID)
			if err != nil {
				h.BadRequest(c, "Invalid product ID format")
				return
			}
			input.ProductID = &productID
		}
		if line.DateMaturity != nil {
			maturity, err := parseDate(*line.DateMaturity)
			if err != nil {
				h.BadRequest(c, "Invalid maturity date, expected YYYY-MM-DD")
				return
			}
			input.DateMaturity = &maturity
		}
		appReq.Lines = append(appReq.Lines, input)
	}

	inv, err := h.invoiceService.CreateInvoice(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toInvoiceResponse(inv))
}

// List godoc
// @ID           listInvoices
// @Summary      List ledger documents
// @Description  Retrieve a paginated list of invoices and bills with filtering
// @Tags         invoices
// @Produce      json
// @Param        partner_id query string false "Partner ID" format(uuid)
// @Param        document_type query string false "Document type" Enums(CUSTOMER_INVOICE, VENDOR_BILL, CUSTOMER_CREDIT_NOTE, VENDOR_CREDIT_NOTE)
// @Param        status query string false "Status" Enums(DRAFT, POSTED, CANCELLED)
// @Param        payment_state query string false "Payment state" Enums(NOT_PAID, PARTIAL, PAID)
// @Param        from_date query string false "Invoice date range start (ISO 8601)" format(date)
// @Param        to_date query string false "Invoice date range end (ISO 8601)" format(date)
// @Param        search query string false "Search term (invoice number, partner name)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var q listInvoicesQuery
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

	filter := finance.InvoiceFilter{}
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
	if q.DocumentType != "" {
		docType := finance.DocumentType(q.DocumentType)
		filter.DocumentType = &docType
	}
	if q.Status != "" {
		status := finance.InvoiceStatus(q.Status)
		filter.Status = &status
	}
	if q.PaymentState != "" {
		state := finance.PaymentState(q.PaymentState)
		filter.PaymentState = &state
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

	page, err := h.invoiceService.ListInvoices(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, toInvoiceResponses(page.Items), page.Total, page.Page, page.PageSize)
}

// ListOpen godoc
// @ID           listOpenInvoices
// @Summary      List open documents of a partner
// @Description  Retrieve a partner's open posted documents ordered by due date then document date
// @Tags         invoices
// @Produce      json
// @Param        partner_id query string true "Partner ID" format(uuid)
// @Param        document_type query string true "Document type" Enums(CUSTOMER_INVOICE, VENDOR_BILL, CUSTOMER_CREDIT_NOTE, VENDOR_CREDIT_NOTE)
// @Success      200 {object} APIResponse[[]InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/open [get]
func (h *InvoiceHandler) ListOpen(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var q openInvoicesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	partnerID, err := uuid.Parse(q.PartnerID)
	if err != nil {
		h.BadRequest(c, "Invalid partner ID format")
		return
	}

	open, err := h.invoiceService.ListOpenInvoices(
		c.Request.Context(), companyID, partnerID,
		finance.DocumentType(q.DocumentType),
	)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponses(open))
}

// GetByID godoc
// @ID           getInvoice
// @Summary      Get a ledger document
// @Description  Retrieve an invoice or bill with its lines
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} APIResponse[InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	inv, err := h.invoiceService.GetInvoice(c.Request.Context(), companyID, invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(inv))
}

// Post godoc
// @ID           postInvoice
// @Summary      Post a ledger document
// @Description  Move a draft invoice to POSTED, opening its residual for payment
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} APIResponse[InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /invoices/{id}/post [post]
func (h *InvoiceHandler) Post(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	inv, err := h.invoiceService.PostInvoice(c.Request.Context(), companyID, invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(inv))
}

// RegisterRoutes registers all invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.Create)
		invoices.GET("", h.List)
		invoices.GET("/open", h.ListOpen)
		invoices.GET("/:id", h.GetByID)
		invoices.POST("/:id/post", h.Post)
	}
}
