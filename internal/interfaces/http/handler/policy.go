package handler

import (
	"time"

	paymentapp "github.com/erp/payments/internal/application/payment"
	"github.com/erp/payments/internal/domain/finance"
	"github.com/gin-gonic/gin"
)

// DiscountPolicyHandler handles discount policy API endpoints
type DiscountPolicyHandler struct {
	BaseHandler
	policyService *paymentapp.DiscountPolicyService
}

// NewDiscountPolicyHandler creates a new DiscountPolicyHandler
func NewDiscountPolicyHandler(policyService *paymentapp.DiscountPolicyService) *DiscountPolicyHandler {
	return &DiscountPolicyHandler{
		policyService: policyService,
	}
}

// SetDiscountPolicyRequest represents a request to set the company's
// maximum authorized discount
// @Description Request body for setting the discount policy
type SetDiscountPolicyRequest struct {
	MaxDiscountPercent float64 `json:"max_discount_percent" binding:"gte=0,lte=100" example:"5.0"`
}

// DiscountPolicyResponse represents a discount policy in API responses
// @Description Discount policy response
type DiscountPolicyResponse struct {
	ID                 string    `json:"id"`
	CompanyID          string    `json:"company_id"`
	MaxDiscountPercent float64   `json:"max_discount_percent" example:"5.0"`
	Enabled            bool      `json:"enabled"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toDiscountPolicyResponse(p *finance.DiscountPolicy) DiscountPolicyResponse {
	return DiscountPolicyResponse{
		ID:                 p.ID.String(),
		CompanyID:          p.CompanyID.String(),
		MaxDiscountPercent: p.MaxDiscountPercent.InexactFloat64(),
		Enabled:            p.Enabled,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

// Get godoc
// @ID           getDiscountPolicy
// @Summary      Get the discount policy
// @Description  Retrieve the company's maximum authorized payment discount
// @Tags         discount-policy
// @Produce      json
// @Success      200 {object} APIResponse[DiscountPolicyResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /discount-policy [get]
func (h *DiscountPolicyHandler) Get(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	policy, err := h.policyService.GetPolicy(c.Request.Context(), companyID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toDiscountPolicyResponse(policy))
}

// Set godoc
// @ID           setDiscountPolicy
// @Summary      Set the discount policy
// @Description  Set the company's maximum authorized payment discount percentage
// @Tags         discount-policy
// @Accept       json
// @Produce      json
// @Param        request body SetDiscountPolicyRequest true "Policy update request"
// @Success      200 {object} APIResponse[DiscountPolicyResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /discount-policy [put]
func (h *DiscountPolicyHandler) Set(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var req SetDiscountPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	policy, err := h.policyService.SetMaxDiscount(c.Request.Context(), companyID, toDecimal(req.MaxDiscountPercent))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toDiscountPolicyResponse(policy))
}

// RegisterRoutes registers the discount policy routes
func (h *DiscountPolicyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/discount-policy", h.Get)
	rg.PUT("/discount-policy", h.Set)
}
