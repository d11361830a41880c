package handler

import (
	"time"

	pricingapp "github.com/erp/payments/internal/application/pricing"
	"github.com/erp/payments/internal/domain/pricing"
	"github.com/erp/payments/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PricelistHandler handles pricelist API endpoints
type PricelistHandler struct {
	BaseHandler
	pricingService *pricingapp.PricingService
}

// NewPricelistHandler creates a new PricelistHandler
func NewPricelistHandler(pricingService *pricingapp.PricingService) *PricelistHandler {
	return &PricelistHandler{
		pricingService: pricingService,
	}
}

// ===================== Request/Response DTOs =====================

// listPricelistsQuery carries the query parameters for listing
type listPricelistsQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size" binding:"omitempty,max=100"`
}

// PricelistItemResponse represents a pricing rule in API responses
// @Description Pricelist item response
type PricelistItemResponse struct {
	ID                string  `json:"id"`
	ProductTemplateID string  `json:"product_template_id"`
	UnitOfMeasure     string  `json:"unit_of_measure" example:"DOZEN"`
	ComputeMethod     string  `json:"compute_method" example:"FIXED"`
	FixedPrice        float64 `json:"fixed_price" example:"120.00"`
	DiscountPercent   float64 `json:"discount_percent" example:"0"`
	MinQuantity       float64 `json:"min_quantity" example:"1"`
}

// PricelistResponse represents a pricelist in API responses
// @Description Pricelist response
type PricelistResponse struct {
	ID        string                  `json:"id"`
	CompanyID string                  `json:"company_id"`
	Name      string                  `json:"name" example:"Wholesale 2026"`
	Currency  string                  `json:"currency" example:"USD"`
	Active    bool                    `json:"active"`
	Items     []PricelistItemResponse `json:"items"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
	Version   int                     `json:"version" example:"1"`
}

// ResolvePriceRequest represents a price resolution request
// @Description Request body for resolving a sale line unit price
type ResolvePriceRequest struct {
	ProductTemplateID string  `json:"product_template_id" binding:"required,uuid"`
	UnitOfMeasure     string  `json:"unit_of_measure" binding:"required,max=30" example:"DOZEN"`
	ComputedPrice     float64 `json:"computed_price" binding:"gte=0" example:"132.00"`
}

// AddPricelistItemRequest represents a request to append a pricing rule
// @Description Request body for adding a pricelist item
type AddPricelistItemRequest struct {
	ProductTemplateID string  `json:"product_template_id" binding:"required,uuid"`
	UnitOfMeasure     string  `json:"unit_of_measure" binding:"required,max=30" example:"DOZEN"`
	ComputeMethod     string  `json:"compute_method" binding:"required,oneof=FIXED PERCENTAGE FORMULA" example:"FIXED"`
	FixedPrice        float64 `json:"fixed_price" binding:"gte=0" example:"120.00"`
	DiscountPercent   float64 `json:"discount_percent" binding:"gte=0,lte=100" example:"0"`
	MinQuantity       float64 `json:"min_quantity" binding:"gte=0" example:"1"`
}

func toPricelistItemResponse(i *pricing.PricelistItem) PricelistItemResponse {
	return PricelistItemResponse{
		ID:                i.ID.String(),
		ProductTemplateID: i.ProductTemplateID.String(),
		UnitOfMeasure:     i.UnitOfMeasure,
		ComputeMethod:     string(i.ComputeMethod),
		FixedPrice:        i.FixedPrice.InexactFloat64(),
		DiscountPercent:   i.DiscountPercent.InexactFloat64(),
		MinQuantity:       i.MinQuantity.InexactFloat64(),
	}
}

func toPricelistResponse(list *pricing.Pricelist) PricelistResponse {
	items := make([]PricelistItemResponse, 0, len(list.Items))
	for i := range list.Items {
		items = append(items, toPricelistItemResponse(&list.Items[i]))
	}
	return PricelistResponse{
		ID:        list.ID.String(),
		CompanyID: list.CompanyID.String(),
		Name:      list.Name,
		Currency:  string(list.Currency),
		Active:    list.Active,
		Items:     items,
		CreatedAt: list.CreatedAt,
		UpdatedAt: list.UpdatedAt,
		Version:   list.Version,
	}
}

func toPricelistResponses(lists []pricing.Pricelist) []PricelistResponse {
	out := make([]PricelistResponse, 0, len(lists))
	for i := range lists {
		out = append(out, toPricelistResponse(&lists[i]))
	}
	return out
}

// ===================== Handlers =====================

// Create godoc
// @ID           createPricelist
// @Summary      Create a pricelist
// @Description  Create an empty pricelist in the company's currency
// @Tags         pricelists
// @Accept       json
// @Produce      json
// @Param        request body pricingapp.CreatePricelistRequest true "Pricelist creation request"
// @Success      201 {object} APIResponse[PricelistResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pricelists [post]
func (h *PricelistHandler) Create(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var req pricingapp.CreatePricelistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.CompanyID = companyID

	list, err := h.pricingService.CreatePricelist(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toPricelistResponse(list))
}

// List godoc
// @ID           listPricelists
// @Summary      List pricelists
// @Description  Retrieve the company's pricelists
// @Tags         pricelists
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]PricelistResponse]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pricelists [get]
func (h *PricelistHandler) List(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var q listPricelistsQuery
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
	lists, err := h.pricingService.ListPricelists(c.Request.Context(), companyID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPricelistResponses(lists))
}

// GetByID godoc
// @ID           getPricelist
// @Summary      Get a pricelist
// @Description  Retrieve a pricelist with its pricing rules
// @Tags         pricelists
// @Produce      json
// @Param        id path string true "Pricelist ID" format(uuid)
// @Success      200 {object} APIResponse[PricelistResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pricelists/{id} [get]
func (h *PricelistHandler) GetByID(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	pricelistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid pricelist ID format")
		return
	}

	list, err := h.pricingService.GetPricelist(c.Request.Context(), companyID, pricelistID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPricelistResponse(list))
}

// AddItem godoc
// @ID           addPricelistItem
// @Summary      Add a pricing rule
// @Description  Append a per-unit pricing rule to a pricelist
// @Tags         pricelists
// @Accept       json
// @Produce      json
// @Param        id path string true "Pricelist ID" format(uuid)
// @Param        request body AddPricelistItemRequest true "Item creation request"
// @Success      200 {object} APIResponse[PricelistResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pricelists/{id}/items [post]
func (h *PricelistHandler) AddItem(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	pricelistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid pricelist ID format")
		return
	}

	var req AddPricelistItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	productTemplateID, err := uuid.Parse(req.ProductTemplateID)
	if err != nil {
		h.BadRequest(c, "Invalid product template ID format")
		return
	}

	list, err := h.pricingService.AddItem(c.Request.Context(), pricingapp.AddItemRequest{
		CompanyID:         companyID,
		PricelistID:       pricelistID,
		ProductTemplateID: productTemplateID,
		UnitOfMeasure:     req.UnitOfMeasure,
		ComputeMethod:     pricing.ComputeMethod(req.ComputeMethod),
		FixedPrice:        toDecimal(req.FixedPrice),
		DiscountPercent:   toDecimal(req.DiscountPercent),
		MinQuantity:       toDecimal(req.MinQuantity),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPricelistResponse(list))
}

// RemoveItem godoc
// @ID           removePricelistItem
// @Summary      Remove a pricing rule
// @Description  Remove a pricing rule from a pricelist
// @Tags         pricelists
// @Produce      json
// @Param        id path string true "Pricelist ID" format(uuid)
// @Param        itemId path string true "Item ID" format(uuid)
// @Success      200 {object} APIResponse[PricelistResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pricelists/{id}/items/{itemId} [delete]
func (h *PricelistHandler) RemoveItem(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	pricelistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid pricelist ID format")
		return
	}
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		h.BadRequest(c, "Invalid item ID format")
		return
	}

	list, err := h.pricingService.RemoveItem(c.Request.Context(), companyID, pricelistID, itemID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toPricelistResponse(list))
}

// ResolvePrice godoc
// @ID           resolvePrice
// @Summary      Resolve a sale line price
// @Description  Return the unit price a sale line should carry; a fixed rule for the product and unit overrides the computed price
// @Tags         pricelists
// @Accept       json
// @Produce      json
// @Param        id path string true "Pricelist ID" format(uuid)
// @Param        request body ResolvePriceRequest true "Price resolution request"
// @Success      200 {object} APIResponse[pricingapp.ResolvedPrice]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pricelists/{id}/resolve-price [post]
func (h *PricelistHandler) ResolvePrice(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	pricelistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid pricelist ID format")
		return
	}

	var req ResolvePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	productTemplateID, err := uuid.Parse(req.ProductTemplateID)
	if err != nil {
		h.BadRequest(c, "Invalid product template ID format")
		return
	}

	resolved, err := h.pricingService.ResolvePrice(c.Request.Context(), pricingapp.ResolvePriceRequest{
		CompanyID:         companyID,
		PricelistID:       pricelistID,
		ProductTemplateID: productTemplateID,
		UnitOfMeasure:     req.UnitOfMeasure,
		ComputedPrice:     toDecimal(req.ComputedPrice),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, resolved)
}

// RegisterRoutes registers all pricelist routes
func (h *PricelistHandler) RegisterRoutes(rg *gin.RouterGroup) {
	pricelists := rg.Group("/pricelists")
	{
		pricelists.POST("", h.Create)
		pricelists.GET("", h.List)
		pricelists.GET("/:id", h.GetByID)
		pricelists.POST("/:id/items", h.AddItem)
		pricelists.DELETE("/:id/items/:itemId", h.RemoveItem)
		pricelists.POST("/:id/resolve-price", h.ResolvePrice)
	}
}
