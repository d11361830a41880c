package handler

import (
	"time"

	accessapp "github.com/erp/payments/internal/application/access"
	"github.com/erp/payments/internal/domain/access"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MenuHandler handles menu visibility API endpoints
type MenuHandler struct {
	BaseHandler
	menuService *accessapp.MenuService
}

// NewMenuHandler creates a new MenuHandler
func NewMenuHandler(menuService *accessapp.MenuService) *MenuHandler {
	return &MenuHandler{
		menuService: menuService,
	}
}

// ===================== Request/Response DTOs =====================

// MenuRestrictionResponse represents a menu restriction in API responses
// @Description Menu restriction response
type MenuRestrictionResponse struct {
	ID      string  `json:"id"`
	UserID  *string `json:"user_id,omitempty"`
	GroupID *string `json:"group_id,omitempty"`
}

// MenuResponse represents a menu entry in API responses
// @Description Menu response
type MenuResponse struct {
	ID           string                    `json:"id"`
	CompanyID    string                    `json:"company_id"`
	Code         string                    `json:"code" example:"accounting.payments"`
	Name         string                    `json:"name" example:"Payments"`
	ParentID     *string                   `json:"parent_id,omitempty"`
	Sequence     int                       `json:"sequence" example:"10"`
	Restrictions []MenuRestrictionResponse `json:"restrictions,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

func toMenuRestrictionResponse(r *access.MenuRestriction) MenuRestrictionResponse {
	resp := MenuRestrictionResponse{
		ID: r.ID.String(),
	}
	if r.UserID != nil {
		id := r.UserID.String()
		resp.UserID = &id
	}
	if r.GroupID != nil {
		id := r.GroupID.String()
		resp.GroupID = &id
	}
	return resp
}

func toMenuResponse(m *access.Menu) MenuResponse {
	restrictions := make([]MenuRestrictionResponse, 0, len(m.Restrictions))
	for i := range m.Restrictions {
		restrictions = append(restrictions, toMenuRestrictionResponse(&m.Restrictions[i]))
	}
	resp := MenuResponse{
		ID:           m.ID.String(),
		CompanyID:    m.CompanyID.String(),
		Code:         m.Code,
		Name:         m.Name,
		Sequence:     m.Sequence,
		Restrictions: restrictions,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.ParentID != nil {
		id := m.ParentID.String()
		resp.ParentID = &id
	}
	return resp
}

func toMenuResponses(menus []access.Menu) []MenuResponse {
	out := make([]MenuResponse, 0, len(menus))
	for i := range menus {
		out = append(out, toMenuResponse(&menus[i]))
	}
	return out
}

// ===================== Handlers =====================

// Create godoc
// @ID           createMenu
// @Summary      Create a menu entry
// @Description  Create a menu entry visible to everyone
// @Tags         menus
// @Accept       json
// @Produce      json
// @Param        request body accessapp.CreateMenuRequest true "Menu creation request"
// @Success      201 {object} APIResponse[MenuResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /menus [post]
func (h *MenuHandler) Create(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	var req accessapp.CreateMenuRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.CompanyID = companyID

	menu, err := h.menuService.CreateMenu(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, toMenuResponse(menu))
}

// GetByID godoc
// @ID           getMenu
// @Summary      Get a menu entry
// @Description  Retrieve a menu entry with its restrictions
// @Tags         menus
// @Produce      json
// @Param        id path string true "Menu ID" format(uuid)
// @Success      200 {object} APIResponse[MenuResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /menus/{id} [get]
func (h *MenuHandler) GetByID(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	menuID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid menu ID format")
		return
	}

	menu, err := h.menuService.GetMenu(c.Request.Context(), companyID, menuID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toMenuResponse(menu))
}

// Restrict godoc
// @ID           restrictMenu
// @Summary      Hide a menu from a user or group
// @Description  Add a restriction hiding the menu from the given user or group
// @Tags         menus
// @Accept       json
// @Produce      json
// @Param        id path string true "Menu ID" format(uuid)
// @Param        request body accessapp.RestrictRequest true "Restriction request"
// @Success      200 {object} APIResponse[MenuResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /menus/{id}/restrictions [post]
func (h *MenuHandler) Restrict(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	menuID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid menu ID format")
		return
	}

	var req accessapp.RestrictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	req.CompanyID = companyID
	req.MenuID = menuID

	menu, err := h.menuService.Restrict(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toMenuResponse(menu))
}

// ClearRestriction godoc
// @ID           clearMenuRestriction
// @Summary      Remove a menu restriction
// @Description  Remove a restriction, making the menu visible to the affected user or group again
// @Tags         menus
// @Produce      json
// @Param        id path string true "Menu ID" format(uuid)
// @Param        restrictionId path string true "Restriction ID" format(uuid)
// @Success      200 {object} APIResponse[MenuResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /menus/{id}/restrictions/{restrictionId} [delete]
func (h *MenuHandler) ClearRestriction(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}

	menuID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid menu ID format")
		return
	}
	restrictionID, err := uuid.Parse(c.Param("restrictionId"))
	if err != nil {
		h.BadRequest(c, "Invalid restriction ID format")
		return
	}

	menu, err := h.menuService.ClearRestriction(c.Request.Context(), companyID, menuID, restrictionID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toMenuResponse(menu))
}

// Visible godoc
// @ID           listVisibleMenus
// @Summary      List menus visible to the caller
// @Description  Retrieve the menus the authenticated user can see, restrictions applied
// @Tags         menus
// @Produce      json
// @Success      200 {object} APIResponse[[]MenuResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /menus/visible [get]
func (h *MenuHandler) Visible(c *gin.Context) {
	companyID, err := getCompanyID(c)
	if err != nil {
		h.BadRequest(c, "Invalid company ID")
		return
	}
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "User identity required")
		return
	}

	menus, err := h.menuService.VisibleMenus(c.Request.Context(), companyID, userID, getGroupIDs(c))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, toMenuResponses(menus))
}

// RegisterRoutes registers all menu routes
func (h *MenuHandler) RegisterRoutes(rg *gin.RouterGroup) {
	menus := rg.Group("/menus")
	{
		menus.POST("", h.Create)
		menus.GET("/visible", h.Visible)
		menus.GET("/:id", h.GetByID)
		menus.POST("/:id/restrictions", h.Restrict)
		menus.DELETE("/:id/restrictions/:restrictionId", h.ClearRestriction)
	}
}
