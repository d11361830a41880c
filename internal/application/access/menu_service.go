package access

import (
	"context"
	"fmt"

	"github.com/erp/payments/internal/domain/access"
	"github.com/erp/payments/internal/domain/shared"
	"github.com/erp/payments/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MenuService manages navigation menus and their per-user and per-group
// visibility restrictions. Visible menu sets are cached per user; any
// restriction change invalidates the whole company's cache.
type MenuService struct {
	menuRepo access.MenuRepository
	cache    access.MenuVisibilityCache
	logger   *zap.Logger
}

// NewMenuService creates a new MenuService. The cache may be nil, in
// which case every lookup hits the repository.
func NewMenuService(menuRepo access.MenuRepository, cache access.MenuVisibilityCache, logger *zap.Logger) *MenuService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MenuService{menuRepo: menuRepo, cache: cache, logger: logger}
}

// CreateMenuRequest represents a request to create a menu entry
type CreateMenuRequest struct {
	CompanyID uuid.UUID  `json:"-"`
	Code      string     `json:"code" binding:"required"`
	Name      string     `json:"name" binding:"required"`
	ParentID  *uuid.UUID `json:"parent_id"`
	Sequence  int        `json:"sequence"`
}

// CreateMenu creates a menu entry visible to everyone
func (s *MenuService) CreateMenu(ctx context.Context, req CreateMenuRequest) (*access.Menu, error) {
	existing, err := s.menuRepo.FindByCode(ctx, req.CompanyID, req.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to check menu code: %w", err)
	}
	if existing != nil {
		return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code,
			fmt.Sprintf("Menu with code %s already exists", req.Code))
	}

	menu, err := access.NewMenu(req.CompanyID, req.Code, req.Name, req.ParentID)
	if err != nil {
		return nil, err
	}
	if req.Sequence > 0 {
		menu.Sequence = req.Sequence
	}
	if err := s.menuRepo.Save(ctx, menu); err != nil {
		return nil, fmt.Errorf("failed to save menu: %w", err)
	}
	s.invalidate(ctx, req.CompanyID)
	return menu, nil
}

// GetMenu loads a menu with its restrictions
func (s *MenuService) GetMenu(ctx context.Context, companyID, menuID uuid.UUID) (*access.Menu, error) {
	menu, err := s.menuRepo.FindByID(ctx, menuID)
	if err != nil {
		return nil, fmt.Errorf("failed to load menu: %w", err)
	}
	if menu == nil || menu.CompanyID != companyID {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Menu not found")
	}
	return menu, nil
}

// RestrictRequest hides a menu from a user or a group
type RestrictRequest struct {
	CompanyID uuid.UUID  `json:"-"`
	MenuID    uuid.UUID  `json:"-"`
	UserID    *uuid.UUID `json:"user_id"`
	GroupID   *uuid.UUID `json:"group_id"`
}

// Restrict hides a menu from the given user or group and invalidates
// the company's visibility cache
func (s *MenuService) Restrict(ctx context.Context, req RestrictRequest) (*access.Menu, error) {
	if req.UserID == nil && req.GroupID == nil {
		return nil, shared.NewDomainError("INVALID_RESTRICTION", "A restriction needs a user or a group")
	}

	menu, err := s.GetMenu(ctx, req.CompanyID, req.MenuID)
	if err != nil {
		return nil, err
	}
	if req.UserID != nil {
		if err := menu.RestrictUser(*req.UserID); err != nil {
			return nil, err
		}
	}
	if req.GroupID != nil {
		if err := menu.RestrictGroup(*req.GroupID); err != nil {
			return nil, err
		}
	}
	if err := s.menuRepo.Save(ctx, menu); err != nil {
		return nil, fmt.Errorf("failed to save menu: %w", err)
	}
	s.invalidate(ctx, req.CompanyID)
	return menu, nil
}

// ClearRestriction removes a restriction and invalidates the company's
// visibility cache
func (s *MenuService) ClearRestriction(ctx context.Context, companyID, menuID, restrictionID uuid.UUID) (*access.Menu, error) {
	menu, err := s.GetMenu(ctx, companyID, menuID)
	if err != nil {
		return nil, err
	}
	if err := menu.ClearRestriction(restrictionID); err != nil {
		return nil, err
	}
	if err := s.menuRepo.DeleteRestrictions(ctx, menu.ID, []uuid.UUID{restrictionID}); err != nil {
		return nil, fmt.Errorf("failed to delete restriction: %w", err)
	}
	if err := s.menuRepo.Save(ctx, menu); err != nil {
		return nil, fmt.Errorf("failed to save menu: %w", err)
	}
	s.invalidate(ctx, companyID)
	return menu, nil
}

// VisibleMenus returns the menus a user may see, ordered by sequence.
// The resolved set is cached per user until a restriction changes.
func (s *MenuService) VisibleMenus(ctx context.Context, companyID, userID uuid.UUID, groupIDs []uuid.UUID) ([]access.Menu, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "menu_access", "visible_menus")
	defer span.End()

	menus, err := s.menuRepo.FindAllForCompany(ctx, companyID, shared.Filter{})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load menus: %w", err)
	}

	if s.cache != nil {
		if ids, ok, err := s.cache.Get(ctx, companyID, userID); err == nil && ok {
			telemetry.SetAttribute(span, "cache_hit", true)
			return filterByIDs(menus, ids), nil
		} else if err != nil {
			// cache failures degrade to a repository-backed resolution
			s.logger.Warn("menu visibility cache read failed", zap.Error(err))
		}
	}

	visible := access.FilterVisible(menus, userID, groupIDs)

	if s.cache != nil {
		ids := make([]uuid.UUID, 0, len(visible))
		for i := range visible {
			ids = append(ids, visible[i].ID)
		}
		if err := s.cache.Set(ctx, companyID, userID, ids); err != nil {
			s.logger.Warn("menu visibility cache write failed", zap.Error(err))
		}
	}
	telemetry.SetAttributes(span,
		"menu_count", len(menus),
		"visible_count", len(visible),
	)
	return visible, nil
}

func filterByIDs(menus []access.Menu, ids []uuid.UUID) []access.Menu {
	allowed := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	out := make([]access.Menu, 0, len(ids))
	for i := range menus {
		if _, ok := allowed[menus[i].ID]; ok {
			out = append(out, menus[i])
		}
	}
	return out
}

func (s *MenuService) invalidate(ctx context.Context, companyID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCompany(ctx, companyID); err != nil {
		s.logger.Warn("menu visibility cache invalidation failed",
			zap.String("company_id", companyID.String()),
			zap.Error(err))
	}
}
