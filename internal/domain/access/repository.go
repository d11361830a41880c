package access

import (
	"context"

	"github.com/erp/payments/internal/domain/shared"
	"github.com/google/uuid"
)

// MenuRepository defines the interface for menu persistence
type MenuRepository interface {
	// FindByID finds a menu with its restrictions
	FindByID(ctx context.Context, id uuid.UUID) (*Menu, error)

	// FindByCode finds a menu by code for a company
	FindByCode(ctx context.Context, companyID uuid.UUID, code string) (*Menu, error)

	// FindAllForCompany finds all menus for a company ordered by sequence
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]Menu, error)

	// Save creates or updates a menu with its restrictions
	Save(ctx context.Context, menu *Menu) error

	// DeleteRestrictions removes restriction rows no longer on the aggregate
	DeleteRestrictions(ctx context.Context, menuID uuid.UUID, restrictionIDs []uuid.UUID) error
}
