package pricing

import (
	"context"

	"github.com/erp/payments/internal/domain/shared"
	"github.com/google/uuid"
)

// PricelistRepository defines the interface for pricelist persistence
type PricelistRepository interface {
	// FindByID finds a pricelist with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Pricelist, error)

	// FindByIDForCompany finds a pricelist by ID for a specific company
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Pricelist, error)

	// FindAllForCompany finds all pricelists for a company
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter shared.Filter) ([]Pricelist, error)

	// Save creates or updates a pricelist with its items
	Save(ctx context.Context, pricelist *Pricelist) error

	// DeleteItems removes items no longer present on the aggregate
	DeleteItems(ctx context.Context, pricelistID uuid.UUID, itemIDs []uuid.UUID) error
}
