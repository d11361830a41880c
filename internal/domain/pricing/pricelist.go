package pricing

import (
	"github.com/erp/payments/internal/domain/shared"
	"github.com/erp/payments/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ComputeMethod is how a pricelist item derives its price
type ComputeMethod string

const (
	// ComputeMethodFixed uses the item's fixed price verbatim
	ComputeMethodFixed ComputeMethod = "FIXED"
	// ComputeMethodPercentage discounts the base price by a percentage
	ComputeMethodPercentage ComputeMethod = "PERCENTAGE"
	// ComputeMethodFormula derives the price from the base price with a
	// margin formula
	ComputeMethodFormula ComputeMethod = "FORMULA"
)

// IsValid checks if the compute method is valid
func (m ComputeMethod) IsValid() bool {
	switch m {
	case ComputeMethodFixed, ComputeMethodPercentage, ComputeMethodFormula:
		return true
	}
	return false
}

// String returns the string representation of the compute method
func (m ComputeMethod) String() string {
	return string(m)
}

// PricelistItem is one rule of a pricelist, keyed by product template and
// unit of measure
type PricelistItem struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key"`
	PricelistID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductTemplateID uuid.UUID       `gorm:"type:uuid;not null;index"`
	UnitOfMeasure     string          `gorm:"type:varchar(30);not null"`
	ComputeMethod     ComputeMethod   `gorm:"type:varchar(20);not null"`
	FixedPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DiscountPercent   decimal.Decimal `gorm:"type:decimal(9,4);not null"`
	MinQuantity       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (PricelistItem) TableName() string {
	return "pricelist_items"
}

// Matches reports whether the item applies to a product template sold in
// a given unit of measure. The unit code is canonicalized before the
// comparison, so lookups are case and whitespace insensitive.
func (i *PricelistItem) Matches(productTemplateID uuid.UUID, uom string) bool {
	return i.ProductTemplateID == productTemplateID &&
		i.UnitOfMeasure == valueobject.NormalizeUnitCode(uom)
}

// Pricelist is a named collection of pricing rules
type Pricelist struct {
	shared.CompanyAggregateRoot
	Name     string               `gorm:"type:varchar(200);not null"`
	Currency valueobject.Currency `gorm:"type:varchar(3);not null"`
	Active   bool                 `gorm:"not null;default:true"`
	Items    []PricelistItem      `gorm:"foreignKey:PricelistID;references:ID"`
}

// TableName returns the table name for GORM
func (Pricelist) TableName() string {
	return "pricelists"
}

// NewPricelist creates a pricelist
func NewPricelist(companyID uuid.UUID, name string, currency valueobject.Currency) (*Pricelist, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Pricelist name cannot be empty")
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency is not valid")
	}
	return &Pricelist{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		Name:                 name,
		Currency:             currency,
		Active:               true,
		Items:                make([]PricelistItem, 0),
	}, nil
}

// AddItem appends a pricing rule
func (p *Pricelist) AddItem(item PricelistItem) error {
	if item.ProductTemplateID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Pricelist item needs a product template")
	}
	item.UnitOfMeasure = valueobject.NormalizeUnitCode(item.UnitOfMeasure)
	if item.UnitOfMeasure == "" {
		return shared.NewDomainError("INVALID_UOM", "Pricelist item needs a unit of measure")
	}
	if !item.ComputeMethod.IsValid() {
		return shared.NewDomainError("INVALID_COMPUTE_METHOD", "Unknown compute method")
	}
	if item.ComputeMethod == ComputeMethodFixed && item.FixedPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Fixed price cannot be negative")
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.PricelistID = p.ID
	p.Items = append(p.Items, item)
	p.Touch()
	return nil
}

// RemoveItem drops a pricing rule
func (p *Pricelist) RemoveItem(itemID uuid.UUID) error {
	for i := range p.Items {
		if p.Items[i].ID == itemID {
			p.Items = append(p.Items[:i], p.Items[i+1:]...)
			p.Touch()
			return nil
		}
	}
	return shared.NewDomainError(shared.ErrNotFound.Code, "Pricelist item not found")
}

// ResolveUnitPrice returns the unit price for a product template sold in
// a unit of measure. When exactly one fixed-price rule matches the
// product and unit, its fixed price overrides the computed price; in
// every other case the computed price passes through unchanged. The
// exactly-one rule avoids guessing between ambiguous overrides.
func (p *Pricelist) ResolveUnitPrice(productTemplateID uuid.UUID, uom string, computedPrice decimal.Decimal) decimal.Decimal {
	var match *PricelistItem
	count := 0
	for i := range p.Items {
		item := &p.Items[i]
		if item.ComputeMethod == ComputeMethodFixed && item.Matches(productTemplateID, uom) {
			count++
			match = item
		}
	}
	if count == 1 {
		return match.FixedPrice
	}
	return computedPrice
}
