package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// UnitOfMeasure is a value object for the units pricing rules are keyed
// by. It is immutable. The factor relates the unit to its reference
// unit: 1 of this unit equals Factor reference units, so a dozen has
// factor 12 against a reference unit of pieces.
type UnitOfMeasure struct {
	code   string
	name   string
	factor decimal.Decimal
}

// Common unit codes
const (
	UnitCodeUnit  = "UNIT"  // Single piece, the usual reference unit
	UnitCodeDozen = "DOZEN" // 12 pieces
	UnitCodeKG    = "KG"    // Kilograms
	UnitCodeG     = "G"     // Grams
	UnitCodeL     = "L"     // Liters
	UnitCodeML    = "ML"    // Milliliters
)

// NormalizeUnitCode canonicalizes a unit code for comparison and
// storage. Pricelist rules and price lookups both pass through this so
// "box" and "BOX " key the same rule.
func NormalizeUnitCode(code string) string {
	return strings.TrimSpace(strings.ToUpper(code))
}

// NewUnitOfMeasure creates a unit with the given code, display name and
// factor against the reference unit. The factor must be positive.
func NewUnitOfMeasure(code, name string, factor decimal.Decimal) (UnitOfMeasure, error) {
	code = NormalizeUnitCode(code)
	name = strings.TrimSpace(name)

	if err := validateUnitCode(code); err != nil {
		return UnitOfMeasure{}, err
	}
	if err := validateUnitName(name); err != nil {
		return UnitOfMeasure{}, err
	}
	if err := validateUnitFactor(factor); err != nil {
		return UnitOfMeasure{}, err
	}

	return UnitOfMeasure{code: code, name: name, factor: factor}, nil
}

// NewReferenceUnit creates a unit with factor 1
func NewReferenceUnit(code, name string) (UnitOfMeasure, error) {
	return NewUnitOfMeasure(code, name, decimal.NewFromInt(1))
}

// MustUnitOfMeasure creates a unit and panics on error. For package
// constants and tests with known-good inputs.
func MustUnitOfMeasure(code, name string, factor decimal.Decimal) UnitOfMeasure {
	u, err := NewUnitOfMeasure(code, name, factor)
	if err != nil {
		panic(err)
	}
	return u
}

// Code returns the normalized unit code
func (u UnitOfMeasure) Code() string {
	return u.code
}

// Name returns the display name
func (u UnitOfMeasure) Name() string {
	return u.name
}

// Factor returns the factor against the reference unit
func (u UnitOfMeasure) Factor() decimal.Decimal {
	return u.factor
}

// IsReference reports whether this unit is its own reference (factor 1)
func (u UnitOfMeasure) IsReference() bool {
	return u.factor.Equal(decimal.NewFromInt(1))
}

// IsZero reports whether this is the zero-value unit
func (u UnitOfMeasure) IsZero() bool {
	return u.code == "" && u.name == "" && u.factor.IsZero()
}

// ToReference converts a quantity in this unit to reference units
func (u UnitOfMeasure) ToReference(quantity decimal.Decimal) decimal.Decimal {
	return quantity.Mul(u.factor).Round(4)
}

// FromReference converts a quantity in reference units to this unit
func (u UnitOfMeasure) FromReference(quantity decimal.Decimal) decimal.Decimal {
	if u.factor.IsZero() {
		return decimal.Zero
	}
	return quantity.Div(u.factor).Round(4)
}

// PriceFor scales a per-reference-unit price to this unit. A dozen
// costs twelve times the piece price unless a pricelist rule overrides
// it.
func (u UnitOfMeasure) PriceFor(referenceUnitPrice decimal.Decimal) decimal.Decimal {
	return referenceUnitPrice.Mul(u.factor).Round(4)
}

// Convert converts a quantity from this unit to another unit sharing
// the same reference
func (u UnitOfMeasure) Convert(quantity decimal.Decimal, target UnitOfMeasure) (decimal.Decimal, error) {
	if target.factor.IsZero() {
		return decimal.Zero, errors.New("target unit factor cannot be zero")
	}
	return u.ToReference(quantity).Div(target.factor).Round(4), nil
}

// Equals compares by code only; names and factors may drift between
// records sharing a code
func (u UnitOfMeasure) Equals(other UnitOfMeasure) bool {
	return u.code == other.code
}

// MatchesCode reports whether a raw code refers to this unit
func (u UnitOfMeasure) MatchesCode(code string) bool {
	return u.code == NormalizeUnitCode(code)
}

// String returns a readable representation
func (u UnitOfMeasure) String() string {
	if u.IsReference() {
		return fmt.Sprintf("%s (%s)", u.code, u.name)
	}
	return fmt.Sprintf("%s (%s, x%s)", u.code, u.name, u.factor.String())
}

// MarshalJSON implements json.Marshaler
func (u UnitOfMeasure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code   string `json:"code"`
		Name   string `json:"name"`
		Factor string `json:"factor"`
	}{
		Code:   u.code,
		Name:   u.name,
		Factor: u.factor.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (u *UnitOfMeasure) UnmarshalJSON(data []byte) error {
	var v struct {
		Code   string `json:"code"`
		Name   string `json:"name"`
		Factor string `json:"factor"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	factor, err := decimal.NewFromString(v.Factor)
	if err != nil {
		return fmt.Errorf("invalid unit factor: %w", err)
	}
	parsed, err := NewUnitOfMeasure(v.Code, v.Name, factor)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Value implements driver.Valuer. Only the code is stored; rules keyed
// by unit keep their own factor context.
func (u UnitOfMeasure) Value() (driver.Value, error) {
	return u.code, nil
}

// Scan implements sql.Scanner. Restores code only, with the name
// defaulted to the code and factor 1.
func (u *UnitOfMeasure) Scan(value any) error {
	if value == nil {
		*u = UnitOfMeasure{}
		return nil
	}

	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into UnitOfMeasure", value)
	}

	u.code = NormalizeUnitCode(raw)
	u.name = u.code
	u.factor = decimal.NewFromInt(1)
	return nil
}

func validateUnitCode(code string) error {
	if code == "" {
		return errors.New("unit code cannot be empty")
	}
	if len(code) > 30 {
		return errors.New("unit code cannot exceed 30 characters")
	}
	return nil
}

func validateUnitName(name string) error {
	if name == "" {
		return errors.New("unit name cannot be empty")
	}
	if len(name) > 50 {
		return errors.New("unit name cannot exceed 50 characters")
	}
	return nil
}

func validateUnitFactor(factor decimal.Decimal) error {
	if factor.IsNegative() {
		return errors.New("unit factor cannot be negative")
	}
	if factor.IsZero() {
		return errors.New("unit factor cannot be zero")
	}
	return nil
}

// Predefined units

// UnitPiece returns the single-piece reference unit
func UnitPiece() UnitOfMeasure {
	return MustUnitOfMeasure(UnitCodeUnit, "Unit", decimal.NewFromInt(1))
}

// UnitDozen returns a dozen against the piece reference
func UnitDozen() UnitOfMeasure {
	return MustUnitOfMeasure(UnitCodeDozen, "Dozen", decimal.NewFromInt(12))
}

// UnitKilogram returns the weight reference unit
func UnitKilogram() UnitOfMeasure {
	return MustUnitOfMeasure(UnitCodeKG, "Kilogram", decimal.NewFromInt(1))
}

// UnitGram returns grams against the kilogram reference
func UnitGram() UnitOfMeasure {
	return MustUnitOfMeasure(UnitCodeG, "Gram", decimal.NewFromFloat(0.001))
}

// UnitLiter returns the volume reference unit
func UnitLiter() UnitOfMeasure {
	return MustUnitOfMeasure(UnitCodeL, "Liter", decimal.NewFromInt(1))
}

// UnitMilliliter returns milliliters against the liter reference
func UnitMilliliter() UnitOfMeasure {
	return MustUnitOfMeasure(UnitCodeML, "Milliliter", decimal.NewFromFloat(0.001))
}
