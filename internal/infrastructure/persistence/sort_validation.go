package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed
// fields. Returns the defaultField if the input is invalid, empty, or not
// in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"invoice_number":  true,
	"invoice_date":    true,
	"due_date":        true,
	"amount_total":    true,
	"amount_residual": true,
	"status":          true,
}

// RegistrationSortFields contains allowed sort fields for payment registrations
var RegistrationSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"payment_date": true,
	"state":        true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"payment_number": true,
	"payment_date":   true,
	"amount":         true,
	"status":         true,
}

// PricelistSortFields contains allowed sort fields for pricelists
var PricelistSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
}

// MenuSortFields contains allowed sort fields for menus
var MenuSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"sequence":   true,
}
