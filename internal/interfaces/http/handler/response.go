package handler

import "github.com/erp/payments/internal/interfaces/http/dto"

// APIResponse is the typed response envelope referenced from OpenAPI
// annotations. Runtime responses are built through dto.Response; this
// exists only so swag can generate a concrete schema per data type.
// @Description Standard API response wrapper with typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse is the error envelope for OpenAPI annotations.
// @Description Standard error response
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// SuccessResponse is the bare success envelope for OpenAPI annotations.
// @Description Simple success response without data
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}
