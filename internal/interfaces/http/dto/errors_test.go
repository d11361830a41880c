package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeValidationRequired, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeBusinessRule, http.StatusUnprocessableEntity},
		{ErrCodeExceedsResidual, http.StatusUnprocessableEntity},
		{ErrCodeDiscountNotAuthorized, http.StatusUnprocessableEntity},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}

	t.Run("unmapped code defaults to 500", func(t *testing.T) {
		assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("SOMETHING_ELSE"))
	})
}

func TestNormalizeErrorCode(t *testing.T) {
	t.Run("legacy codes map to ERR_ codes", func(t *testing.T) {
		legacy := map[string]string{
			"NOT_FOUND":                 ErrCodeNotFound,
			"ALREADY_EXISTS":            ErrCodeAlreadyExists,
			"INVALID_INPUT":             ErrCodeInvalidInput,
			"INVALID_STATE":             ErrCodeInvalidState,
			"UNAUTHORIZED":              ErrCodeUnauthorized,
			"FORBIDDEN":                 ErrCodeForbidden,
			"CONCURRENCY_CONFLICT":      ErrCodeConcurrencyConflict,
			"OPTIMISTIC_LOCK_ERROR":     ErrCodeConcurrencyConflict,
			"EXCEEDS_RESIDUAL":          ErrCodeExceedsResidual,
			"DISCOUNT_NOT_AUTHORIZED":   ErrCodeDiscountNotAuthorized,
			"MIXED_DESTINATION_ACCOUNT": ErrCodeBusinessRule,
			"VALIDATION_ERROR":          ErrCodeValidation,
			"BAD_REQUEST":               ErrCodeBadRequest,
			"INTERNAL_ERROR":            ErrCodeInternal,
		}
		for input, want := range legacy {
			assert.Equal(t, want, NormalizeErrorCode(input), "input %s", input)
		}
	})

	t.Run("normalized and unknown codes pass through", func(t *testing.T) {
		assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode(ErrCodeNotFound))
		assert.Equal(t, ErrCodeValidation, NormalizeErrorCode(ErrCodeValidation))
		assert.Equal(t, "CUSTOM_ERROR", NormalizeErrorCode("CUSTOM_ERROR"))
	})
}

func TestErrorCodeConstants(t *testing.T) {
	// Every declared code must resolve to an HTTP status and carry the
	// ERR_ prefix clients key off.
	allCodes := []string{
		ErrCodeUnknown,
		ErrCodeInternal,
		ErrCodeValidation,
		ErrCodeValidationRequired,
		ErrCodeValidationFormat,
		ErrCodeValidationRange,
		ErrCodeValidationLength,
		ErrCodeUnauthorized,
		ErrCodeForbidden,
		ErrCodeTokenExpired,
		ErrCodeTokenInvalid,
		ErrCodeNotFound,
		ErrCodeAlreadyExists,
		ErrCodeConflict,
		ErrCodeConcurrencyConflict,
		ErrCodeInvalidState,
		ErrCodeBusinessRule,
		ErrCodeExceedsResidual,
		ErrCodeDiscountNotAuthorized,
		ErrCodeBadRequest,
		ErrCodeInvalidInput,
		ErrCodeInvalidJSON,
		ErrCodeRateLimited,
		ErrCodeTooManyRequests,
	}

	for _, code := range allCodes {
		t.Run(code, func(t *testing.T) {
			status, ok := ErrorCodeHTTPStatus[code]
			assert.True(t, ok, "code %s missing from ErrorCodeHTTPStatus", code)
			assert.Greater(t, status, 0)
			assert.Contains(t, code, "ERR_")
		})
	}
}

func TestNewErrorResponse(t *testing.T) {
	t.Run("normalizes legacy code", func(t *testing.T) {
		before := time.Now()
		resp := NewErrorResponse("NOT_FOUND", "Payment not found")
		after := time.Now()

		assert.False(t, resp.Success)
		assert.Nil(t, resp.Data)
		assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
		assert.Equal(t, "Payment not found", resp.Error.Message)
		assert.False(t, resp.Error.Timestamp.Before(before))
		assert.False(t, resp.Error.Timestamp.After(after))
	})

	t.Run("with request id", func(t *testing.T) {
		resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Registration not found", "req-123-456")

		assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
		assert.Equal(t, "req-123-456", resp.Error.RequestID)
		assert.NotZero(t, resp.Error.Timestamp)
	})

	t.Run("with help link", func(t *testing.T) {
		help := "https://docs.example.com/errors/auth"
		resp := NewErrorResponseWithHelp(ErrCodeUnauthorized, "Not authenticated", "req-001", help)

		assert.Equal(t, ErrCodeUnauthorized, resp.Error.Code)
		assert.Equal(t, help, resp.Error.Help)
	})
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "amount", Message: "Must be greater than zero"},
		{Field: "journal_id", Message: "Journal is required"},
	}

	resp := NewValidationErrorResponse("Validation failed", "req-789", details)

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "amount", resp.Error.Details[0].Field)
	assert.Equal(t, "Must be greater than zero", resp.Error.Details[0].Message)
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Invoice not found", "req-test-123")

	data, err := json.Marshal(resp)
	assert.NoError(t, err)

	var decoded Response
	assert.NoError(t, json.Unmarshal(data, &decoded))

	assert.False(t, decoded.Success)
	assert.Equal(t, ErrCodeNotFound, decoded.Error.Code)
	assert.Equal(t, "Invoice not found", decoded.Error.Message)
	assert.Equal(t, "req-test-123", decoded.Error.RequestID)
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]string{"reference": "PAY/2026/0001"})

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
	assert.Nil(t, resp.Meta)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"PAY/2026/0001", "PAY/2026/0002"}, 100, 1, 10)

	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, int64(100), resp.Meta.Total)
	assert.Equal(t, 1, resp.Meta.Page)
	assert.Equal(t, 10, resp.Meta.PageSize)
	assert.Equal(t, 10, resp.Meta.TotalPages)
}

func TestNewSuccessResponseWithMeta_Pagination(t *testing.T) {
	tests := []struct {
		total         int64
		page          int
		pageSize      int
		expectedPages int
		expectedSize  int
	}{
		{100, 1, 10, 10, 10},
		{101, 1, 10, 11, 10},
		{0, 1, 10, 0, 10},
		{9, 1, 10, 1, 10},
		{10, 1, 10, 1, 10},
		{11, 1, 10, 2, 10},
		// Non-positive page sizes fall back to the default of 20.
		{100, 1, 0, 5, 20},
		{100, 1, -1, 5, 20},
	}

	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta(nil, tt.total, tt.page, tt.pageSize)
		assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages, "total=%d size=%d", tt.total, tt.pageSize)
		assert.Equal(t, tt.expectedSize, resp.Meta.PageSize, "total=%d size=%d", tt.total, tt.pageSize)
	}
}
