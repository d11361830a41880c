package middleware

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/erp/payments/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RequestIDKey is the gin context key set by the RequestID middleware.
const RequestIDKey = "request_id"

// RequestIDHeader carries the request ID on the wire.
const RequestIDHeader = "X-Request-ID"

// SetupValidator configures gin's validator: error messages report json
// (or form) tag names instead of Go struct field names, and the
// "currency" tag accepts ISO 4217 alphabetic codes.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	// Registration can only fail for an empty tag name
	_ = v.RegisterValidation("currency", isCurrencyCode)
}

// isCurrencyCode reports whether the value is three uppercase letters
func isCurrencyCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	)
}

// HandleValidationError answers 400 with per-field validation details
func HandleValidationError(c *gin.Context, err error) {
	requestID := getRequestIDFromContext(c)
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
}

// getRequestIDFromContext prefers the ID assigned by the RequestID
// middleware and falls back to the inbound header.
func getRequestIDFromContext(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(RequestIDHeader)
}

// validationMessages maps parameterless tags to their message
var validationMessages = map[string]string{
	"required": "This field is required",
	"uuid":     "Invalid UUID format",
	"currency": "Must be a three-letter currency code",
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	if msg, ok := validationMessages[e.Tag()]; ok {
		return msg
	}

	isString := e.Type().Kind() == reflect.String
	switch e.Tag() {
	case "min":
		if isString {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if isString {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "len":
		return "Must be exactly " + e.Param() + " characters"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "lt":
		return "Must be less than " + e.Param()
	}
	return "Invalid value"
}
