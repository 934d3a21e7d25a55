package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/ruralpay/ledger/internal/models"
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"` // field -> failed rule
}

// ValidationHelper validates request structs and network messages
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper returns a validator that also understands the `currency` tag
func NewValidationHelper() *ValidationHelper {
	v := validator.New()
	v.RegisterValidation("currency", validateCurrency)
	return &ValidationHelper{validator: v}
}

func validateCurrency(fl validator.FieldLevel) bool {
	switch c := fl.Field().Interface().(type) {
	case models.Currency:
		return currencyCode.MatchString(string(c))
	case string:
		return currencyCode.MatchString(c)
	}
	return false
}

func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// IsValidationError reports whether err came from struct validation
func IsValidationError(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "currency":
		return "must be an ISO 4217 currency code"
	case "numeric":
		return "must contain digits only"
	case "min", "max", "gte", "lte":
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("failed on '%s' rule", fe.Tag())
}

// SendErrorResponse writes message with statusCode. Validation failures are listed per field.
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	var verrs validator.ValidationErrors
	if errors.As(validationErr, &verrs) {
		errorResp.Details = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			errorResp.Details[fe.Field()] = describeRule(fe)
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}
