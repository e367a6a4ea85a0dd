package checkout

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAuthRequired         = errors.New("sign in to place an order")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrNoShippingMethod     = errors.New("select a shipping method")
	ErrMissingAddressFields = errors.New("required address fields are missing")
	ErrInvalidAddress       = errors.New("address is invalid")
	ErrNoPaymentMethod      = errors.New("select a payment method")
	ErrPaymentNotAllowed    = errors.New("payment method is not available for this cart")
	ErrMissingShippingRate  = errors.New("no shipping rate is available for the delivery address")
	ErrEMIPlanRequired      = errors.New("select an emi plan")
	ErrInvalidStep          = errors.New("invalid checkout step")
)

// FieldError names one offending input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ValidationErrors is a user-correctable failure. Cause is one of the sentinel
// errors above and is what errors.Is matches.
type ValidationErrors struct {
	Cause  error
	Fields []FieldError
}

func (e *ValidationErrors) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return fmt.Sprintf("%v: %s", e.Cause, strings.Join(names, ", "))
}

func (e *ValidationErrors) Unwrap() error {
	return e.Cause
}

func missingFields(prefix string, fields []string) []FieldError {
	out := make([]FieldError, len(fields))
	for i, f := range fields {
		out[i] = FieldError{
			Field:   prefix + f,
			Message: strings.ReplaceAll(f, "_", " ") + " is required",
			Code:    "required",
		}
	}
	return out
}
