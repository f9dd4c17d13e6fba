package middleware

import (
	"fireproof/internal/validation"

	"github.com/go-playground/validator/v10"
)

// RequestValidator adapts go-playground/validator to echo.Validator.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validation.New()}
}

// Validate returns a field keyed validation error on failure.
func (v *RequestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return validation.ToAppError(err)
	}
	return nil
}
