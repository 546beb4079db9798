// Package validator adapts go-playground/validator to echo's Validator
// interface.
package validator

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

type echoValidator struct {
	validate *validator.Validate
}

// New returns a request validator for echo.
func New() *echoValidator {
	return &echoValidator{validate: validator.New()}
}

// Validate runs struct tag validation on a bound request payload.
func (v *echoValidator) Validate(i any) error {
	return errors.WithStack(v.validate.Struct(i))
}
