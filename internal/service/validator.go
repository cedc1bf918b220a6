package service

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var phMobilePattern = regexp.MustCompile(`^09\d{9}$`)

// NewValidator builds the validator shared across services with the
// custom rules registered. ph_mobile accepts Philippine mobile numbers
// in local 09XXXXXXXXX form.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("ph_mobile", func(fl validator.FieldLevel) bool {
		return phMobilePattern.MatchString(fl.Field().String())
	})
	return v
}
