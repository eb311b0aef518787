package config

import (
	"unicode"

	"github.com/go-playground/validator/v10"
)

const maxNamespaceLength = 256

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("namespace", validateNamespace)
}

// validateNamespace accepts a non-empty twin object name made of printable,
// non-space characters.
func validateNamespace(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || len(name) > maxNamespaceLength {
		return false
	}
	for _, r := range name {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) || r == '"' || r == '\\' {
			return false
		}
	}
	return true
}
