package domain

import (
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validatorInstance is shared so the validator can cache struct metadata.
var validatorInstance = validator.New()

func init() {
	_ = validatorInstance.RegisterValidation("safepath", validateSafePath)
}

// Validator exposes the configured validator so the HTTP layer binds
// request DTOs with the same custom rules.
func Validator() *validator.Validate {
	return validatorInstance
}

// validateSafePath rejects storage keys that could escape the upload root.
func validateSafePath(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if path == "" {
		return true
	}
	if strings.Contains(path, "..") ||
		strings.Contains(path, "~") ||
		strings.HasPrefix(path, "/") ||
		strings.Contains(path, "\\") {
		return false
	}
	return path == filepath.Clean(path)
}
