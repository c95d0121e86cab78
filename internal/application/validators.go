package application

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterConfigValidators registers the custom validation functions that
// tournament configuration struct tags reference.
// RegisterConfigValidators returns an error if any validator registration
// fails.
func RegisterConfigValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("modelspec", validateModelSpec); err != nil {
		return fmt.Errorf("failed to register modelspec validator: %w", err)
	}
	return nil
}

// validateModelSpec validates that a model string is a usable registry
// spec: "provider" resolves to the provider's default model, and
// "provider/model" names one explicitly. The model segment may itself
// contain slashes for providers that namespace model names.
func validateModelSpec(fl validator.FieldLevel) bool {
	spec := fl.Field().String()
	if spec == "" {
		return false
	}

	provider, model, hasModel := strings.Cut(spec, "/")
	if provider == "" {
		return false
	}
	if hasModel && model == "" {
		return false
	}
	return true
}
