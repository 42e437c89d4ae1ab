package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spcl/knowledge-graph-of-thoughts/internal/types"
)

// Validator validates configuration values.
type Validator interface {
	Validate(cfg *Config) error
}

// validatorImpl implements Validator using go-playground/validator.
type validatorImpl struct {
	validate *validator.Validate
}

// NewValidator creates a new Validator instance.
func NewValidator() Validator {
	return &validatorImpl{
		validate: validator.New(),
	}
}

// Validate runs struct tag validation plus backend-specific checks.
func (v *validatorImpl) Validate(cfg *Config) error {
	if cfg == nil {
		return types.NewError(types.ErrConfigValidationFailed, "configuration is nil")
	}

	if err := v.validate.Struct(cfg); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return types.WrapError(types.ErrConfigValidationFailed, "validation error", err)
		}

		var messages []string
		for _, e := range validationErrs {
			messages = append(messages, formatValidationError(e))
		}

		return types.NewError(types.ErrConfigValidationFailed,
			"configuration validation failed:\n  - "+strings.Join(messages, "\n  - "))
	}

	switch cfg.Graph.Backend {
	case "neo4j":
		if cfg.Graph.URI == "" {
			return types.NewError(types.ErrConfigValidationFailed,
				"configuration validation failed:\n  - graph.uri is required when graph.backend is 'neo4j'")
		}
		if cfg.Graph.Username == "" {
			return types.NewError(types.ErrConfigValidationFailed,
				"configuration validation failed:\n  - graph.username is required when graph.backend is 'neo4j'")
		}
	case "sparql":
		if cfg.Graph.ReadEndpoint == "" {
			return types.NewError(types.ErrConfigValidationFailed,
				"configuration validation failed:\n  - graph.read_endpoint is required when graph.backend is 'sparql'")
		}
	}

	return nil
}

// formatValidationError formats a single validation error with field
// path and details.
func formatValidationError(e validator.FieldError) string {
	fieldPath := formatFieldPath(e.Namespace())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fieldPath)
	case "min":
		return fmt.Sprintf("%s must be at least %s (got: %v)", fieldPath, e.Param(), e.Value())
	case "max":
		return fmt.Sprintf("%s must be at most %s (got: %v)", fieldPath, e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got: %v)", fieldPath, e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed validation '%s' (got: %v)", fieldPath, e.Tag(), e.Value())
	}
}

// formatFieldPath converts a validator namespace to a readable path.
// Example: "Config.Controller.MaxIterations" -> "controller.max_iterations"
func formatFieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) <= 1 {
		return namespace
	}

	result := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		result = append(result, toSnakeCase(parts[i]))
	}
	return strings.Join(result, ".")
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
