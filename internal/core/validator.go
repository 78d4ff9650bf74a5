package core

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"safewave/internal/types"
)

// Validator wraps go-playground/validator and translates its failures into
// the structured AppError codes the transport layer maps to 422.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator configured to report field names from
// their json tags, so error details match the wire contract rather than Go
// identifiers.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct validates s against its struct tags. On failure it returns
// a *types.AppError whose code reflects the dominant failure class:
// a missing required field wins over a range violation, which wins over the
// generic validation_failed. The details map carries one entry per failed
// field.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		// Programming error (non-struct passed), not client input.
		return types.NewAppError(types.ErrCodeInternalUnexpected, "invalid validation target", err)
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "validation failed unexpectedly", err)
	}

	code := types.ErrCodeValidationFailed
	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = describeFailure(fe)

		switch failureClass(fe.Tag()) {
		case types.ErrCodeValidationMissingField:
			code = types.ErrCodeValidationMissingField
		case types.ErrCodeValidationOutOfRange:
			if code != types.ErrCodeValidationMissingField {
				code = types.ErrCodeValidationOutOfRange
			}
		}
	}

	return types.NewAppErrorWithDetails(code, "request validation failed", err, details)
}

// failureClass maps a validator tag to the error code family it belongs to.
func failureClass(tag string) types.ErrorCode {
	switch tag {
	case "required":
		return types.ErrCodeValidationMissingField
	case "gt", "gte", "lt", "lte", "min", "max":
		return types.ErrCodeValidationOutOfRange
	default:
		return types.ErrCodeValidationFailed
	}
}

// describeFailure renders a client-facing description of one failed field.
func describeFailure(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed validation rule: " + fe.Tag()
	}
}
