// Package validation validates decoded request payloads with go-playground/validator.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	apperrors "github.com/bybo/bybo-be/internal/errors"
	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator that reports fields by their JSON names.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Validate validates a struct and returns a VALIDATION domain error
// whose details map each offending field to a readable message.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = friendlyMessage(e)
	}
	return apperrors.ValidationWithDetails("validation failed", fieldErrors)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "alphanum":
		return "must contain only letters and digits"
	case "url":
		return "must be a valid URL"
	case "min":
		switch e.Kind() {
		case reflect.Slice:
			return fmt.Sprintf("must contain at least %s items", e.Param())
		case reflect.String:
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return "must be at least " + e.Param()
	case "max":
		switch e.Kind() {
		case reflect.Slice:
			return fmt.Sprintf("must contain at most %s items", e.Param())
		case reflect.String:
			return fmt.Sprintf("must not exceed %s characters", e.Param())
		}
		return "must be at most " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "uuid":
		return "must be a valid UUID"
	default:
		return "is invalid"
	}
}
