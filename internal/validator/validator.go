// Package validator wraps go-playground/validator and reports failures as
// per-field messages keyed by the JSON field name.
package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"recipe-blog/backend/internal/apperr"

	"github.com/go-playground/validator/v10"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,30}$`)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	}); err != nil {
		panic("register username rule: " + err.Error())
	}
	if err := v.RegisterValidation("numeric_code", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return false
		}
		for _, r := range s {
			if r < '0' || r > '9' {
				return false
			}
		}
		return true
	}); err != nil {
		panic("register numeric_code rule: " + err.Error())
	}

	return &Validator{validate: v}
}

// Fields validates i and returns field -> message, or nil when i is valid.
func (v *Validator) Fields(i any) map[string]string {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		out[fe.Field()] = message(fe)
	}
	return out
}

// Validate returns an *apperr.Error with code validation_failed, or nil.
func (v *Validator) Validate(i any) error {
	if fields := v.Fields(i); fields != nil {
		return apperr.Validation(fields)
	}
	return nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters long", fe.Param())
	case "eqfield":
		return "must match password"
	case "excluded_with":
		return fmt.Sprintf("cannot be combined with %s", fe.Param())
	case "username":
		return "must be 3-30 characters (letters, numbers, '.', '_', '-')"
	case "numeric_code":
		return "must contain digits only"
	case "uuid":
		return "must be a valid id"
	default:
		return fmt.Sprintf("invalid value (failed on '%s')", fe.Tag())
	}
}
