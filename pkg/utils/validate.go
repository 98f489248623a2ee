package utils

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/saikilaru/TAMcust/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by their wire name
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	// max counts runes; bcrypt rejects passwords longer than 72 bytes
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= limit
	})
	return v
}

// Validate checks value's validate tags and reports the first failing field as a ValidationError.
func Validate[T any](value T) (T, error) {
	if err := validate.Struct(value); err != nil {
		return value, toValidationError(err)
	}
	return value, nil
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	fe := verrs[0]
	field := fe.Field()
	if fe.Tag() == "required" {
		return apperrors.NewValidationError(apperrors.KeyRequired, field).WithField(field)
	}
	return apperrors.NewValidationError(apperrors.KeyInvalid, field).WithField(field)
}
