package services

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateInput runs the struct tags of input and turns the first failure into
// a ValidationError. Fields are checked in declaration order.
func validateInput(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return validationError("invalid input")
	}

	fe := validationErrors[0]
	switch fe.Tag() {
	case "required":
		return validationError("%s is required", fe.Field())
	case "email":
		return validationError("%s must be a valid email address", fe.Field())
	case "gte", "min":
		return validationError("%s must be at least %s", fe.Field(), fe.Param())
	case "lte", "max":
		return validationError("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return validationError("%s is invalid", fe.Field())
	}
}

func trim(values ...*string) {
	for _, v := range values {
		*v = strings.TrimSpace(*v)
	}
}
