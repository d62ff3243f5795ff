package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/muhammadchandra19/rtcrypto-exchange/pkg/errors"
)

// Validate is the shared validator instance. It caches struct metadata, so
// there should be only one per process.
var Validate = validator.New()

// Struct validates v and converts failures into a BaseError carrying one
// ErrorDetails per offending field, all with the given code.
func Struct(v any, code errors.ErrorCode) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.NewErrorDetails(err.Error(), string(code), "")
	}

	base := errors.NewBaseError()
	for _, fe := range validationErrors {
		base.AddErrorDetails(errors.NewErrorDetails(message(fe), string(code), fe.Field()))
	}
	return base
}

func message(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
