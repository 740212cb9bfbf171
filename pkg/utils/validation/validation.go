package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the struct's validate tags and returns a single
// user-facing message for the first failing field.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		fe := errs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return fmt.Errorf("%s is required", field)
		case "email":
			return fmt.Errorf("%s must be a valid email address", field)
		case "min":
			return fmt.Errorf("%s must be at least %s characters", field, fe.Param())
		case "oneof":
			return fmt.Errorf("%s must be one of: %s", field, fe.Param())
		case "gt":
			return fmt.Errorf("%s must be greater than %s", field, fe.Param())
		default:
			return fmt.Errorf("%s is invalid", field)
		}
	}

	return err
}
