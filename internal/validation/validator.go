package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator validates request structs using `validate` tags
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate validates a struct, returning the first violation as a
// caller-presentable error
func (v *Validator) Validate(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fmt.Errorf("%s: failed %s=%s validation", fe.Field(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%s: failed %s validation", fe.Field(), fe.Tag())
	}

	return err
}
