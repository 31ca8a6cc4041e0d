package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator instance used for struct validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldError names the first field that failed struct validation.
// Callers use it to build caller-input errors without depending on validator types.
type FieldError struct {
	Field string
	Tag   string
	Value any
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s failed %q validation", e.Field, e.Tag)
}

// validateStruct runs struct validation and reduces validator output to a FieldError.
func validateStruct(v any, sentinel error) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %w", sentinel, &FieldError{
			Field: strings.ToLower(fe.Field()),
			Tag:   fe.Tag(),
			Value: fe.Value(),
		})
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
