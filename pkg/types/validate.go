package types

import (
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return ServiceCategory(fl.Field().String()).Valid()
	})
	return v
}

// Validate checks the validate struct tags of a draft or input value.
func Validate(v any) error {
	return validate.Struct(v)
}

// InvalidFields returns the names of the fields that failed validation.
func InvalidFields(err error) []string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field())
	}
	return out
}
