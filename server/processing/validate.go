package processing

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrEmptyInput is returned when the request input is empty after trimming.
var ErrEmptyInput = errors.New("Request input cannot be empty")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// RegisterValidation only fails on an empty tag or a nil func.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Validate checks req and returns ErrEmptyInput when its input is blank.
// Constraints are not checked.
func Validate(req GenerationRequest) error {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "Input" {
					return ErrEmptyInput
				}
			}
		}
		return err
	}
	return nil
}
