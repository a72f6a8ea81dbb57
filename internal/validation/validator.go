package validation

import (
	"errors"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"portal-booking/internal/schedule"
)

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()

	v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, err := time.Parse(schedule.DateLayout, value)
		return err == nil
	})

	v.RegisterValidation("timelabel", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, err := schedule.CanonicalLabel(value)
		return err == nil
	})

	phoneRegex := regexp.MustCompile(`^\+?[0-9 ]{7,18}$`)
	v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return phoneRegex.MatchString(value)
	})

	return &Validator{v: v}
}

func (v *Validator) Struct(s interface{}) error {
	return v.v.Struct(s)
}

func (v *Validator) Var(field interface{}, tag string) error {
	return v.v.Var(field, tag)
}

func (v *Validator) ValidationErrors(err error) validator.ValidationErrors {
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
