package validate

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	instance *validator.Validate
	once     sync.Once

	// mainland mobile numbers: 11 digits starting with 13..19
	cnPhone = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		_ = instance.RegisterValidation("cnphone", func(fl validator.FieldLevel) bool {
			return cnPhone.MatchString(fl.Field().String())
		})
	})
	return instance
}

func Struct(s interface{}) error {
	return get().Struct(s)
}

func Var(field interface{}, tag string) error {
	return get().Var(field, tag)
}

// Phone reports whether the value is a valid mainland mobile number.
func Phone(phone string) bool {
	return Var(phone, "required,cnphone") == nil
}
