package validate

import (
	"github.com/go-playground/validator/v10"
)

// New returns a validator instance with the payment-specific rules
// registered. Handlers share one instance; validator.Validate caches struct
// metadata and is safe for concurrent use.
func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("luhn", luhnTag)
	return v
}

func luhnTag(fl validator.FieldLevel) bool {
	return Luhn(fl.Field().String())
}

// Luhn reports whether the value is all digits and passes the Luhn checksum.
func Luhn(number string) bool {
	if number == "" {
		return false
	}

	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		digit := int(c - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}
	return sum%10 == 0
}
