package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/estate_console/config"
	"github.com/ttacon/libphonenumber"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)
)

// Validator returns the shared validator with the console's custom tags:
//   - phone: a valid phone number for config.PhoneRegion()
//   - pincode: a six digit postal code
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return ValidatePhoneNumber(fl.Field().String(), config.PhoneRegion()) == nil
		})
		_ = validate.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
			return pincodePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err // Phone number is invalid
	}

	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}

	return nil
}

// NormalizePhoneNumber formats a valid number in E.164 so the backend stores one shape.
func NormalizePhoneNumber(phoneNumber, countryCode string) (string, error) {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return "", err
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("phone number is not valid")
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

// ProcessValidationErrors maps field names (json tag when present) to the failed rule.
func ProcessValidationErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return map[string]string{"_": err.Error()}
	}

	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[LowercaseFirst(ve.Field())] = ve.Tag()
	}
	return errorResponse
}

// turn CustomerName to customerName
func LowercaseFirst(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(s[:1]) + s[1:]
}
