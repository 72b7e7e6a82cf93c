package validator

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate

	utcOffsetPattern = regexp.MustCompile(`^[+-](0\d|1[0-4]):[0-5]\d$`)
)

// Validator represents a validator instance
type Validator struct {
	validate *validator.Validate
}

// New creates a new validator instance
func New() *Validator {
	once.Do(func() {
		validate = validator.New()

		_ = validate.RegisterValidation("utcoffset", validateUTCOffset)
		_ = validate.RegisterValidation("wsurl", validateWebsocketURL)

		// Use JSON tag names in error messages, falling back to mapstructure for config structs
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, key := range []string{"json", "mapstructure"} {
				name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
	})

	return &Validator{
		validate: validate,
	}
}

// Struct validates a struct
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("invalid validation error: %w", err)
		}

		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}

		errMsgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			errMsgs = append(errMsgs, formatError(fe))
		}
		return fmt.Errorf("validation failed: %s", strings.Join(errMsgs, "; "))
	}
	return nil
}

// Var validates a single variable
func (v *Validator) Var(field any, tag string) error {
	return v.validate.Var(field, tag)
}

// Engine returns the underlying validator engine
func (v *Validator) Engine() any {
	return v.validate
}

// formatError formats a validation error
func formatError(err validator.FieldError) string {
	field := err.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, err.Param())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "ipv4":
		return fmt.Sprintf("%s must be a valid IPv4 address", field)
	case "ipv6":
		return fmt.Sprintf("%s must be a valid IPv6 address", field)
	case "utcoffset":
		return fmt.Sprintf("%s must be a UTC offset like +08:00", field)
	case "wsurl":
		return fmt.Sprintf("%s must be a ws:// or wss:// URL", field)
	default:
		return fmt.Sprintf("%s failed on tag %s", field, err.Tag())
	}
}

func validateUTCOffset(fl validator.FieldLevel) bool {
	offset := fl.Field().String()
	if offset == "" {
		return true
	}
	return utcOffsetPattern.MatchString(offset)
}

func validateWebsocketURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "ws" || u.Scheme == "wss") && u.Host != ""
}
