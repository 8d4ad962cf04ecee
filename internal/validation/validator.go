// Package validation wraps go-playground/validator for request payloads.
//
// Field names in errors are taken from the json tag so they match what the
// client sent.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
)

// RequestValidationError collects field errors keyed by json field name.
type RequestValidationError struct {
	fields map[string]string
}

func (e *RequestValidationError) Fields() map[string]string {
	return e.fields
}

func (e *RequestValidationError) Error() string {
	if len(e.fields) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(e.fields))
	for field, msg := range e.fields {
		messages = append(messages, fmt.Sprintf("%s: %s", field, msg))
	}
	return strings.Join(messages, "; ")
}

// NewFieldError builds a single-field error for checks the tags cannot express.
func NewFieldError(field, message string) *RequestValidationError {
	return &RequestValidationError{fields: map[string]string{field: message}}
}

func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
	})

	return validate
}

// ValidateStruct returns nil or a *RequestValidationError.
func ValidateStruct(s interface{}) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		name := fieldPath(fe)
		if _, seen := fields[name]; !seen {
			fields[name] = message(fe)
		}
	}

	return &RequestValidationError{fields: fields}
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s elements.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s elements.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "hexcolor":
		return "Enter a valid hex color."
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "username":
		return "Enter a valid username. It may contain only letters, numbers, and @/./+/-/_ characters."
	case "unique":
		return "Duplicate values are not allowed."
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}

// EchoValidator plugs the singleton into echo.Echo.Validator.
type EchoValidator struct{}

func (EchoValidator) Validate(i interface{}) error {
	return ValidateStruct(i)
}
