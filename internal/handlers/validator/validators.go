package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationRule struct {
	Rule func(v *validator.Validate)
}

// Validator checks request bodies against their struct tags and the custom rules it was built with.
// Failures name the JSON field, not the Go one.
type Validator struct {
	validate *validator.Validate
}

func NewValidator(rules ...ValidationRule) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	for _, r := range rules {
		r.Rule(v)
	}
	return &Validator{validate: v}
}

// NewSessionValidator validates session registration forms.
func NewSessionValidator() *Validator {
	return NewValidator(NewSessionValidationRules()...)
}

// NewAnalysisValidator validates analysis trigger requests.
func NewAnalysisValidator() *Validator {
	return NewValidator(NewAnalysisValidationRules()...)
}

func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "recording_ref":
		return fmt.Sprintf("%s must be an absolute path or an s3, http(s) or file url", fe.Field())
	case "counselor_name":
		return fmt.Sprintf("%s contains characters that are not allowed", fe.Field())
	default:
		return fmt.Sprintf("%s failed the %s check", fe.Field(), fe.Tag())
	}
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
