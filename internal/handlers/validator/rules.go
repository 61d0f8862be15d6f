package validator

import "github.com/go-playground/validator/v10"

func registerFn(tag string, fn func(fl validator.FieldLevel) bool) func(v *validator.Validate) {
	return func(v *validator.Validate) {
		_ = v.RegisterValidation(tag, fn)
	}
}

func NewSessionValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("recording_ref", recordingRefValidator),
		},
		{
			Rule: registerFn("counselor_name", counselorNameValidator),
		},
	}
}

func NewAnalysisValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("recording_ref", recordingRefValidator),
		},
	}
}
