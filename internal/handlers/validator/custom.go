package validator

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	recordingSchemes = map[string]bool{
		"s3":    true,
		"http":  true,
		"https": true,
		"file":  true,
	}

	counselorNameRegex = regexp.MustCompile(`^[\p{L}0-9 .,'-]+$`)
)

// recordingRefValidator accepts the references the media resolvers know how to open:
// an s3, http(s) or file URL, or an absolute local path.
func recordingRefValidator(fl validator.FieldLevel) bool {
	val, ok := stringValue(fl)
	if !ok {
		return false
	}
	if val == nil {
		return true
	}

	ref := strings.TrimSpace(*val)
	if ref == "" {
		return false
	}

	if filepath.IsAbs(ref) {
		return true
	}

	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	if !recordingSchemes[strings.ToLower(u.Scheme)] {
		return false
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return u.Path != ""
	default:
		// bucket or host, then the object
		return u.Host != "" && strings.Trim(u.Path, "/") != ""
	}
}

func counselorNameValidator(fl validator.FieldLevel) bool {
	val, ok := stringValue(fl)
	if !ok {
		return false
	}
	if val == nil {
		return true
	}
	return counselorNameRegex.MatchString(strings.TrimSpace(*val))
}

func stringValue(fl validator.FieldLevel) (*string, bool) {
	switch v := fl.Field().Interface().(type) {
	case string:
		return &v, true
	case *string:
		return v, true
	default:
		return nil, false
	}
}
