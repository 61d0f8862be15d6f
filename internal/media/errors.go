package media

import "fmt"

type UnsupportedRefError struct {
	error
}

func NewUnsupportedRefError(ref string) *UnsupportedRefError {
	return &UnsupportedRefError{fmt.Errorf("no resolver supports recording reference %q", ref)}
}

type InvalidRefError struct {
	error
}

func NewInvalidRefError(ref string, reason string) *InvalidRefError {
	return &InvalidRefError{fmt.Errorf("invalid recording reference %q: %s", ref, reason)}
}
