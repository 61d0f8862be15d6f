package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrSessionNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "session")
}

func NewErrAnalysisNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "analysis of session")
}

type ErrInvalidRequest struct {
	error
}

func NewErrInvalidRequest(format string, args ...any) *ErrInvalidRequest {
	return &ErrInvalidRequest{fmt.Errorf("bad request: "+format, args...)}
}

func NewErrMissingRecordingRef(sessionID uuid.UUID) *ErrInvalidRequest {
	return NewErrInvalidRequest("session %s has no recording reference", sessionID)
}

// ErrAnalysisUnavailable means the job could not be admitted right now. The caller may retry later.
type ErrAnalysisUnavailable struct {
	error
}

func NewErrAnalysisUnavailable(sessionID uuid.UUID, cause error) *ErrAnalysisUnavailable {
	return &ErrAnalysisUnavailable{fmt.Errorf("analysis of session %s cannot be started: %w", sessionID, cause)}
}

func (e *ErrAnalysisUnavailable) Unwrap() error {
	return e.error
}
