package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// FatalExtractionError aborts the job: without media nothing else can run.
type FatalExtractionError struct {
	error
}

func NewFatalExtractionError(err error) *FatalExtractionError {
	return &FatalExtractionError{fmt.Errorf("media extraction failed: %w", err)}
}

func (e *FatalExtractionError) Unwrap() error { return e.error }

// StageUnavailableError is returned by a stage whose collaborator cannot serve the request.
// The stage result is dropped and the job goes on.
type StageUnavailableError struct {
	error
	Stage string
}

func NewStageUnavailableError(stage string, err error) *StageUnavailableError {
	return &StageUnavailableError{error: fmt.Errorf("%s unavailable: %w", stage, err), Stage: stage}
}

func (e *StageUnavailableError) Unwrap() error { return e.error }

// TimeoutError is produced when a stage or the whole job exceeds its budget.
type TimeoutError struct {
	Stage  string
	Budget time.Duration
}

func NewTimeoutError(stage string, budget time.Duration) *TimeoutError {
	return &TimeoutError{Stage: stage, Budget: budget}
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s exceeded its %s budget", e.Stage, e.Budget)
}

// PersistenceError is returned once the result store write has been retried without success.
type PersistenceError struct {
	error
}

func NewPersistenceError(err error) *PersistenceError {
	return &PersistenceError{fmt.Errorf("persisting results: %w", err)}
}

func (e *PersistenceError) Unwrap() error { return e.error }

// ErrInvalidTransition is returned when a job is asked to move to a state its lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
