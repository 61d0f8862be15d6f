package pipeline

// Outcome tags a StageResult.
type Outcome int

const (
	OutcomeOk Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOk:
		return "ok"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// StageResult is what every stage hands back to the orchestrator: a value, a skip reason or an error.
// It is never persisted.
type StageResult[T any] struct {
	outcome Outcome
	value   T
	reason  string
	err     error
}

func Ok[T any](value T) StageResult[T] {
	return StageResult[T]{outcome: OutcomeOk, value: value}
}

func Skipped[T any](reason string) StageResult[T] {
	return StageResult[T]{outcome: OutcomeSkipped, reason: reason}
}

func Failed[T any](err error) StageResult[T] {
	return StageResult[T]{outcome: OutcomeFailed, err: err}
}

func (r StageResult[T]) Outcome() Outcome { return r.outcome }
func (r StageResult[T]) IsOk() bool       { return r.outcome == OutcomeOk }
func (r StageResult[T]) IsSkipped() bool  { return r.outcome == OutcomeSkipped }
func (r StageResult[T]) IsFailed() bool   { return r.outcome == OutcomeFailed }

// Value returns the payload of an Ok result and the zero value otherwise.
func (r StageResult[T]) Value() T { return r.value }

func (r StageResult[T]) Reason() string { return r.reason }

func (r StageResult[T]) Err() error { return r.err }

// Describe returns a short human readable account of a non Ok result.
func (r StageResult[T]) Describe() string {
	switch r.outcome {
	case OutcomeSkipped:
		return "skipped: " + r.reason
	case OutcomeFailed:
		if r.err == nil {
			return "failed"
		}
		return "failed: " + r.err.Error()
	default:
		return "ok"
	}
}
