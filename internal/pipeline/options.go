package pipeline

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/unique-Sachin/CounselPro-AI/internal/config"
)

// Timeouts are the budgets the orchestrator enforces. A zero budget means no stage level limit.
type Timeouts struct {
	Job           time.Duration
	Extraction    time.Duration
	Transcription time.Duration
	Visual        time.Duration
	Verification  time.Duration
}

func TimeoutsFromConfig(cfg config.Pipeline) Timeouts {
	return Timeouts{
		Job:           cfg.JobTimeout,
		Extraction:    cfg.ExtractionTimeout,
		Transcription: cfg.TranscriptionTimeout,
		Visual:        cfg.VisualTimeout,
		Verification:  cfg.VerificationTimeout,
	}
}

type OrchestratorOption func(o *Orchestrator)

func WithTimeouts(t Timeouts) OrchestratorOption {
	return func(o *Orchestrator) {
		o.timeouts = t
	}
}

// WithPersistenceAttempts bounds the number of tries of the final result write.
func WithPersistenceAttempts(attempts uint64) OrchestratorOption {
	return func(o *Orchestrator) {
		if attempts > 0 {
			o.persistAttempts = attempts
		}
	}
}

// WithBackOff replaces the policy used between persistence attempts.
func WithBackOff(fn func() backoff.BackOff) OrchestratorOption {
	return func(o *Orchestrator) {
		o.newBackOff = fn
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 0
	return b
}
