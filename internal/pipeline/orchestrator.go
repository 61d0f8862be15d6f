package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/unique-Sachin/CounselPro-AI/internal/store"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	"github.com/unique-Sachin/CounselPro-AI/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const statusWriteTimeout = 10 * time.Second

// Orchestrator runs one analysis job end to end: media extraction, transcription and visual
// assessment in parallel, content verification, persistence and notification.
type Orchestrator struct {
	store           store.Store
	extractor       MediaExtractor
	transcriber     Transcriber
	visual          VisualAssessor
	verifier        ContentVerifier
	notifier        Notifier
	timeouts        Timeouts
	persistAttempts uint64
	newBackOff      func() backoff.BackOff
	log             *zap.SugaredLogger
}

func NewOrchestrator(
	s store.Store,
	extractor MediaExtractor,
	transcriber Transcriber,
	visual VisualAssessor,
	verifier ContentVerifier,
	notifier Notifier,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		store:           s,
		extractor:       extractor,
		transcriber:     transcriber,
		visual:          visual,
		verifier:        verifier,
		notifier:        notifier,
		persistAttempts: 5,
		newBackOff:      defaultBackOff,
		log:             zap.S().Named("orchestrator"),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run drives job from PENDING to a terminal status and returns that status.
// When the job budget expires or ctx is cancelled the job is marked FAILED right away and any stage
// still running is abandoned; its late writes are refused by the generation check.
func (o *Orchestrator) Run(ctx context.Context, job Job) model.AnalysisStatus {
	if job.State == nil {
		job.State = NewJobState()
	}
	log := o.log.With("session_id", job.SessionID, "generation", job.Generation)

	metrics.IncreaseJobsInFlight()
	defer metrics.DecreaseJobsInFlight()

	runCtx, cancel := o.jobContext(ctx)
	defer cancel()

	done := make(chan model.AnalysisStatus, 1)
	go func() {
		done <- o.execute(runCtx, job, log)
	}()

	select {
	case status := <-done:
		return status
	case <-runCtx.Done():
	}

	// the run may have finished at the same instant
	select {
	case status := <-done:
		return status
	default:
	}

	reason := o.interruptReason(ctx, runCtx)
	log.Errorw("abandoning job", "reason", reason)
	return o.fail(ctx, job, reason, log)
}

// interruptReason explains why runCtx ended: the parent was cancelled or the job ran out of time.
func (o *Orchestrator) interruptReason(parent, runCtx context.Context) string {
	if parent.Err() != nil {
		return "interrupted: service shutting down"
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && o.timeouts.Job > 0 {
		return NewTimeoutError("job", o.timeouts.Job).Error()
	}
	return "interrupted"
}

func (o *Orchestrator) jobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeouts.Job > 0 {
		return context.WithTimeout(ctx, o.timeouts.Job)
	}
	return context.WithCancel(ctx)
}

func (o *Orchestrator) execute(ctx context.Context, job Job, log *zap.SugaredLogger) model.AnalysisStatus {
	if err := o.markRunning(ctx, job); err != nil {
		if errors.Is(err, store.ErrStaleGeneration) {
			log.Warnw("run superseded before it started", "error", err)
			return model.AnalysisStatusFailed
		}
		log.Errorw("failed to mark job as running", "error", err)
		reason := NewPersistenceError(err).Error()
		if ctx.Err() != nil {
			reason = o.interruptReason(context.Background(), ctx)
		}
		return o.fail(ctx, job, reason, log)
	}
	log.Infow("job running", "recording_ref", job.RecordingRef)

	extraction := runStage(ctx, StageExtraction, o.timeouts.Extraction, log, func(c context.Context) StageResult[*Artifacts] {
		return o.extractor.Run(c, job)
	})
	if !extraction.IsOk() || extraction.Value() == nil {
		cause := extraction.Err()
		if cause == nil {
			cause = errors.New(extraction.Describe())
		}
		fatal := NewFatalExtractionError(cause)
		log.Errorw("fatal stage failed", "stage", StageExtraction, "error", fatal)

		analysis := o.newAnalysis(job, model.AnalysisStatusFailed)
		analysis.FailureReason = fatal.Error()
		return o.finish(ctx, job, analysis, nil, log)
	}

	artifacts := extraction.Value()
	defer func() {
		if err := o.extractor.Cleanup(artifacts); err != nil {
			log.Warnw("failed to clean up artifacts", "work_dir", artifacts.WorkDir, "error", err)
		}
	}()

	var (
		transcription StageResult[Transcript]
		visual        StageResult[*model.VideoAnalysis]
		g             errgroup.Group
	)
	g.Go(func() error {
		transcription = runStage(ctx, StageTranscription, o.timeouts.Transcription, log, func(c context.Context) StageResult[Transcript] {
			return o.transcriber.Run(c, artifacts)
		})
		return nil
	})
	g.Go(func() error {
		visual = runStage(ctx, StageVisual, o.timeouts.Visual, log, func(c context.Context) StageResult[*model.VideoAnalysis] {
			return o.visual.Run(c, artifacts)
		})
		return nil
	})
	_ = g.Wait()

	verification := Skipped[*model.AudioAnalysis]("no transcript")
	if transcription.IsOk() {
		transcript := transcription.Value()
		verification = runStage(ctx, StageVerification, o.timeouts.Verification, log, func(c context.Context) StageResult[*model.AudioAnalysis] {
			return o.verifier.Run(c, transcript)
		})
	} else {
		metrics.ObserveStage(StageVerification, OutcomeSkipped.String(), 0)
	}

	analysis := o.newAnalysis(job, model.AnalysisStatusCompleted)
	if visual.IsOk() {
		analysis.VideoAnalysis = visual.Value()
	}
	if verification.IsOk() {
		analysis.AudioAnalysis = verification.Value()
	}

	var raw *model.RawTranscript
	if transcription.IsOk() {
		t := transcription.Value()
		rt := model.NewRawTranscript(job.SessionID, t.Utterances, t.Metadata)
		raw = &rt
		analysis.TranscriptAvailable = true
	}

	if degraded := degradedStages(transcription, visual, verification); degraded != "" {
		log.Infow("completing with partial data", "stages", degraded)
	}

	return o.finish(ctx, job, analysis, raw, log)
}

func (o *Orchestrator) newAnalysis(job Job, status model.AnalysisStatus) model.SessionAnalysis {
	now := time.Now().UTC()
	return model.SessionAnalysis{
		SessionID:  job.SessionID,
		Status:     status,
		Generation: job.Generation,
		StartedAt:  job.State.StartedAt(),
		FinishedAt: &now,
	}
}

// finish persists the terminal aggregate, then notifies.
func (o *Orchestrator) finish(ctx context.Context, job Job, analysis model.SessionAnalysis, transcript *model.RawTranscript, log *zap.SugaredLogger) model.AnalysisStatus {
	status := analysis.Status

	err := o.persist(ctx, job, analysis, transcript, log)
	switch {
	case err == nil:
		log.Infow("job finished", "status", status, "transcript_available", analysis.TranscriptAvailable,
			"video_analysis", analysis.VideoAnalysis != nil, "audio_analysis", analysis.AudioAnalysis != nil)
	case errors.Is(err, store.ErrStaleGeneration):
		log.Warnw("results dropped: run is no longer current", "error", err)
		return job.State.Status()
	default:
		perr := NewPersistenceError(err)
		log.Errorw("giving up on persistence", "error", perr)
		reason := perr.Error()
		if ctx.Err() != nil {
			reason = o.interruptReason(context.Background(), ctx)
		}
		return o.fail(ctx, job, reason, log)
	}

	metrics.IncreasePipelineJobsTotalMetric(status.String())
	o.notify(ctx, job, status, log)

	return status
}

// persist writes the transcript and the analysis in one transaction, retrying with backoff.
// A stale generation is not retried.
func (o *Orchestrator) persist(ctx context.Context, job Job, analysis model.SessionAnalysis, transcript *model.RawTranscript, log *zap.SugaredLogger) error {
	b := backoff.WithContext(backoff.WithMaxRetries(o.newBackOff(), o.persistAttempts-1), ctx)

	return backoff.RetryNotify(func() error {
		err := o.writeResults(ctx, job, analysis, transcript)
		if errors.Is(err, store.ErrStaleGeneration) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, next time.Duration) {
		metrics.IncreasePersistenceRetriesMetric()
		log.Warnw("persistence attempt failed", "error", err, "retry_in", next)
	})
}

func (o *Orchestrator) writeResults(ctx context.Context, job Job, analysis model.SessionAnalysis, transcript *model.RawTranscript) error {
	return o.store.WithSessionLock(job.SessionID, func() error {
		if job.State.Status().IsTerminal() {
			return store.ErrStaleGeneration
		}

		txCtx, err := o.store.NewTransactionContext(ctx)
		if err != nil {
			return err
		}

		if transcript != nil {
			if err := o.store.Transcript().Upsert(txCtx, *transcript); err != nil {
				_, _ = store.Rollback(txCtx)
				return err
			}
		}

		if err := o.store.Analysis().UpsertIfCurrent(txCtx, analysis); err != nil {
			_, _ = store.Rollback(txCtx)
			return err
		}

		if _, err := store.Commit(txCtx); err != nil {
			return err
		}

		if err := job.State.Transition(analysis.Status); err != nil {
			o.log.Warnw("persisted status does not match in-memory state", "session_id", job.SessionID, "error", err)
		}
		return nil
	})
}

func (o *Orchestrator) markRunning(ctx context.Context, job Job) error {
	b := backoff.WithContext(backoff.WithMaxRetries(o.newBackOff(), o.persistAttempts-1), ctx)

	return backoff.Retry(func() error {
		err := o.store.WithSessionLock(job.SessionID, func() error {
			if err := o.store.Analysis().UpdateStatus(ctx, job.SessionID, job.Generation, model.AnalysisStatusRunning, ""); err != nil {
				return err
			}
			return job.State.Transition(model.AnalysisStatusRunning)
		})
		if errors.Is(err, store.ErrStaleGeneration) || errors.Is(err, ErrInvalidTransition) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// fail marks the job FAILED and, when this call is the one that ended the run, reports and notifies.
func (o *Orchestrator) fail(ctx context.Context, job Job, reason string, log *zap.SugaredLogger) model.AnalysisStatus {
	status, ended := o.markFailed(ctx, job, reason, log)
	if ended {
		metrics.IncreasePipelineJobsTotalMetric(status.String())
		o.notify(ctx, job, status, log)
	}
	return status
}

// markFailed is a best-effort status write used when the run cannot persist its results.
// It returns the status the session ends up with and whether this call ended the run.
func (o *Orchestrator) markFailed(ctx context.Context, job Job, reason string, log *zap.SugaredLogger) (model.AnalysisStatus, bool) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()

	final := model.AnalysisStatusFailed
	ended := false
	err := o.store.WithSessionLock(job.SessionID, func() error {
		if s := job.State.Status(); s.IsTerminal() {
			final = s
			return nil
		}
		if err := o.store.Analysis().UpdateStatus(writeCtx, job.SessionID, job.Generation, model.AnalysisStatusFailed, reason); err != nil {
			return err
		}
		ended = job.State.Transition(model.AnalysisStatusFailed) == nil
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, store.ErrStaleGeneration):
		log.Warnw("failure not recorded: run is no longer current", "reason", reason)
		_ = job.State.Transition(model.AnalysisStatusFailed)
	default:
		log.Errorw("failed to record job failure", "reason", reason, "error", err)
		ended = job.State.Transition(model.AnalysisStatusFailed) == nil
	}

	return final, ended
}

func (o *Orchestrator) notify(ctx context.Context, job Job, status model.AnalysisStatus, log *zap.SugaredLogger) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Notify(context.WithoutCancel(ctx), job.SessionID, status); err != nil {
		log.Warnw("failed to notify", "status", status, "error", err)
	}
}

// runStage runs fn under its own budget. A stage that outlives the budget is abandoned and
// reported as Failed(TimeoutError); a panicking stage is reported as Failed.
func runStage[T any](ctx context.Context, stage string, budget time.Duration, log *zap.SugaredLogger, fn func(context.Context) StageResult[T]) StageResult[T] {
	start := time.Now()

	var (
		stageCtx context.Context
		cancel   context.CancelFunc
	)
	if budget > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, budget)
	} else {
		stageCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan StageResult[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Failed[T](fmt.Errorf("%s panicked: %v", stage, r))
			}
		}()
		done <- fn(stageCtx)
	}()

	var result StageResult[T]
	select {
	case result = <-done:
	case <-stageCtx.Done():
		result = Failed[T](stageCtx.Err())
	}

	if result.IsFailed() && ctx.Err() == nil && errors.Is(stageCtx.Err(), context.DeadlineExceeded) && !IsTimeout(result.Err()) {
		result = Failed[T](NewTimeoutError(stage, budget))
	}

	elapsed := time.Since(start)
	metrics.ObserveStage(stage, result.Outcome().String(), elapsed)

	switch result.Outcome() {
	case OutcomeFailed:
		log.Warnw("stage failed", "stage", stage, "error", result.Err(), "elapsed", elapsed)
	case OutcomeSkipped:
		log.Infow("stage skipped", "stage", stage, "reason", result.Reason(), "elapsed", elapsed)
	default:
		log.Infow("stage succeeded", "stage", stage, "elapsed", elapsed)
	}

	return result
}

func degradedStages(transcription StageResult[Transcript], visual StageResult[*model.VideoAnalysis], verification StageResult[*model.AudioAnalysis]) string {
	var parts []string
	if !transcription.IsOk() {
		parts = append(parts, StageTranscription+" "+transcription.Describe())
	}
	if !visual.IsOk() {
		parts = append(parts, StageVisual+" "+visual.Describe())
	}
	if !verification.IsOk() {
		parts = append(parts, StageVerification+" "+verification.Describe())
	}
	return strings.Join(parts, "; ")
}
