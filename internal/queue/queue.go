package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/pipeline"
	"github.com/unique-Sachin/CounselPro-AI/internal/store"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	"github.com/unique-Sachin/CounselPro-AI/pkg/metrics"
	"go.uber.org/zap"
)

const (
	DefaultCapacity = 64
	DefaultWorkers  = 4

	shutdownReason     = "interrupted: service shutting down"
	statusWriteTimeout = 10 * time.Second
)

// Runner runs one job to a terminal status.
type Runner interface {
	Run(ctx context.Context, job pipeline.Job) model.AnalysisStatus
}

// Queue admits at most one active job per session and feeds a bounded pool of workers.
type Queue struct {
	store    store.Store
	runner   Runner
	registry *registry
	log      *zap.SugaredLogger

	ch      chan *Handle
	slots   chan struct{}
	workers int

	wg         sync.WaitGroup
	cancelOnce sync.Once
	cancel     context.CancelFunc
	mu         sync.Mutex
	started    bool
	closed     atomic.Bool

	lastGeneration atomic.Int64
}

// NewQueue creates a new Queue with the given capacity and worker count.
func NewQueue(s store.Store, runner Runner, capacity int, workers int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Queue{
		store:    s,
		runner:   runner,
		registry: newRegistry(),
		log:      zap.S().Named("queue"),
		ch:       make(chan *Handle, capacity),
		slots:    make(chan struct{}, capacity),
		workers:  workers,
	}
}

// Start launches the workers. Jobs keep the values of ctx but not its cancellation:
// only Shutdown interrupts them, once its deadline has passed.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return errors.New("queue already started")
	}
	if q.closed.Load() {
		return ErrQueueClosed
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	q.cancel = cancel
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	q.started = true
	q.log.Infow("queue started", "workers", q.workers, "capacity", cap(q.ch))
	return nil
}

// Enqueue admits a job for sessionID. If the session already has an active job its handle is
// returned with accepted set to false. The PENDING status is stored before the job is handed to a worker.
func (q *Queue) Enqueue(ctx context.Context, sessionID uuid.UUID, recordingRef string) (*Handle, bool, error) {
	if err := q.accepting(); err != nil {
		metrics.IncreaseQueueAdmissionsMetric("rejected")
		return nil, false, err
	}

	h, admitted := q.registry.reserve(sessionID, func() *Handle {
		return &Handle{
			SessionID:    sessionID,
			RecordingRef: recordingRef,
			Generation:   q.nextGeneration(),
			EnqueuedAt:   time.Now().UTC(),
			state:        pipeline.NewJobState(),
		}
	})
	if !admitted {
		metrics.IncreaseQueueAdmissionsMetric("duplicate")
		q.log.Debugw("session already has an active job", "session_id", sessionID, "status", h.Status())
		return h, false, nil
	}

	// reserve room in the channel before anything is written so a full queue leaves no trace
	select {
	case q.slots <- struct{}{}:
	default:
		q.registry.release(h)
		metrics.IncreaseQueueAdmissionsMetric("rejected")
		return nil, false, ErrQueueFull
	}

	err := q.store.WithSessionLock(sessionID, func() error {
		return q.store.Analysis().Upsert(ctx, model.NewPendingAnalysis(sessionID, h.Generation))
	})
	if err != nil {
		<-q.slots
		q.registry.release(h)
		metrics.IncreaseQueueAdmissionsMetric("rejected")
		return nil, false, fmt.Errorf("recording pending status: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed.Load() {
		<-q.slots
		q.abandon(h, shutdownReason)
		metrics.IncreaseQueueAdmissionsMetric("rejected")
		return nil, false, ErrQueueClosed
	}
	q.ch <- h

	metrics.IncreaseQueueAdmissionsMetric("accepted")
	q.log.Infow("job admitted", "session_id", sessionID, "generation", h.Generation)
	return h, true, nil
}

// Get returns the active job of the session, if any.
func (q *Queue) Get(sessionID uuid.UUID) (*Handle, bool) {
	return q.registry.get(sessionID)
}

// Owns reports whether a job of this process holds the session.
func (q *Queue) Owns(sessionID uuid.UUID) bool {
	_, found := q.registry.get(sessionID)
	return found
}

// InFlight returns the number of admitted jobs that did not reach a terminal status yet.
func (q *Queue) InFlight() int {
	return q.registry.size()
}

// Shutdown stops accepting work and lets running jobs finish up to deadline. Jobs still running after
// the deadline are interrupted and jobs that never started are marked FAILED.
func (q *Queue) Shutdown(deadline time.Duration) {
	q.cancelOnce.Do(func() {
		q.mu.Lock()
		q.closed.Store(true)
		close(q.ch)
		q.mu.Unlock()

		done := make(chan struct{})
		go func() {
			defer close(done)
			q.wg.Wait()
		}()

		if deadline > 0 {
			timer := time.NewTimer(deadline)
			defer timer.Stop()
			select {
			case <-done:
			case <-timer.C:
				q.log.Warn("queue shutdown deadline reached; interrupting running jobs")
			}
		}

		if q.cancel != nil {
			q.cancel()
		}
		<-done

		for h := range q.ch {
			<-q.slots
			q.abandon(h, shutdownReason)
		}
		q.log.Info("queue stopped")
	})
}

func (q *Queue) worker(ctx context.Context, idx int) {
	defer q.wg.Done()
	log := q.log.With("worker", idx)
	for {
		select {
		case <-ctx.Done():
			log.Debug("worker stopping due to context cancellation")
			return
		case h, ok := <-q.ch:
			if !ok {
				log.Debug("queue closed, worker exiting")
				return
			}
			<-q.slots

			if q.closed.Load() {
				q.abandon(h, shutdownReason)
				continue
			}

			jobLog := log.With("session_id", h.SessionID, "generation", h.Generation)
			jobLog.Infow("processing job", "waited", time.Since(h.EnqueuedAt))
			start := time.Now()
			status := q.runner.Run(ctx, h.job())
			q.registry.release(h)
			jobLog.Infow("job processed", "status", status, "duration", time.Since(start))
		}
	}
}

// abandon fails a job that will never run and frees its session.
func (q *Queue) abandon(h *Handle, reason string) {
	defer q.registry.release(h)

	ctx, cancel := context.WithTimeout(context.Background(), statusWriteTimeout)
	defer cancel()

	ended := false
	err := q.store.WithSessionLock(h.SessionID, func() error {
		if h.state.Status().IsTerminal() {
			return nil
		}
		if err := q.store.Analysis().UpdateStatus(ctx, h.SessionID, h.Generation, model.AnalysisStatusFailed, reason); err != nil {
			return err
		}
		ended = h.state.Transition(model.AnalysisStatusFailed) == nil
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, store.ErrStaleGeneration):
		_ = h.state.Transition(model.AnalysisStatusFailed)
	default:
		q.log.Errorw("failed to mark abandoned job", "session_id", h.SessionID, "error", err)
		ended = h.state.Transition(model.AnalysisStatusFailed) == nil
	}

	if ended {
		metrics.IncreasePipelineJobsTotalMetric(model.AnalysisStatusFailed.String())
		q.log.Infow("job abandoned", "session_id", h.SessionID, "generation", h.Generation, "reason", reason)
	}
}

func (q *Queue) accepting() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed.Load() {
		return ErrQueueClosed
	}
	if !q.started {
		return ErrQueueNotStarted
	}
	return nil
}

// nextGeneration returns a wall clock based token that is strictly increasing within the process.
func (q *Queue) nextGeneration() int64 {
	for {
		last := q.lastGeneration.Load()
		next := time.Now().UnixNano()
		if next <= last {
			next = last + 1
		}
		if q.lastGeneration.CompareAndSwap(last, next) {
			return next
		}
	}
}
