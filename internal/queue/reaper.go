package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lthibault/jitterbug/v2"
	"github.com/unique-Sachin/CounselPro-AI/internal/store"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	"github.com/unique-Sachin/CounselPro-AI/pkg/metrics"
	"go.uber.org/zap"
)

const (
	DefaultReaperInterval = time.Minute
	reapBatchSize         = 100
)

// Owner tells whether a live job of this process holds a session.
type Owner interface {
	Owns(sessionID uuid.UUID) bool
}

// Reaper fails PENDING and RUNNING analyses that nobody is working on anymore,
// which is what a crash or a restart leaves behind.
type Reaper struct {
	store      store.Store
	owner      Owner
	interval   time.Duration
	staleAfter time.Duration
	log        *zap.SugaredLogger
}

// NewReaper creates a reaper. Records untouched for staleAfter and not owned by owner are failed.
func NewReaper(s store.Store, owner Owner, interval, staleAfter time.Duration) *Reaper {
	if interval <= 0 {
		interval = DefaultReaperInterval
	}
	return &Reaper{
		store:      s,
		owner:      owner,
		interval:   interval,
		staleAfter: staleAfter,
		log:        zap.S().Named("reaper"),
	}
}

// Start reaps once and then on every tick until ctx is done.
func (r *Reaper) Start(ctx context.Context) {
	if _, err := r.Reap(ctx); err != nil {
		r.log.Errorw("initial reap failed", "error", err)
	}

	ticker := jitterbug.New(r.interval, &jitterbug.Norm{Stdev: r.interval / 10, Mean: 0})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			if _, err := r.Reap(ctx); err != nil {
				r.log.Errorw("reap failed", "error", err)
			}
		}
	}()
}

// Reap fails the orphaned analyses and returns how many were recovered.
func (r *Reaper) Reap(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-r.staleAfter)
	filter := store.NewAnalysisQueryFilter().
		ByStatus(model.AnalysisStatusPending, model.AnalysisStatusRunning).
		UpdatedBefore(cutoff).
		WithLimit(reapBatchSize)

	candidates, err := r.store.Analysis().List(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("listing active analyses: %w", err)
	}

	recovered := 0
	for _, a := range candidates {
		if r.owner != nil && r.owner.Owns(a.SessionID) {
			continue
		}

		reason := fmt.Sprintf("abandoned: no progress since %s", a.UpdatedAt.UTC().Format(time.RFC3339))
		err := r.store.WithSessionLock(a.SessionID, func() error {
			return r.store.Analysis().UpdateStatus(ctx, a.SessionID, a.Generation, model.AnalysisStatusFailed, reason)
		})
		switch {
		case err == nil:
			recovered++
			r.log.Infow("recovered abandoned analysis", "session_id", a.SessionID, "generation", a.Generation, "status", a.Status)
		case errors.Is(err, store.ErrStaleGeneration):
			// a new run took the session over since the listing
		default:
			r.log.Errorw("failed to recover abandoned analysis", "session_id", a.SessionID, "error", err)
		}
	}

	if recovered > 0 {
		metrics.IncreaseReaperRecoveredRunsMetric(recovered)
	}
	return recovered, nil
}
