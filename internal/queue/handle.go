package queue

import (
	"time"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/pipeline"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
)

// Handle is the caller's view of an admitted job.
type Handle struct {
	SessionID    uuid.UUID
	RecordingRef string
	Generation   int64
	EnqueuedAt   time.Time
	state        *pipeline.JobState
}

func (h *Handle) Status() model.AnalysisStatus {
	return h.state.Status()
}

func (h *Handle) StartedAt() *time.Time {
	return h.state.StartedAt()
}

func (h *Handle) FinishedAt() *time.Time {
	return h.state.FinishedAt()
}

func (h *Handle) job() pipeline.Job {
	return pipeline.Job{
		SessionID:    h.SessionID,
		RecordingRef: h.RecordingRef,
		Generation:   h.Generation,
		State:        h.state,
	}
}
