package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/queue"
	"github.com/unique-Sachin/CounselPro-AI/internal/store"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	"go.uber.org/zap"
)

// JobQueue admits analysis jobs.
type JobQueue interface {
	Enqueue(ctx context.Context, sessionID uuid.UUID, recordingRef string) (*queue.Handle, bool, error)
}

type TriggerResult struct {
	Accepted      bool
	CurrentStatus model.AnalysisStatus
}

// AnalysisStatus is what a poller sees. The analyses are only set once the run is over.
type AnalysisStatus struct {
	SessionID     uuid.UUID
	Status        model.AnalysisStatus
	VideoAnalysis *model.VideoAnalysis
	AudioAnalysis *model.AudioAnalysis
	FailureReason string
	UpdatedAt     time.Time
}

type Transcript struct {
	SessionID uuid.UUID
	// Status is empty when the session was never analyzed.
	Status     model.AnalysisStatus
	Available  bool
	Utterances []model.Utterance
	Metadata   *model.TranscriptMetadata
}

type AnalysisService struct {
	store store.Store
	queue JobQueue
	log   *zap.SugaredLogger
}

func NewAnalysisService(s store.Store, q JobQueue) *AnalysisService {
	return &AnalysisService{
		store: s,
		queue: q,
		log:   zap.S().Named("analysis_service"),
	}
}

// Trigger starts the analysis of a session. An empty recordingRef means the one the session was created with.
// Triggering a session whose analysis is in flight is not an error: the running job is reported with Accepted false.
func (as *AnalysisService) Trigger(ctx context.Context, sessionID uuid.UUID, recordingRef string) (TriggerResult, error) {
	session, err := as.store.Session().Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return TriggerResult{}, NewErrSessionNotFound(sessionID)
		}
		return TriggerResult{}, err
	}

	if recordingRef == "" {
		recordingRef = session.RecordingRef
	}
	if recordingRef == "" {
		return TriggerResult{}, NewErrMissingRecordingRef(sessionID)
	}

	h, accepted, err := as.queue.Enqueue(ctx, sessionID, recordingRef)
	if err != nil {
		if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrQueueClosed) || errors.Is(err, queue.ErrQueueNotStarted) {
			return TriggerResult{}, NewErrAnalysisUnavailable(sessionID, err)
		}
		return TriggerResult{}, err
	}

	if accepted {
		as.log.Infow("analysis triggered", "session_id", sessionID, "generation", h.Generation)
	} else {
		as.log.Debugw("analysis already in progress", "session_id", sessionID, "status", h.Status())
	}

	return TriggerResult{Accepted: accepted, CurrentStatus: h.Status()}, nil
}

func (as *AnalysisService) GetStatus(ctx context.Context, sessionID uuid.UUID) (*AnalysisStatus, error) {
	analysis, err := as.store.Analysis().Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrAnalysisNotFound(sessionID)
		}
		return nil, err
	}

	status := newAnalysisStatus(*analysis)
	return &status, nil
}

// ListStatuses returns the status of the given sessions. Sessions never analyzed are left out.
func (as *AnalysisService) ListStatuses(ctx context.Context, sessionIDs []uuid.UUID) ([]AnalysisStatus, error) {
	if len(sessionIDs) == 0 {
		return []AnalysisStatus{}, nil
	}

	analyses, err := as.store.Analysis().List(ctx, store.NewAnalysisQueryFilter().BySessionIDs(sessionIDs...))
	if err != nil {
		return nil, err
	}

	bySession := make(map[uuid.UUID]model.SessionAnalysis, len(analyses))
	for _, a := range analyses {
		bySession[a.SessionID] = a
	}

	statuses := make([]AnalysisStatus, 0, len(analyses))
	for _, id := range sessionIDs {
		if a, found := bySession[id]; found {
			statuses = append(statuses, newAnalysisStatus(a))
			delete(bySession, id)
		}
	}
	return statuses, nil
}

// GetTranscript returns the transcript of the last run only when that run completed and produced one.
// Otherwise the status alone is returned, so a transcript is never shown while a run is in flight.
func (as *AnalysisService) GetTranscript(ctx context.Context, sessionID uuid.UUID) (*Transcript, error) {
	if _, err := as.store.Session().Get(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrSessionNotFound(sessionID)
		}
		return nil, err
	}

	result := &Transcript{SessionID: sessionID}

	analysis, err := as.store.Analysis().Get(ctx, sessionID)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		return result, nil
	case err != nil:
		return nil, err
	}

	result.Status = analysis.Status
	if analysis.Status != model.AnalysisStatusCompleted || !analysis.TranscriptAvailable {
		return result, nil
	}

	transcript, err := as.store.Transcript().Get(ctx, sessionID)
	switch {
	case errors.Is(err, store.ErrRecordNotFound):
		as.log.Warnw("completed analysis reports a transcript that is not stored", "session_id", sessionID)
		return result, nil
	case err != nil:
		return nil, err
	}

	metadata := transcript.Metadata.Data()
	result.Available = true
	result.Utterances = transcript.Utterances
	result.Metadata = &metadata

	return result, nil
}

func newAnalysisStatus(a model.SessionAnalysis) AnalysisStatus {
	status := AnalysisStatus{
		SessionID: a.SessionID,
		Status:    a.Status,
		UpdatedAt: a.UpdatedAt,
	}
	if a.Status.IsTerminal() {
		status.VideoAnalysis = a.VideoAnalysis
		status.AudioAnalysis = a.AudioAnalysis
		status.FailureReason = a.FailureReason
	}
	return status
}
