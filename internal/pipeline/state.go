package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
)

// transitions lists the statuses reachable from each status. PENDING may go straight to FAILED
// when the job is abandoned before a worker starts it.
var transitions = map[model.AnalysisStatus][]model.AnalysisStatus{
	model.AnalysisStatusPending: {model.AnalysisStatusRunning, model.AnalysisStatusFailed},
	model.AnalysisStatusRunning: {model.AnalysisStatusCompleted, model.AnalysisStatusFailed},
}

func CanTransition(from, to model.AnalysisStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// JobState is the in-memory lifecycle of one run. It is safe for concurrent use.
type JobState struct {
	mu         sync.RWMutex
	status     model.AnalysisStatus
	startedAt  *time.Time
	finishedAt *time.Time
}

func NewJobState() *JobState {
	return &JobState{status: model.AnalysisStatusPending}
}

// Transition moves the job to status or returns ErrInvalidTransition.
func (s *JobState) Transition(to model.AnalysisStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !CanTransition(s.status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.status, to)
	}

	now := time.Now().UTC()
	switch {
	case to == model.AnalysisStatusRunning:
		s.startedAt = &now
	case to.IsTerminal():
		s.finishedAt = &now
	}
	s.status = to

	return nil
}

func (s *JobState) Status() model.AnalysisStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *JobState) StartedAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

func (s *JobState) FinishedAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finishedAt
}
