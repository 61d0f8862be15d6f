package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/store"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	"go.uber.org/zap"
)

type SessionForm struct {
	RecordingRef   string
	CounselorName  string
	CounselorEmail *string
	// AutoAnalyze triggers the analysis as soon as the session is stored.
	AutoAnalyze bool
}

type SessionService struct {
	store    store.Store
	analysis *AnalysisService
}

func NewSessionService(s store.Store, analysis *AnalysisService) *SessionService {
	return &SessionService{store: s, analysis: analysis}
}

// CreateSession stores a new session. The trigger result is nil unless the form asks for the analysis to start.
// A session that was stored but whose analysis could not be admitted is returned with the admission error.
func (ss *SessionService) CreateSession(ctx context.Context, form SessionForm) (*model.Session, *TriggerResult, error) {
	if form.RecordingRef == "" {
		return nil, nil, NewErrInvalidRequest("recording reference is required")
	}

	session, err := ss.store.Session().Create(ctx, model.Session{
		ID:             uuid.New(),
		RecordingRef:   form.RecordingRef,
		CounselorName:  form.CounselorName,
		CounselorEmail: form.CounselorEmail,
		CreatedAt:      time.Now(),
	})
	if err != nil {
		return nil, nil, err
	}

	zap.S().Named("session_service").Infow("session created", "session_id", session.ID, "auto_analyze", form.AutoAnalyze)

	if !form.AutoAnalyze {
		return session, nil, nil
	}

	result, err := ss.analysis.Trigger(ctx, session.ID, "")
	if err != nil {
		return session, nil, err
	}
	return session, &result, nil
}

func (ss *SessionService) GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	session, err := ss.store.Session().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrSessionNotFound(id)
		}
		return nil, err
	}
	return session, nil
}
