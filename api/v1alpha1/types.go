package v1alpha1

import (
	"time"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
)

type AnalysisStatus string

const (
	AnalysisStatusPending   AnalysisStatus = "PENDING"
	AnalysisStatusRunning   AnalysisStatus = "RUNNING"
	AnalysisStatusCompleted AnalysisStatus = "COMPLETED"
	AnalysisStatusFailed    AnalysisStatus = "FAILED"
)

type SessionCreate struct {
	RecordingRef   string  `json:"recordingRef" validate:"required,recording_ref"`
	CounselorName  string  `json:"counselorName" validate:"required,max=255,counselor_name"`
	CounselorEmail *string `json:"counselorEmail,omitempty" validate:"omitempty,email"`
	AutoAnalyze    *bool   `json:"autoAnalyze,omitempty"`
}

type Session struct {
	Id             uuid.UUID        `json:"id"`
	RecordingRef   string           `json:"recordingRef"`
	CounselorName  string           `json:"counselorName"`
	CounselorEmail *string          `json:"counselorEmail,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      *time.Time       `json:"updatedAt,omitempty"`
	Analysis       *TriggerResponse `json:"analysis,omitempty"`
}

type TriggerRequest struct {
	RecordingRef *string `json:"recordingRef,omitempty" validate:"omitempty,recording_ref"`
}

type TriggerResponse struct {
	Accepted      bool           `json:"accepted"`
	CurrentStatus AnalysisStatus `json:"currentStatus"`
}

type AnalysisStatusResponse struct {
	SessionId     uuid.UUID            `json:"sessionId"`
	Status        AnalysisStatus       `json:"status"`
	VideoAnalysis *model.VideoAnalysis `json:"videoAnalysis,omitempty"`
	AudioAnalysis *model.AudioAnalysis `json:"audioAnalysis,omitempty"`
	FailureReason *string              `json:"failureReason,omitempty"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

type AnalysisStatusList []AnalysisStatusResponse

type TranscriptResponse struct {
	SessionId           uuid.UUID                 `json:"sessionId"`
	Status              *AnalysisStatus           `json:"status,omitempty"`
	TranscriptAvailable bool                      `json:"transcriptAvailable"`
	TotalSegments       *int                      `json:"totalSegments,omitempty"`
	Utterances          []model.Utterance         `json:"utterances,omitempty"`
	Metadata            *model.TranscriptMetadata `json:"metadata,omitempty"`
}

type Error struct {
	// Message Error message
	Message string `json:"message"`
}
