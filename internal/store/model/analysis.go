package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AnalysisStatus string

const (
	AnalysisStatusPending   AnalysisStatus = "PENDING"
	AnalysisStatusRunning   AnalysisStatus = "RUNNING"
	AnalysisStatusCompleted AnalysisStatus = "COMPLETED"
	AnalysisStatusFailed    AnalysisStatus = "FAILED"
)

// IsTerminal reports whether no further transition can happen for the current run.
func (s AnalysisStatus) IsTerminal() bool {
	return s == AnalysisStatusCompleted || s == AnalysisStatusFailed
}

func (s AnalysisStatus) IsActive() bool {
	return s == AnalysisStatusPending || s == AnalysisStatusRunning
}

func (s AnalysisStatus) String() string {
	return string(s)
}

// SessionAnalysis is the pollable aggregate of one session. Status is written in the same
// statement as the analysis payloads so a reader never sees a terminal status without them.
type SessionAnalysis struct {
	ID                  uint           `gorm:"primaryKey;autoIncrement"`
	SessionID           uuid.UUID      `gorm:"not null;uniqueIndex;type:VARCHAR(255)"`
	Status              AnalysisStatus `gorm:"not null;type:VARCHAR(20);index"`
	Generation          int64          `gorm:"not null"`
	VideoAnalysis       *VideoAnalysis `gorm:"serializer:json;type:json"`
	AudioAnalysis       *AudioAnalysis `gorm:"serializer:json;type:json"`
	TranscriptAvailable bool           `gorm:"not null"`
	FailureReason       string         `gorm:"type:TEXT"`
	StartedAt           *time.Time
	FinishedAt          *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type SessionAnalysisList []SessionAnalysis

func NewPendingAnalysis(sessionID uuid.UUID, generation int64) SessionAnalysis {
	return SessionAnalysis{
		SessionID:  sessionID,
		Status:     AnalysisStatusPending,
		Generation: generation,
	}
}

func (a SessionAnalysis) String() string {
	val, _ := json.Marshal(a)
	return string(val)
}
