package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Utterance is one diarized speaker turn.
type Utterance struct {
	Speaker    int     `json:"speaker"`
	Role       string  `json:"role"`
	Text       string  `json:"text"`
	StartTime  string  `json:"startTime"`
	EndTime    string  `json:"endTime"`
	Confidence float64 `json:"confidence"`
}

type TranscriptMetadata struct {
	TotalSpeakers         int               `json:"totalSpeakers"`
	RoleMapping           map[string]int    `json:"roleMapping"`
	ProcessingTimeSeconds float64           `json:"processingTimeSeconds"`
	Timestamp             time.Time         `json:"timestamp"`
	Extra                 map[string]string `json:"extra,omitempty"`
}

type RawTranscript struct {
	ID            uint                                   `gorm:"primaryKey;autoIncrement"`
	SessionID     uuid.UUID                              `gorm:"not null;uniqueIndex;type:VARCHAR(255)"`
	TotalSegments int                                    `gorm:"not null"`
	Utterances    datatypes.JSONSlice[Utterance]         `gorm:"not null"`
	Metadata      datatypes.JSONType[TranscriptMetadata] `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewRawTranscript(sessionID uuid.UUID, utterances []Utterance, metadata TranscriptMetadata) RawTranscript {
	return RawTranscript{
		SessionID:     sessionID,
		TotalSegments: len(utterances),
		Utterances:    datatypes.NewJSONSlice(utterances),
		Metadata:      datatypes.NewJSONType(metadata),
	}
}

func (t RawTranscript) String() string {
	val, _ := json.Marshal(t)
	return string(val)
}
