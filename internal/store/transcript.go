package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Transcript interface {
	Get(ctx context.Context, sessionID uuid.UUID) (*model.RawTranscript, error)
	Upsert(ctx context.Context, transcript model.RawTranscript) error
}

type TranscriptStore struct {
	db *gorm.DB
}

// Make sure we conform to Transcript interface
var _ Transcript = (*TranscriptStore)(nil)

func NewTranscriptStore(db *gorm.DB) Transcript {
	return &TranscriptStore{db: db}
}

func (t *TranscriptStore) Get(ctx context.Context, sessionID uuid.UUID) (*model.RawTranscript, error) {
	var transcript model.RawTranscript
	result := t.getDB(ctx).First(&transcript, "session_id = ?", sessionID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &transcript, nil
}

// Upsert replaces every column of the stored transcript of the session, creating it if needed.
func (t *TranscriptStore) Upsert(ctx context.Context, transcript model.RawTranscript) error {
	transcript.ID = 0
	result := t.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_segments", "utterances", "metadata", "updated_at"}),
	}).Create(&transcript)
	return result.Error
}

func (t *TranscriptStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return t.db.WithContext(ctx)
}
