package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Session() Session
	Transcript() Transcript
	Analysis() Analysis
	// WithSessionLock runs fn while holding the write lock of sessionID.
	WithSessionLock(sessionID uuid.UUID, fn func() error) error
	InitialMigration(ctx context.Context) error
	Statistics(ctx context.Context) (model.AnalysisStats, error)
	Close() error
}

type DataStore struct {
	db         *gorm.DB
	session    Session
	transcript Transcript
	analysis   Analysis
	locks      *keyedMutex
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		session:    NewSessionStore(db),
		transcript: NewTranscriptStore(db),
		analysis:   NewAnalysisStore(db),
		locks:      newKeyedMutex(),
		db:         db,
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Session() Session {
	return s.session
}

func (s *DataStore) Transcript() Transcript {
	return s.transcript
}

func (s *DataStore) Analysis() Analysis {
	return s.analysis
}

func (s *DataStore) WithSessionLock(sessionID uuid.UUID, fn func() error) error {
	unlock := s.locks.Lock(sessionID.String())
	defer unlock()
	return fn()
}

// InitialMigration creates the schema with gorm. Production postgres databases are migrated
// with the goose migrations instead.
func (s *DataStore) InitialMigration(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&model.Session{}, &model.RawTranscript{}, &model.SessionAnalysis{})
}

func (s *DataStore) Statistics(ctx context.Context) (model.AnalysisStats, error) {
	stats := model.AnalysisStats{AnalysesByStatus: make(map[model.AnalysisStatus]int)}

	var totalSessions int64
	if err := s.db.WithContext(ctx).Model(&model.Session{}).Count(&totalSessions).Error; err != nil {
		return stats, err
	}
	stats.TotalSessions = int(totalSessions)

	var rows []struct {
		Status string
		Total  int
	}
	if err := s.db.WithContext(ctx).Model(&model.SessionAnalysis{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return stats, err
	}
	for _, r := range rows {
		stats.AnalysesByStatus[model.AnalysisStatus(r.Status)] = r.Total
	}

	return stats, nil
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
