package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// analysisColumns are the columns replaced by an upsert. created_at is kept from the first run.
var analysisColumns = []string{
	"status",
	"generation",
	"video_analysis",
	"audio_analysis",
	"transcript_available",
	"failure_reason",
	"started_at",
	"finished_at",
	"updated_at",
}

var activeStatuses = []string{
	string(model.AnalysisStatusPending),
	string(model.AnalysisStatusRunning),
}

type Analysis interface {
	Get(ctx context.Context, sessionID uuid.UUID) (*model.SessionAnalysis, error)
	List(ctx context.Context, filter *AnalysisQueryFilter) (model.SessionAnalysisList, error)
	// Upsert fully replaces the stored analysis of the session.
	Upsert(ctx context.Context, analysis model.SessionAnalysis) error
	// UpsertIfCurrent fully replaces the stored analysis only while the stored run has the same
	// generation and is still active. It returns ErrStaleGeneration otherwise.
	UpsertIfCurrent(ctx context.Context, analysis model.SessionAnalysis) error
	// UpdateStatus moves an active run to status, with the same fencing as UpsertIfCurrent.
	UpdateStatus(ctx context.Context, sessionID uuid.UUID, generation int64, status model.AnalysisStatus, reason string) error
}

type AnalysisStore struct {
	db *gorm.DB
}

// Make sure we conform to Analysis interface
var _ Analysis = (*AnalysisStore)(nil)

func NewAnalysisStore(db *gorm.DB) Analysis {
	return &AnalysisStore{db: db}
}

func (a *AnalysisStore) Get(ctx context.Context, sessionID uuid.UUID) (*model.SessionAnalysis, error) {
	var analysis model.SessionAnalysis
	result := a.getDB(ctx).First(&analysis, "session_id = ?", sessionID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &analysis, nil
}

func (a *AnalysisStore) List(ctx context.Context, filter *AnalysisQueryFilter) (model.SessionAnalysisList, error) {
	var analyses model.SessionAnalysisList
	tx := a.getDB(ctx).Model(&analyses).Order("updated_at DESC")

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	result := tx.Find(&analyses)
	if result.Error != nil {
		return nil, result.Error
	}
	return analyses, nil
}

func (a *AnalysisStore) Upsert(ctx context.Context, analysis model.SessionAnalysis) error {
	analysis.ID = 0
	result := a.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns(analysisColumns),
	}).Create(&analysis)
	return result.Error
}

func (a *AnalysisStore) UpsertIfCurrent(ctx context.Context, analysis model.SessionAnalysis) error {
	analysis.ID = 0
	result := a.getDB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "session_analyses.generation = ?", Vars: []interface{}{analysis.Generation}},
			clause.Expr{SQL: "session_analyses.status IN (?, ?)", Vars: []interface{}{activeStatuses[0], activeStatuses[1]}},
		}},
		DoUpdates: clause.AssignmentColumns(analysisColumns),
	}).Create(&analysis)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleGeneration
	}
	return nil
}

func (a *AnalysisStore) UpdateStatus(ctx context.Context, sessionID uuid.UUID, generation int64, status model.AnalysisStatus, reason string) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":         string(status),
		"failure_reason": reason,
		"updated_at":     now,
	}
	if status == model.AnalysisStatusRunning {
		updates["started_at"] = now
	}
	if status.IsTerminal() {
		updates["finished_at"] = now
	}

	result := a.getDB(ctx).Model(&model.SessionAnalysis{}).
		Where("session_id = ? AND generation = ? AND status IN ?", sessionID, generation, activeStatuses).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleGeneration
	}
	return nil
}

func (a *AnalysisStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return a.db.WithContext(ctx)
}
