package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	"gorm.io/gorm"
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type AnalysisQueryFilter BaseQuerier

func NewAnalysisQueryFilter() *AnalysisQueryFilter {
	return &AnalysisQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (f *AnalysisQueryFilter) BySessionIDs(ids ...uuid.UUID) *AnalysisQueryFilter {
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, id.String())
	}
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("session_id IN ?", values)
	})
	return f
}

func (f *AnalysisQueryFilter) ByStatus(statuses ...model.AnalysisStatus) *AnalysisQueryFilter {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status IN ?", values)
	})
	return f
}

// UpdatedBefore keeps the analyses whose last write is older than t.
func (f *AnalysisQueryFilter) UpdatedBefore(t time.Time) *AnalysisQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("updated_at < ?", t)
	})
	return f
}

func (f *AnalysisQueryFilter) WithLimit(limit int) *AnalysisQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(limit)
	})
	return f
}
