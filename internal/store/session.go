package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
	"gorm.io/gorm"
)

type Session interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Session, error)
	Create(ctx context.Context, session model.Session) (*model.Session, error)
}

type SessionStore struct {
	db *gorm.DB
}

// Make sure we conform to Session interface
var _ Session = (*SessionStore)(nil)

func NewSessionStore(db *gorm.DB) Session {
	return &SessionStore{db: db}
}

func (s *SessionStore) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	var session model.Session
	result := s.getDB(ctx).First(&session, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &session, nil
}

func (s *SessionStore) Create(ctx context.Context, session model.Session) (*model.Session, error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	result := s.getDB(ctx).Create(&session)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &session, nil
}

func (s *SessionStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db.WithContext(ctx)
}
