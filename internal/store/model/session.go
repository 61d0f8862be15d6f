package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Session struct {
	ID             uuid.UUID `gorm:"primaryKey;column:id;type:VARCHAR(255);"`
	RecordingRef   string    `gorm:"not null;type:TEXT"`
	CounselorName  string    `gorm:"type:VARCHAR(255)"`
	CounselorEmail *string   `gorm:"type:VARCHAR(255)"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      *time.Time
}

type SessionList []Session

func (s Session) String() string {
	val, _ := json.Marshal(s)
	return string(val)
}
