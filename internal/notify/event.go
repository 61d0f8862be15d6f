package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/unique-Sachin/CounselPro-AI/internal/store/model"
)

const eventTypePrefix = "counselpro.analysis."

// Event tells a subscriber that the analysis of a session reached a terminal status.
type Event struct {
	ID        string               `json:"id"`
	Type      string               `json:"type"`
	SessionID uuid.UUID            `json:"sessionId"`
	Status    model.AnalysisStatus `json:"status"`
	Time      time.Time            `json:"time"`
}

func newEvent(sessionID uuid.UUID, status model.AnalysisStatus) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventTypePrefix + strings.ToLower(status.String()),
		SessionID: sessionID,
		Status:    status,
		Time:      time.Now().UTC(),
	}
}

func (e Event) String() string {
	return fmt.Sprintf("%s[%s]", e.Type, e.SessionID)
}
