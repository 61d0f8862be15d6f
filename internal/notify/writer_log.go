package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogWriter is the writer used when no webhook is configured.
type LogWriter struct{}

func (l *LogWriter) Write(_ context.Context, e Event) error {
	zap.S().Named("log_writer").Infow("analysis finished", "event", e.ID, "type", e.Type, "session_id", e.SessionID, "status", e.Status)
	return nil
}

func (l *LogWriter) Close(_ context.Context) error {
	return nil
}
