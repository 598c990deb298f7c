package notifications

import (
	"context"

	"github.com/rapidusexpress/rapidus-backend/pkg/logger"
)

// Sender pushes a notification to a device. Implementations are
// fire-and-forget; delivery failures must not surface to callers.
type Sender interface {
	Send(ctx context.Context, target PushTarget, title, message string)
}

// LogSender writes push attempts to the structured log. It stands in for a
// real push provider in environments without one configured.
type LogSender struct {
	logg *logger.Logger
}

// NewLogSender builds a sender that only logs.
func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, target PushTarget, title, message string) {
	fields := map[string]any{
		"profile_id": target.ProfileID.String(),
		"title":      title,
		"message":    message,
		"has_token":  target.PushToken != nil,
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "push notification dispatched")
}
