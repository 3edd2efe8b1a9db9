package mail

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender logs instead of sending. Used in development and when no
// provider is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email not sent: log sender")
	return nil
}
