package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSubscriber writes every event at debug level.
type LogSubscriber struct {
	logger zerolog.Logger
}

func NewLogSubscriber(logger zerolog.Logger) *LogSubscriber {
	return &LogSubscriber{logger: logger.With().Str("subscriber", "logging").Logger()}
}

func (s *LogSubscriber) Name() string {
	return "logging"
}

func (s *LogSubscriber) Handle(_ context.Context, event Event) error {
	s.logger.Debug().
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Str("user_id", event.UserID).
		RawJSON("payload", payloadOrNull(event.Payload)).
		Msg("event")
	return nil
}

func payloadOrNull(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
