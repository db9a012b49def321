package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"emotion-hud-go/internal/config"
)

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return ForSession(cfg.SessionID, service)
}

// ForSession tags the global logger with the HUD session and a service name.
func ForSession(sessionID, service string) zerolog.Logger {
	return log.With().Str("session_id", sessionID).Str("service", service).Logger()
}

func WithCamera(base zerolog.Logger, index int) zerolog.Logger {
	return base.With().Int("camera_index", index).Logger()
}
