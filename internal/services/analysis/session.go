// Package analysis owns the HUD state and decides, once per rendered frame, whether
// the frame goes to the emotion classifier.
package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"emotion-hud-go/internal/logging"
	"emotion-hud-go/internal/models"
	"emotion-hud-go/internal/services/classifier"
	"emotion-hud-go/internal/services/scheduler"
)

// loudFailures is how many consecutive failures are logged at warn level before the
// session drops to debug.
const loudFailures = 5

// Publisher receives an event after every successful classification.
type Publisher interface {
	PublishReading(models.ReadingEvent) error
}

// EncodeFunc produces the JPEG payload for the current frame. It is only called
// when an attempt is due.
type EncodeFunc func() ([]byte, error)

type Session struct {
	id         string
	state      *models.HUDState
	poller     *scheduler.Poller
	classifier classifier.Classifier
	publisher  Publisher
	logger     zerolog.Logger

	consecutiveFailures int
	failures            int64
}

// NewSession starts from the never-classified state. publisher may be nil.
func NewSession(id string, c classifier.Classifier, interval time.Duration, publisher Publisher) *Session {
	return &Session{
		id:         id,
		state:      models.NewHUDState(),
		poller:     scheduler.NewPoller(interval),
		classifier: c,
		publisher:  publisher,
		logger:     logging.ForSession(id, "analysis"),
	}
}

// Clock reads the current time; the loop passes time.Now or a fake.
type Clock func() time.Time

// Tick runs at most one classification for the current frame and reports whether an
// attempt was made. The gate is checked against the time Tick starts; the attempt is
// recorded at the time it finishes, so a slow classifier still leaves a full interval
// of render-only frames. Failures leave the state untouched.
func (s *Session) Tick(ctx context.Context, clock Clock, encode EncodeFunc) bool {
	if !s.poller.Due(clock()) {
		return false
	}

	payload, err := encode()
	if err != nil {
		s.poller.MarkAttempt(clock())
		s.fail(classifier.NewAnalysisError("encode", err))
		return true
	}

	reading, err := s.classifier.Analyze(ctx, payload)
	finished := clock()
	s.poller.MarkAttempt(finished)
	if err != nil {
		s.fail(err)
		return true
	}

	s.state.Apply(reading, finished)
	if s.consecutiveFailures > 0 {
		s.logger.Info().Int("after_failures", s.consecutiveFailures).Msg("Emotion analysis recovered")
	}
	s.consecutiveFailures = 0

	s.logger.Debug().
		Str("top_emotion", s.state.TopEmotion.String()).
		Int("confidence", s.state.TopConfidence).
		Bool("face", s.state.Face != nil).
		Msg("Emotion reading applied")

	if s.publisher != nil {
		if err := s.publisher.PublishReading(models.NewReadingEvent(s.id, s.state)); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to publish emotion reading")
		}
	}
	return true
}

func (s *Session) fail(err error) {
	s.consecutiveFailures++
	s.failures++

	ev := s.logger.Debug()
	if s.consecutiveFailures <= loudFailures {
		ev = s.logger.Warn()
	}
	ev.Err(err).Int("consecutive", s.consecutiveFailures).Msg("Emotion analysis failed, keeping previous reading")
}

// State is the live HUD state. It is only safe to use from the render loop.
func (s *Session) State() *models.HUDState { return s.state }

// Snapshot copies the state for use outside the render loop.
func (s *Session) Snapshot() models.HUDSnapshot { return s.state.Snapshot() }

func (s *Session) ID() string { return s.id }

func (s *Session) Attempts() int64 { return s.poller.Attempts() }

func (s *Session) Failures() int64 { return s.failures }

func (s *Session) LastAttempt() time.Time { return s.poller.LastAttempt() }
