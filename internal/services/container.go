package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"emotion-hud-go/internal/config"
	"emotion-hud-go/internal/services/analysis"
	"emotion-hud-go/internal/services/classifier"
	"emotion-hud-go/internal/services/messaging"
	"emotion-hud-go/internal/services/publisher/mjpeg"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config     *config.Config
	Classifier classifier.Classifier
	Messaging  *messaging.Service // nil when NATS is disabled or unreachable
	Preview    *mjpeg.Publisher   // nil when the preview API is disabled
	Session    *analysis.Session
}

// NewServiceContainer creates a new service container
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	clf, err := classifier.New(cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("backend", clf.Backend()).Dur("interval", cfg.AnalyzeInterval).Msg("Emotion classifier configured")

	return newContainer(cfg, clf), nil
}

func newContainer(cfg *config.Config, clf classifier.Classifier) *ServiceContainer {
	sc := &ServiceContainer{
		Config:     cfg,
		Classifier: clf,
	}

	// Readings are best effort; the HUD runs without a broker.
	var publisher analysis.Publisher
	if cfg.NatsEnabled {
		messagingSvc, err := messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NatsURL).Msg("NATS unavailable, emotion readings will not be published")
		} else {
			sc.Messaging = messagingSvc
			publisher = messagingSvc
		}
	}

	if cfg.PreviewEnabled {
		sc.Preview = mjpeg.NewPublisher(cfg)
	}

	sc.Session = analysis.NewSession(cfg.SessionID, clf, cfg.AnalyzeInterval, publisher)
	return sc
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs []error

	if sc.Preview != nil {
		sc.Preview.Shutdown()
	}

	if sc.Messaging != nil {
		if err := sc.Messaging.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if sc.Classifier != nil {
		var err error
		if s, ok := sc.Classifier.(classifier.Shutdowner); ok {
			err = s.Shutdown(ctx)
		} else {
			err = sc.Classifier.Close()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
