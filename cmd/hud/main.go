package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"emotion-hud-go/internal/api"
	"emotion-hud-go/internal/config"
	"emotion-hud-go/internal/hud"
	"emotion-hud-go/internal/logging"
	"emotion-hud-go/internal/services"
	"emotion-hud-go/internal/services/camera"
	"emotion-hud-go/internal/services/display"
	"emotion-hud-go/internal/worker"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Setup structured logging
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg := config.Load()

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogdyEnabled {
		if w, _, err := logging.StartLogdy(cfg); err != nil {
			log.Warn().Err(err).Msg("Failed to start Logdy, continuing with console logs")
		} else {
			log.Logger = log.Output(zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stderr}, w))
		}
	}

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return 2
	}

	log.Info().
		Str("session_id", cfg.SessionID).
		Str("version", cfg.Version).
		Str("backend", cfg.ClassifierBackend).
		Ints("camera_indices", cfg.CameraIndices).
		Dur("analyze_interval", cfg.AnalyzeInterval).
		Msg("Starting emotion HUD")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create services")
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := container.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Service shutdown incomplete")
		}
	}()

	deps := worker.Deps{
		OpenSource: func() (worker.FrameSource, error) {
			opts := camera.Options{Width: cfg.FrameWidth, Height: cfg.FrameHeight, Mirror: cfg.MirrorFrame}
			return camera.Open(cfg.CameraIndices, opts, camera.DeviceOpener(opts))
		},
		NewSurface: func() display.Surface {
			if cfg.Headless {
				return display.Headless{}
			}
			return display.NewWindow(cfg.WindowTitle)
		},
		Session:  container.Session,
		Renderer: hud.New(hud.DefaultOptions(cfg.QuitKey)),
	}
	if container.Preview != nil {
		deps.Preview = container.Preview
	}
	hudWorker := worker.New(cfg, deps)

	var server *api.Server
	if container.Preview != nil {
		server = api.NewServer(cfg, container.Preview, hudWorker.StateString)
		if err := server.Setup(); err != nil {
			log.Error().Err(err).Msg("Failed to set up preview API")
			return 1
		}
		go func() {
			if err := server.Start(); err != nil {
				log.Error().Err(err).Msg("Preview API stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Preview API forced to shutdown")
			}
		}()
	}

	reason, err := hudWorker.Run(ctx)
	if err != nil {
		if errors.Is(err, camera.ErrNoCameraAvailable) {
			log.Error().Ints("camera_indices", cfg.CameraIndices).Msg("No camera available")
		} else {
			log.Error().Err(err).Str("reason", string(reason)).Msg("HUD stopped with an error")
		}
		return 1
	}

	log.Info().Str("reason", string(reason)).Int64("frames", hudWorker.Frames()).Msg("Emotion HUD shutdown complete")
	return 0
}
