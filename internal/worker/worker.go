// Package worker runs the single-threaded HUD loop: read a frame, maybe classify it,
// draw the overlay, show it, poll the quit key.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"emotion-hud-go/internal/config"
	"emotion-hud-go/internal/hud"
	"emotion-hud-go/internal/logging"
	"emotion-hud-go/internal/models"
	"emotion-hud-go/internal/services/analysis"
	"emotion-hud-go/internal/services/camera"
	"emotion-hud-go/internal/services/display"
)

// State of the render loop
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// StopReason records why Run returned
type StopReason string

const (
	StopNone          StopReason = ""
	StopQuitKey       StopReason = "quit_key"
	StopEndOfStream   StopReason = "end_of_stream"
	StopCanceled      StopReason = "canceled"
	StopStartupFailed StopReason = "startup_failed"
	StopReadFailed    StopReason = "read_failed"
)

// FrameSource is an opened camera
type FrameSource interface {
	Read(dst *gocv.Mat) error
	Index() int
	Close() error
}

// FramePublisher receives every annotated frame, e.g. the MJPEG preview.
type FramePublisher interface {
	PublishFrame(frame gocv.Mat, snap models.HUDSnapshot)
}

// Deps are the collaborators of the loop. OpenSource runs before NewSurface so a
// missing camera never opens a window.
type Deps struct {
	OpenSource func() (FrameSource, error)
	NewSurface func() display.Surface
	Session    *analysis.Session
	Renderer   *hud.Renderer
	Preview    FramePublisher // optional
	Now        func() time.Time
}

type Worker struct {
	deps        Deps
	quitKey     int
	jpegQuality int
	logger      zerolog.Logger

	mu         sync.RWMutex
	state      State
	stopReason StopReason
	frames     int64
}

func New(cfg *config.Config, deps Deps) *Worker {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewSurface == nil {
		deps.NewSurface = func() display.Surface { return display.Headless{} }
	}
	if deps.Renderer == nil {
		deps.Renderer = hud.New(hud.DefaultOptions(cfg.QuitKey))
	}

	return &Worker{
		deps:        deps,
		quitKey:     cfg.QuitKeyCode(),
		jpegQuality: cfg.ClassifierJPEGQuality,
		logger:      logging.NewServiceLogger(cfg, "worker"),
		state:       StateIdle,
	}
}

// Run blocks until the quit key, the end of the camera stream or ctx cancellation.
// Camera and window are released before it returns.
func (w *Worker) Run(ctx context.Context) (StopReason, error) {
	if w.deps.OpenSource == nil || w.deps.Session == nil {
		return w.stop(StopStartupFailed), errors.New("worker is missing its camera or analysis session")
	}

	src, err := w.deps.OpenSource()
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to open camera")
		return w.stop(StopStartupFailed), err
	}
	defer func() {
		if err := src.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Failed to release camera")
		}
	}()

	surface := w.deps.NewSurface()
	defer func() {
		if err := surface.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Failed to close display")
		}
	}()

	frame := gocv.NewMat()
	defer frame.Close()

	w.logger = logging.WithCamera(w.logger, src.Index())
	w.setState(StateRunning)
	w.logger.Info().Msg("HUD loop running")

	for {
		select {
		case <-ctx.Done():
			return w.stop(StopCanceled), nil
		default:
		}

		if err := src.Read(&frame); err != nil {
			if errors.Is(err, camera.ErrEndOfStream) {
				w.logger.Info().Msg("Camera stopped delivering frames")
				return w.stop(StopEndOfStream), nil
			}
			return w.stop(StopReadFailed), fmt.Errorf("failed to read frame: %w", err)
		}

		w.deps.Session.Tick(ctx, w.deps.Now, func() ([]byte, error) {
			return camera.EncodeJPEG(frame, w.jpegQuality)
		})

		w.deps.Renderer.Render(&frame, w.deps.Session.State())
		surface.Show(frame)
		if w.deps.Preview != nil {
			w.deps.Preview.PublishFrame(frame, w.deps.Session.Snapshot())
		}
		w.countFrame()

		if key := surface.PollKey(); key == w.quitKey {
			w.logger.Info().Msg("Quit key pressed")
			return w.stop(StopQuitKey), nil
		}
	}
}

func (w *Worker) stop(reason StopReason) StopReason {
	w.mu.Lock()
	w.state = StateStopped
	w.stopReason = reason
	frames := w.frames
	w.mu.Unlock()

	w.logger.Info().Str("reason", string(reason)).Int64("frames", frames).Msg("HUD loop stopped")
	return reason
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

func (w *Worker) countFrame() {
	w.mu.Lock()
	w.frames++
	w.mu.Unlock()
}

// State is safe to read from other goroutines.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// StateString adapts State for the health endpoint.
func (w *Worker) StateString() string {
	return string(w.State())
}

func (w *Worker) StopReason() StopReason {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stopReason
}

func (w *Worker) Frames() int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.frames
}
