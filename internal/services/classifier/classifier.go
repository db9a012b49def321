package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"emotion-hud-go/internal/config"
	"emotion-hud-go/internal/models"
)

var errEmptyFrame = errors.New("empty frame")

// Region is the face rectangle reported by the model
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// RawResult is the per-call output of an emotion model before normalization
type RawResult struct {
	Emotion map[string]float64 `json:"emotion"`
	Region  *Region            `json:"region,omitempty"`
}

// Backend talks to one concrete emotion model. Implementations receive a JPEG
// encoded color frame and ask for emotion analysis only, without enforcing face
// detection.
type Backend interface {
	Name() string
	Analyze(ctx context.Context, jpeg []byte) (RawResult, error)
	Close() error
}

// Shutdowner is implemented by backends whose Close can block, e.g. on a child process.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Classifier is what the render loop depends on.
type Classifier interface {
	Analyze(ctx context.Context, jpeg []byte) (models.Reading, error)
	Close() error
}

// Adapter turns a Backend into a Classifier: it normalizes raw results and reports
// every failure as *AnalysisError.
type Adapter struct {
	backend Backend
	timeout time.Duration
}

// NewAdapter wraps backend. A zero timeout lets a call block until the backend returns.
func NewAdapter(backend Backend, timeout time.Duration) *Adapter {
	return &Adapter{backend: backend, timeout: timeout}
}

// New builds the adapter for the backend selected in cfg.
func New(cfg *config.Config) (*Adapter, error) {
	var backend Backend
	switch cfg.ClassifierBackend {
	case config.BackendPython:
		backend = NewPythonWorker(cfg.PythonBin, cfg.PythonWorkerScript)
	case config.BackendGRPC:
		backend = NewGRPCClient(cfg.AIGRPCURL, cfg.AIGRPCMethod)
	default:
		return nil, fmt.Errorf("unsupported classifier backend %q", cfg.ClassifierBackend)
	}
	return NewAdapter(backend, cfg.ClassifierTimeout), nil
}

func (a *Adapter) Backend() string {
	return a.backend.Name()
}

func (a *Adapter) Analyze(ctx context.Context, jpeg []byte) (models.Reading, error) {
	if len(jpeg) == 0 {
		return models.Reading{}, NewAnalysisError(a.backend.Name(), errEmptyFrame)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	raw, err := a.backend.Analyze(ctx, jpeg)
	if err != nil {
		return models.Reading{}, NewAnalysisError(a.backend.Name(), err)
	}
	return Normalize(raw), nil
}

func (a *Adapter) Close() error {
	return a.backend.Close()
}

// Shutdown closes the backend within ctx when the backend supports it.
func (a *Adapter) Shutdown(ctx context.Context) error {
	if s, ok := a.backend.(Shutdowner); ok {
		return s.Shutdown(ctx)
	}
	return a.backend.Close()
}

// Normalize extracts the five known labels, defaulting missing ones to 0, and keeps
// the region only when both sides are strictly positive.
func Normalize(raw RawResult) models.Reading {
	var reading models.Reading
	for _, e := range models.Emotions {
		reading.Scores.Set(e, raw.Emotion[string(e)])
	}

	if r := raw.Region; r != nil && r.W > 0 && r.H > 0 {
		reading.Face = &models.FaceBox{X: r.X, Y: r.Y, W: r.W, H: r.H}
	}
	return reading
}
