package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"emotion-hud-go/internal/config"
	"emotion-hud-go/internal/models"
)

type fakeBackend struct {
	raw      RawResult
	err      error
	calls    int
	deadline bool
	closed   bool
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Analyze(ctx context.Context, jpeg []byte) (RawResult, error) {
	f.calls++
	_, f.deadline = ctx.Deadline()
	return f.raw, f.err
}

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      RawResult
		wantTop  models.Emotion
		wantFace *models.FaceBox
	}{
		{
			name: "full result",
			raw: RawResult{
				Emotion: map[string]float64{"angry": 5, "happy": 70, "sad": 2, "surprise": 3, "neutral": 20},
				Region:  &Region{X: 50, Y: 60, W: 100, H: 120},
			},
			wantTop:  models.EmotionHappy,
			wantFace: &models.FaceBox{X: 50, Y: 60, W: 100, H: 120},
		},
		{
			name: "zero width region",
			raw: RawResult{
				Emotion: map[string]float64{"sad": 40},
				Region:  &Region{X: 10, Y: 10, W: 0, H: 50},
			},
			wantTop: models.EmotionSad,
		},
		{
			name: "negative height region",
			raw: RawResult{
				Emotion: map[string]float64{"surprise": 10},
				Region:  &Region{W: 20, H: -1},
			},
			wantTop: models.EmotionSurprise,
		},
		{
			name:    "missing labels",
			raw:     RawResult{Emotion: map[string]float64{"neutral": 90, "disgust": 95}},
			wantTop: models.EmotionNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading := Normalize(tt.raw)

			if top, _ := reading.Scores.Top(); top != tt.wantTop {
				t.Errorf("top = %q, want %q", top, tt.wantTop)
			}
			switch {
			case tt.wantFace == nil && reading.Face != nil:
				t.Errorf("face = %+v, want none", reading.Face)
			case tt.wantFace != nil && (reading.Face == nil || *reading.Face != *tt.wantFace):
				t.Errorf("face = %+v, want %+v", reading.Face, tt.wantFace)
			}
			for _, e := range models.Emotions {
				if _, ok := tt.raw.Emotion[string(e)]; !ok && reading.Scores.Get(e) != 0 {
					t.Errorf("missing label %s = %f, want 0", e, reading.Scores.Get(e))
				}
			}
		})
	}
}

func TestAdapterWrapsBackendErrors(t *testing.T) {
	cause := errors.New("tensorflow exploded")
	backend := &fakeBackend{err: cause}
	a := NewAdapter(backend, 0)

	_, err := a.Analyze(context.Background(), []byte("jpeg"))
	if !IsAnalysisError(err) {
		t.Fatalf("err = %v, want AnalysisError", err)
	}
	if !errors.Is(err, cause) {
		t.Error("AnalysisError should unwrap to the backend error")
	}

	var ae *AnalysisError
	errors.As(err, &ae)
	if ae.Backend != "fake" {
		t.Errorf("Backend = %q, want fake", ae.Backend)
	}
}

func TestAdapterRejectsEmptyFrame(t *testing.T) {
	backend := &fakeBackend{}
	a := NewAdapter(backend, 0)

	if _, err := a.Analyze(context.Background(), nil); !IsAnalysisError(err) {
		t.Fatalf("err = %v, want AnalysisError", err)
	}
	if backend.calls != 0 {
		t.Error("empty frame must not reach the backend")
	}
}

func TestAdapterTimeout(t *testing.T) {
	backend := &fakeBackend{raw: RawResult{Emotion: map[string]float64{}}}

	NewAdapter(backend, 0).Analyze(context.Background(), []byte("jpeg"))
	if backend.deadline {
		t.Error("zero timeout must not set a deadline")
	}

	NewAdapter(backend, time.Second).Analyze(context.Background(), []byte("jpeg"))
	if !backend.deadline {
		t.Error("positive timeout should set a deadline")
	}
}

func TestAnalysisErrorIsNotDoubleWrapped(t *testing.T) {
	inner := &AnalysisError{Backend: "grpc", Err: errors.New("boom")}
	if got := NewAnalysisError("adapter", inner); got != error(inner) {
		t.Errorf("got %v, want the original error", got)
	}
	if NewAnalysisError("x", nil) != nil {
		t.Error("nil error should stay nil")
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Load()

	cfg.ClassifierBackend = config.BackendPython
	a, err := New(cfg)
	if err != nil || a.Backend() != "python" {
		t.Fatalf("python backend: %v %v", a, err)
	}

	cfg.ClassifierBackend = config.BackendGRPC
	a, err = New(cfg)
	if err != nil || a.Backend() != "grpc" {
		t.Fatalf("grpc backend: %v %v", a, err)
	}
	a.Close()

	cfg.ClassifierBackend = "onnx"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestAdapterShutdownFallsBackToClose(t *testing.T) {
	fb := &fakeBackend{}
	if err := NewAdapter(fb, 0).Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !fb.closed {
		t.Error("backend not closed")
	}
}
