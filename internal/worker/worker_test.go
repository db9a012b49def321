package worker

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"emotion-hud-go/internal/config"
	"emotion-hud-go/internal/models"
	"emotion-hud-go/internal/services/analysis"
	"emotion-hud-go/internal/services/camera"
	"emotion-hud-go/internal/services/display"
)

type fakeSource struct {
	index   int
	frames  int
	readErr error
	reads   int
	closed  bool
}

func (s *fakeSource) Read(dst *gocv.Mat) error {
	if s.reads >= s.frames {
		if s.readErr != nil {
			return s.readErr
		}
		return camera.ErrEndOfStream
	}
	s.reads++

	img := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer img.Close()
	img.SetTo(gocv.NewScalar(128, 128, 128, 0))
	img.CopyTo(dst)
	return nil
}

func (s *fakeSource) Index() int { return s.index }

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

type fakeSurface struct {
	keys   []int
	shown  int
	closed bool
	// corner pixel of the first shown frame
	corner []uint8
}

func (f *fakeSurface) Show(frame gocv.Mat) {
	if f.shown == 0 {
		v := frame.GetVecbAt(2, 2)
		f.corner = []uint8{v[0], v[1], v[2]}
	}
	f.shown++
}

func (f *fakeSurface) PollKey() int {
	if len(f.keys) == 0 {
		return display.NoKey
	}
	k := f.keys[0]
	f.keys = f.keys[1:]
	return k
}

func (f *fakeSurface) Close() error {
	f.closed = true
	return nil
}

type fakeClassifier struct {
	calls int
	err   error
}

func (f *fakeClassifier) Analyze(ctx context.Context, jpeg []byte) (models.Reading, error) {
	f.calls++
	if len(jpeg) == 0 {
		return models.Reading{}, errors.New("empty payload")
	}
	var s models.Scores
	s.Set(models.EmotionHappy, 70)
	return models.Reading{Scores: s, Face: &models.FaceBox{X: 50, Y: 60, W: 100, H: 100}}, f.err
}

func (f *fakeClassifier) Close() error { return nil }

type countingPreview struct{ frames int }

func (p *countingPreview) PublishFrame(gocv.Mat, models.HUDSnapshot) { p.frames++ }

// steppingClock advances by step on every call.
func steppingClock(step time.Duration) func() time.Time {
	t := time.Unix(0, 0)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func testConfig() *config.Config {
	return &config.Config{SessionID: "test", QuitKey: "q", ClassifierJPEGQuality: 90}
}

func newTestWorker(src *fakeSource, surface *fakeSurface, fc *fakeClassifier, preview FramePublisher) *Worker {
	return New(testConfig(), Deps{
		OpenSource: func() (FrameSource, error) { return src, nil },
		NewSurface: func() display.Surface { return surface },
		Session:    analysis.NewSession("test", fc, 600*time.Millisecond, nil),
		Preview:    preview,
		Now:        steppingClock(700 * time.Millisecond),
	})
}

func TestRunStopsOnQuitKey(t *testing.T) {
	src := &fakeSource{frames: 100}
	surface := &fakeSurface{keys: []int{display.NoKey, 'x', 'q'}}
	fc := &fakeClassifier{}
	preview := &countingPreview{}
	w := newTestWorker(src, surface, fc, preview)

	reason, err := w.Run(context.Background())
	if err != nil || reason != StopQuitKey {
		t.Fatalf("Run = %v, %v", reason, err)
	}
	if surface.shown != 3 || w.Frames() != 3 || preview.frames != 3 {
		t.Errorf("shown = %d frames = %d preview = %d", surface.shown, w.Frames(), preview.frames)
	}
	if fc.calls != 3 {
		t.Errorf("classifier calls = %d, want 3", fc.calls)
	}
	if !src.closed || !surface.closed {
		t.Error("camera and window must be released")
	}
	if w.State() != StateStopped || w.StopReason() != StopQuitKey {
		t.Errorf("state = %s reason = %s", w.State(), w.StopReason())
	}
}

func TestRunDrawsOverlay(t *testing.T) {
	surface := &fakeSurface{keys: []int{'q'}}
	w := newTestWorker(&fakeSource{frames: 1}, surface, &fakeClassifier{}, nil)

	if _, err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(surface.corner) != 3 || surface.corner[0] != 0 || surface.corner[1] != 0 || surface.corner[2] != 0 {
		t.Errorf("corner pixel = %v, want the black title bar", surface.corner)
	}
}

func TestRunEndOfStream(t *testing.T) {
	src := &fakeSource{frames: 2}
	w := newTestWorker(src, &fakeSurface{}, &fakeClassifier{}, nil)

	reason, err := w.Run(context.Background())
	if err != nil || reason != StopEndOfStream {
		t.Fatalf("Run = %v, %v", reason, err)
	}
	if w.Frames() != 2 || !src.closed {
		t.Errorf("frames = %d closed = %v", w.Frames(), src.closed)
	}
}

func TestRunReadError(t *testing.T) {
	src := &fakeSource{readErr: errors.New("device unplugged")}
	w := newTestWorker(src, &fakeSurface{}, &fakeClassifier{}, nil)

	reason, err := w.Run(context.Background())
	if err == nil || reason != StopReadFailed {
		t.Fatalf("Run = %v, %v", reason, err)
	}
}

func TestRunWithoutCameraOpensNoWindow(t *testing.T) {
	windowOpened := false
	w := New(testConfig(), Deps{
		OpenSource: func() (FrameSource, error) {
			return nil, camera.ErrNoCameraAvailable
		},
		NewSurface: func() display.Surface {
			windowOpened = true
			return &fakeSurface{}
		},
		Session: analysis.NewSession("test", &fakeClassifier{}, time.Second, nil),
	})

	reason, err := w.Run(context.Background())
	if !errors.Is(err, camera.ErrNoCameraAvailable) || reason != StopStartupFailed {
		t.Fatalf("Run = %v, %v", reason, err)
	}
	if windowOpened {
		t.Error("window opened without a camera")
	}
}

func TestRunCanceled(t *testing.T) {
	src := &fakeSource{frames: 100}
	w := newTestWorker(src, &fakeSurface{}, &fakeClassifier{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reason, err := w.Run(ctx)
	if err != nil || reason != StopCanceled {
		t.Fatalf("Run = %v, %v", reason, err)
	}
	if src.reads != 0 || !src.closed {
		t.Errorf("reads = %d closed = %v", src.reads, src.closed)
	}
}

func TestClassifierFailureKeepsLoopRunning(t *testing.T) {
	src := &fakeSource{frames: 4}
	surface := &fakeSurface{}
	fc := &fakeClassifier{err: errors.New("model crashed")}
	w := newTestWorker(src, surface, fc, nil)

	reason, err := w.Run(context.Background())
	if err != nil || reason != StopEndOfStream {
		t.Fatalf("Run = %v, %v", reason, err)
	}
	if surface.shown != 4 || fc.calls != 4 {
		t.Errorf("shown = %d calls = %d", surface.shown, fc.calls)
	}
	if w.deps.Session.State().Updates != 0 {
		t.Error("failed readings must not be applied")
	}
}

func TestRunLogsTagCameraIndex(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	w := newTestWorker(&fakeSource{index: 2, frames: 1}, &fakeSurface{}, &fakeClassifier{}, nil)
	if _, err := w.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	var stopped string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, "HUD loop stopped") {
			stopped = line
		}
	}
	if !strings.Contains(stopped, `"camera_index":2`) || !strings.Contains(stopped, `"session_id":"test"`) {
		t.Errorf("stop log = %q", stopped)
	}
}
