package mjpeg

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"emotion-hud-go/internal/config"
	"emotion-hud-go/internal/models"
)

const boundary = "frame"

// Publisher keeps the latest annotated HUD frame and fans it out to MJPEG viewers.
// PublishFrame is called from the render loop; every other method is safe from any
// goroutine.
type Publisher struct {
	quality int

	jpegMutex sync.RWMutex
	latest    []byte
	snapshot  models.HUDSnapshot
	hasState  bool
	frames    uint64

	notifyMutex sync.Mutex
	viewers     map[chan struct{}]struct{}
}

func NewPublisher(cfg *config.Config) *Publisher {
	quality := cfg.ClassifierJPEGQuality
	if quality < 1 || quality > 100 {
		quality = 90
	}
	return &Publisher{
		quality: quality,
		viewers: make(map[chan struct{}]struct{}),
	}
}

// PublishFrame records snap and, when someone is watching, encodes frame and pushes it
// to the viewers. Encoding problems are logged and never reach the render loop.
func (p *Publisher) PublishFrame(frame gocv.Mat, snap models.HUDSnapshot) {
	p.setSnapshot(snap)

	if p.Viewers() == 0 || frame.Empty() {
		return
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, p.quality})
	if err != nil {
		log.Debug().Err(err).Msg("Failed to encode preview frame")
		return
	}
	defer buf.Close()

	p.Publish(buf.GetBytes())
}

// Publish stores a copy of an already encoded JPEG and wakes the viewers.
func (p *Publisher) Publish(jpeg []byte) {
	jpegCopy := make([]byte, len(jpeg))
	copy(jpegCopy, jpeg)

	p.jpegMutex.Lock()
	p.latest = jpegCopy
	p.frames++
	p.jpegMutex.Unlock()

	p.notifyViewers()
}

func (p *Publisher) setSnapshot(snap models.HUDSnapshot) {
	p.jpegMutex.Lock()
	p.snapshot = snap
	p.hasState = true
	p.jpegMutex.Unlock()
}

// Latest returns the most recent encoded frame.
func (p *Publisher) Latest() ([]byte, bool) {
	p.jpegMutex.RLock()
	defer p.jpegMutex.RUnlock()
	return p.latest, len(p.latest) > 0
}

// Snapshot returns the HUD state that went with the most recent frame.
func (p *Publisher) Snapshot() (models.HUDSnapshot, bool) {
	p.jpegMutex.RLock()
	defer p.jpegMutex.RUnlock()
	return p.snapshot, p.hasState
}

func (p *Publisher) Frames() uint64 {
	p.jpegMutex.RLock()
	defer p.jpegMutex.RUnlock()
	return p.frames
}

func (p *Publisher) Viewers() int {
	p.notifyMutex.Lock()
	defer p.notifyMutex.Unlock()
	return len(p.viewers)
}

func (p *Publisher) notifyViewers() {
	p.notifyMutex.Lock()
	defer p.notifyMutex.Unlock()

	for notify := range p.viewers {
		select {
		case notify <- struct{}{}:
		default:
		}
	}
}

func (p *Publisher) subscribe() chan struct{} {
	notify := make(chan struct{}, 1)
	p.notifyMutex.Lock()
	p.viewers[notify] = struct{}{}
	p.notifyMutex.Unlock()
	return notify
}

func (p *Publisher) unsubscribe(notify chan struct{}) {
	p.notifyMutex.Lock()
	delete(p.viewers, notify)
	p.notifyMutex.Unlock()
}

func (p *Publisher) StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	notify := p.subscribe()
	defer p.unsubscribe(notify)

	writePart := func(jpeg []byte) bool {
		if _, err := io.WriteString(w, "--"+boundary+"\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "Content-Type: image/jpeg\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, fmt.Sprintf("Content-Length: %d\r\n\r\n", len(jpeg))); err != nil {
			return false
		}
		if _, err := w.Write(jpeg); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	first, ok := p.Latest()
	if !ok {
		first = placeholderJPEG()
	}
	if len(first) > 0 && !writePart(first) {
		return
	}

	keepaliveTicker := time.NewTicker(2 * time.Second)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-notify:
		case <-keepaliveTicker.C:
		}

		if buf, ok := p.Latest(); ok {
			if !writePart(buf) {
				return
			}
		}
	}
}

func placeholderJPEG() []byte {
	placeholder := gocv.NewMatWithSize(360, 640, gocv.MatTypeCV8UC3)
	defer placeholder.Close()

	placeholder.SetTo(gocv.Scalar{Val1: 64, Val2: 64, Val3: 64, Val4: 0})

	textColor := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	gocv.PutText(&placeholder, "Emotion HUD",
		image.Pt(20, 180), gocv.FontHersheySimplex, 1.0, textColor, 2)
	gocv.PutText(&placeholder, "Waiting for camera...",
		image.Pt(20, 220), gocv.FontHersheySimplex, 0.8, textColor, 2)

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, placeholder, []int{gocv.IMWriteJpegQuality, 90})
	if err != nil {
		return nil
	}
	defer buf.Close()

	b := buf.GetBytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (p *Publisher) Shutdown() {
	log.Info().Int("viewers", p.Viewers()).Msg("MJPEG Publisher shutting down")
}
