package display

import (
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

// NoKey is returned by PollKey when nothing was pressed
const NoKey = -1

// Surface shows annotated frames and reports key presses.
type Surface interface {
	Show(frame gocv.Mat)
	// PollKey waits at most one millisecond and returns the pressed key or NoKey.
	PollKey() int
	Close() error
}

// Window is an OpenCV highgui window
type Window struct {
	title string
	win   *gocv.Window
}

// NewWindow opens a titled window
func NewWindow(title string) *Window {
	log.Info().Str("title", title).Msg("Opening display window")
	return &Window{title: title, win: gocv.NewWindow(title)}
}

func (w *Window) Show(frame gocv.Mat) {
	w.win.IMShow(frame)
}

func (w *Window) PollKey() int {
	key := w.win.WaitKey(1)
	if key < 0 {
		return NoKey
	}
	return key & 0xFF
}

func (w *Window) Close() error {
	if w.win == nil {
		return nil
	}
	w.win.Close()
	w.win = nil
	log.Info().Str("title", w.title).Msg("Display window closed")
	return nil
}

// Headless discards frames; the loop is stopped through its context instead.
type Headless struct{}

func (Headless) Show(gocv.Mat) {}
func (Headless) PollKey() int  { return NoKey }
func (Headless) Close() error  { return nil }
