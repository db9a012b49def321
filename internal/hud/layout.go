// Package hud draws the emotion overlay. Compose computes the draw operations as a
// pure function of the frame size and the HUD state; Render paints them with OpenCV.
package hud

import (
	"fmt"
	"image"
	"image/color"

	"emotion-hud-go/internal/models"
)

const (
	DefaultTitle = "AI FACE EMOTION HUD"

	TitleBarHeight   = 40
	FacePadding      = 20
	borderOffset     = 2
	LabelStripHeight = 24

	PanelX      = 20
	PanelY      = 70
	RowHeight   = 20
	BarOffsetX  = 70
	MaxBarWidth = 110

	footerInsetX = 210
	footerInsetY = 20
)

// OpKind selects how an Op is painted
type OpKind int

const (
	OpFill OpKind = iota
	OpOutline
	OpText
)

// Op is a single draw call. Later ops paint over earlier ones.
type Op struct {
	Kind      OpKind
	Rect      image.Rectangle // OpFill, OpOutline
	Origin    image.Point     // OpText baseline origin
	Text      string
	Scale     float64
	Thickness int
	Color     color.RGBA
}

// Options holds the fixed strings of the overlay
type Options struct {
	Title  string
	Footer string
}

// DefaultOptions returns the standard title and a footer naming quitKey.
func DefaultOptions(quitKey string) Options {
	if quitKey == "" {
		quitKey = "q"
	}
	return Options{
		Title:  DefaultTitle,
		Footer: fmt.Sprintf("Press '%s' to quit", quitKey),
	}
}

// Renderer holds no per-frame state; the same inputs always give the same ops.
type Renderer struct {
	opts Options
}

func New(opts Options) *Renderer {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	return &Renderer{opts: opts}
}

// Compose lists the overlay draw calls for a width x height frame: title bar, face
// box, side panel, footer.
func (r *Renderer) Compose(width, height int, st *models.HUDState) []Op {
	if st == nil {
		st = models.NewHUDState()
	}

	ops := make([]Op, 0, 8+4*len(models.Emotions))

	// Title bar
	ops = append(ops,
		fill(image.Rect(0, 0, width, TitleBarHeight), ColorBlack),
		text(r.opts.Title, image.Pt(10, 28), 0.85, 2, ColorAccent),
	)

	// Face box
	if st.Face != nil {
		if box, ok := PadFaceBox(*st.Face, width, height); ok {
			outer := image.Rect(box.Min.X-borderOffset, box.Min.Y-borderOffset, box.Max.X+borderOffset, box.Max.Y+borderOffset)
			strip := image.Rect(box.Min.X, box.Min.Y-LabelStripHeight, box.Max.X, box.Min.Y)
			ops = append(ops,
				outline(outer, ColorMidGray),
				outline(box, ColorWhite),
				fill(strip, ColorBlack),
				text(FaceLabel(st.TopEmotion, st.TopConfidence), image.Pt(box.Min.X+8, box.Min.Y-7), 0.55, 2, ColorAccent),
			)
		}
	}

	// Side panel, always in canonical order
	ops = append(ops, text("emotions", image.Pt(PanelX, PanelY-15), 0.5, 1, ColorTextGray))
	for i, e := range models.Emotions {
		y := PanelY + i*RowHeight
		trackX := PanelX + BarOffsetX

		ops = append(ops,
			text(e.String(), image.Pt(PanelX, y), 0.5, 1, ColorTextGray),
			fill(image.Rect(trackX, y-8, trackX+MaxBarWidth, y-2), ColorDarkGray),
		)

		if w := BarWidth(st.Scores.Get(e)); w > 0 {
			ops = append(ops, fill(image.Rect(trackX, y-8, trackX+w, y-2), BarColor(e, st.TopEmotion)))
		}
	}

	// Footer
	ops = append(ops, text(r.opts.Footer, image.Pt(width-footerInsetX, height-footerInsetY), 0.55, 1, ColorTextGray))

	return ops
}

// PadFaceBox grows the detected box by FacePadding on every side and clamps it below
// the title bar and inside the frame. It reports false when nothing is left to draw.
func PadFaceBox(b models.FaceBox, width, height int) (image.Rectangle, bool) {
	x := max(0, b.X-FacePadding)
	y := max(TitleBarHeight, b.Y-FacePadding)
	w := min(width-x, b.W+2*FacePadding)
	h := min(height-y, b.H+2*FacePadding)

	if w <= 0 || h <= 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(x, y, x+w, y+h), true
}

// FaceLabel formats the text drawn above the face box, e.g. "happy (70%)".
func FaceLabel(e models.Emotion, confidence int) string {
	return fmt.Sprintf("%s (%d%%)", e, confidence)
}

// BarWidth is the filled length for a score in [0,100].
func BarWidth(score float64) int {
	return int(models.ClampScore(score) / 100.0 * MaxBarWidth)
}

// BarColor highlights only the top emotion.
func BarColor(e, top models.Emotion) color.RGBA {
	if e == top {
		return ColorAccent
	}
	return ColorMidGray
}

func fill(r image.Rectangle, c color.RGBA) Op {
	return Op{Kind: OpFill, Rect: r, Color: c}
}

func outline(r image.Rectangle, c color.RGBA) Op {
	return Op{Kind: OpOutline, Rect: r, Thickness: 1, Color: c}
}

func text(s string, at image.Point, scale float64, thickness int, c color.RGBA) Op {
	return Op{Kind: OpText, Origin: at, Text: s, Scale: scale, Thickness: thickness, Color: c}
}
