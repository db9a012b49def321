package hud

import (
	"gocv.io/x/gocv"

	"emotion-hud-go/internal/models"
)

// Render draws the overlay into frame in place.
func (r *Renderer) Render(frame *gocv.Mat, st *models.HUDState) {
	if frame == nil || frame.Empty() {
		return
	}

	for _, op := range r.Compose(frame.Cols(), frame.Rows(), st) {
		paint(frame, op)
	}
}

func paint(frame *gocv.Mat, op Op) {
	switch op.Kind {
	case OpFill:
		gocv.Rectangle(frame, op.Rect, op.Color, -1) // thickness -1 == filled rectangle
	case OpOutline:
		gocv.Rectangle(frame, op.Rect, op.Color, op.Thickness)
	case OpText:
		gocv.PutText(frame, op.Text, op.Origin, gocv.FontHersheySimplex, op.Scale, op.Color, op.Thickness)
	}
}
