package hud

import "image/color"

// Overlay palette. gocv converts these to BGR scalars when drawing.
var (
	ColorBlack    = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	ColorWhite    = color.RGBA{R: 235, G: 235, B: 235, A: 255}
	ColorTextGray = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	ColorDarkGray = color.RGBA{R: 60, G: 60, B: 60, A: 255}
	ColorMidGray  = color.RGBA{R: 130, G: 130, B: 130, A: 255}
	ColorAccent   = color.RGBA{R: 200, G: 130, B: 180, A: 255}
)
