package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"emotion-hud-go/internal/logging"
	"emotion-hud-go/internal/models"
)

// Preview is the read side of the MJPEG publisher.
type Preview interface {
	Snapshot() (models.HUDSnapshot, bool)
	StreamMJPEGHTTP(w http.ResponseWriter, r *http.Request)
	Viewers() int
	Frames() uint64
}

type StateHandler struct {
	preview Preview
}

func NewStateHandler(preview Preview) *StateHandler {
	return &StateHandler{preview: preview}
}

type ErrorResponse struct {
	Error string `json:"error" example:"no frame rendered yet"`
}

// @Summary Current HUD state
// @Description Scores, top emotion and face box as last rendered
// @Tags hud
// @Produce json
// @Success 200 {object} models.HUDSnapshot
// @Failure 503 {object} ErrorResponse
// @Router /state [get]
func (h *StateHandler) GetState(c *gin.Context) {
	snap, ok := h.preview.Snapshot()
	if !ok {
		logging.Debug(c).Msg("State requested before the first frame")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "no frame rendered yet"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// @Summary Live annotated stream
// @Description Multipart MJPEG stream of the frames shown in the HUD window
// @Tags hud
// @Produce multipart/x-mixed-replace
// @Success 200
// @Router /stream.mjpeg [get]
func (h *StateHandler) Stream(c *gin.Context) {
	logging.Info(c).Str("remote", c.ClientIP()).Msg("Preview viewer connected")
	h.preview.StreamMJPEGHTTP(c.Writer, c.Request)
	logging.Info(c).Msg("Preview viewer disconnected")
}
