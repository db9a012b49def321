package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	SessionID string
	Version   string
	loopState func() string
}

func NewHealthHandler(sessionID, version string, loopState func() string) *HealthHandler {
	if loopState == nil {
		loopState = func() string { return "unknown" }
	}
	return &HealthHandler{SessionID: sessionID, Version: version, loopState: loopState}
}

type HealthResponse struct {
	Status    string `json:"status" example:"healthy"`
	SessionID string `json:"session_id" example:"laptop-4242"`
	Loop      string `json:"loop" example:"running"`
}

type InfoResponse struct {
	SessionID    string   `json:"session_id" example:"laptop-4242"`
	Status       string   `json:"status" example:"running"`
	Version      string   `json:"version" example:"1.0.0"`
	Capabilities []string `json:"capabilities"`
}

// @Summary Health check
// @Description Check if the HUD is up and whether its render loop is running
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		SessionID: h.SessionID,
		Loop:      h.loopState(),
	})
}

// @Summary HUD information
// @Description Get basic HUD information and capabilities
// @Tags health
// @Produce json
// @Success 200 {object} InfoResponse
// @Router / [get]
func (h *HealthHandler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, InfoResponse{
		SessionID: h.SessionID,
		Status:    h.loopState(),
		Version:   h.Version,
		Capabilities: []string{
			"emotion_analysis",
			"mjpeg_preview",
		},
	})
}
