package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"emotion-hud-go/internal/api/handlers"
	"emotion-hud-go/internal/config"
)

// Server is the optional read-only preview API next to the HUD window.
type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server

	healthHandler *handlers.HealthHandler
	stateHandler  *handlers.StateHandler
	systemHandler *handlers.SystemHandler
}

// NewServer wires the handlers; loopState reports the render loop state for /health.
func NewServer(cfg *config.Config, preview handlers.Preview, loopState func() string) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		config:        cfg,
		router:        router,
		healthHandler: handlers.NewHealthHandler(cfg.SessionID, cfg.Version, loopState),
		stateHandler:  handlers.NewStateHandler(preview),
		systemHandler: handlers.NewSystemHandler(cfg.SessionID, preview),
	}
}

func (s *Server) Setup() error {
	if s.config.PreviewPort <= 0 || s.config.PreviewPort > 65535 {
		return fmt.Errorf("invalid PREVIEW_PORT %d", s.config.PreviewPort)
	}

	s.setupMiddleware()

	s.setupRoutes()

	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.PreviewPort),
		Handler: s.router,
	}

	return nil
}

// Start blocks serving requests. A clean Shutdown returns nil.
func (s *Server) Start() error {
	log.Info().Int("port", s.config.PreviewPort).Msg("Starting emotion HUD preview API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Info().Msg("Stopping emotion HUD preview API")
	return s.server.Shutdown(ctx)
}

func (s *Server) Handler() http.Handler {
	return s.router
}
