package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/trademark-service/internal/config"
	"github.com/fleveque/trademark-service/internal/middleware"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg        *config.Config
	router     *gin.Engine
	components *Components
	logger     *zap.Logger
	http       *http.Server
}

// New wires the components and creates a Server.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	components, err := NewComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewWithComponents(cfg, components, logger), nil
}

// NewWithComponents creates a Server over already-wired components.
func NewWithComponents(cfg *config.Config, components *Components, logger *zap.Logger) *Server {
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Recovery middleware catches panics and returns 500 instead of crashing.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	RegisterRoutes(router, cfg, components, logger)

	return &Server{
		cfg:        cfg,
		router:     router,
		components: components,
		logger:     logger,
		http: &http.Server{
			Addr:        cfg.Server.Address(),
			Handler:     router,
			ReadTimeout: 10 * time.Second,
			// A case prediction runs several batch groups of model calls.
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start begins listening for HTTP requests. This blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("address", s.cfg.Server.Address()))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests to
// complete, then closes the ledger database.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	err := s.http.Shutdown(ctx)
	if cerr := s.components.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("closing database: %w", cerr)
	}
	return err
}

// Router returns the underlying Gin engine (useful for testing).
func (s *Server) Router() *gin.Engine {
	return s.router
}
