// Package api exposes the licence service over HTTP: a status query
// for game clients and a password-gated grant endpoint for operators.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/licenced/internal/config"
	"github.com/licenced/internal/licence"
)

// Server represents the API server
type Server struct {
	echo *echo.Echo
	cfg  *config.Config
	svc  *licence.Service
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, svc *licence.Service) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(corsMiddleware(cfg.Server.AllowedOrigins))

	server := &Server{
		echo: e,
		cfg:  cfg,
		svc:  svc,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// corsMiddleware allows the configured browser origins. Credentialed
// requests are only honoured for pinned origins, never for "*".
func corsMiddleware(origins []string) echo.MiddlewareFunc {
	wildcard := len(origins) == 1 && origins[0] == "*"
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "X-Admin-Password"},
		AllowCredentials: !wildcard,
	})
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	if s.cfg.Server.StaticDir != "" {
		s.echo.Static("/", s.cfg.Server.StaticDir)
	}

	grantLimiter := newClientLimiter()

	// Legacy flat routes, kept for clients of the original deployment.
	s.echo.GET("/check-licence", s.handleStatus, s.callerGate)
	s.echo.POST("/licence", s.handleGrant, s.adminGate, grantLimiter.middleware)

	// API v1 group
	v1 := s.echo.Group("/api/v1")
	v1.GET("/licence/status", s.handleStatus, s.callerGate)
	v1.POST("/licence", s.handleGrant, s.adminGate, grantLimiter.middleware)
}

// Start begins the API server and blocks until interrupted.
func (s *Server) Start() error {
	// Start server in a goroutine
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.cfg.Server.Port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
