// Package mockapi assembles the mock marketplace API: an echo server over
// an in-memory store that answers the endpoints the client consumes.
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donaldgifford/auto-marketplace/api/openapi"
	"github.com/donaldgifford/auto-marketplace/internal/api/handlers"
	"github.com/donaldgifford/auto-marketplace/internal/api/middleware"
	"github.com/donaldgifford/auto-marketplace/internal/auth"
	"github.com/donaldgifford/auto-marketplace/internal/store"
	"github.com/donaldgifford/auto-marketplace/pkg/logger"
)

// Config holds the mock server settings.
type Config struct {
	JWTSecret      string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	FavoritesShape string // bare, wrapped, nested, listings
	RawMyListings  bool
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Version        string // reported in the OpenAPI document
}

// Server is the mock marketplace API.
type Server struct {
	echo   *echo.Echo
	api    huma.API
	store  store.Store
	issuer *auth.Issuer
	cfg    Config
	log    *slog.Logger
}

// New builds the server and registers every route.
func New(s store.Store, cfg Config, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	issuer := auth.NewIssuer(cfg.JWTSecret,
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLog(log))
	e.Use(middleware.Recovery(log))
	e.Use(middleware.Metrics())

	srv := &Server{echo: e, store: s, issuer: issuer, cfg: cfg, log: log}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.echo.GET("/healthz", handlers.Healthz)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	openapi.RegisterRoutes(s.echo)

	api := humaecho.New(s.echo, openapi.Config(s.cfg.Version))
	api.UseMiddleware(middleware.Authenticate(s.issuer))
	s.api = api

	handlers.RegisterRoutes(api, handlers.Set{
		Listings: handlers.NewListingsHandler(s.store,
			handlers.WithRawMyListings(s.cfg.RawMyListings),
			handlers.WithListingsLogger(s.log),
		),
		Favorites:       handlers.NewFavoritesHandler(s.store, s.cfg.FavoritesShape),
		Users:           handlers.NewUsersHandler(s.store, s.issuer, s.log),
		Recommendations: handlers.NewRecommendationsHandler(s.store),
	})
}

// API returns the Huma API, for rendering the OpenAPI document.
func (s *Server) API() huma.API {
	return s.api
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Issuer returns the token issuer, for minting tokens in tests and tools.
func (s *Server) Issuer() *auth.Issuer {
	return s.issuer
}

// Start listens on addr and blocks until the server stops. A clean
// shutdown returns nil.
func (s *Server) Start(addr string) error {
	hs := &http.Server{
		Addr:         addr,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.log.Info("starting mock marketplace API", "addr", addr)
	if err := s.echo.StartServer(hs); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}
