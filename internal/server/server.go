// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — it connects handlers, middleware, and
// routes. It is the composition root: every dependency in the chain
//
//	sqlite.DB → services → handlers → routes
//
// is assembled here, in one place, rather than scattered across the codebase.
// main.go stays minimal: read config, build the logger, call server.New and
// Start.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/diarioapp/diario/internal/asset"
	"github.com/diarioapp/diario/internal/auth"
	"github.com/diarioapp/diario/internal/handler"
	"github.com/diarioapp/diario/internal/middleware"
	sqliteRepo "github.com/diarioapp/diario/internal/repository/sqlite"
	"github.com/diarioapp/diario/internal/service"
)

// Config holds server configuration, loaded from the environment in main.go.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string

	// Cloudinary credentials for the remote asset store.
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// GitHub OAuth; the /auth/github routes are only mounted when ClientID
	// is set.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	// StaticDir, when set, serves the built frontend with an index.html
	// fallback for client-side routes.
	StaticDir string

	// CORSOrigins lists the allowed browser origins (the dev frontends).
	CORSOrigins []string
}

// Server owns the router and the resources behind it. The database
// connection is closed during graceful shutdown to flush the WAL and release
// the file lock.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server and wires the full dependency chain. Each layer only
// receives what it needs: services get repository interfaces, handlers get
// services, and nothing below the handlers ever sees HTTP.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS — it executes in the order added:
//  1. RequestID — assigns a unique ID to each request (for tracing)
//  2. RealIP — extracts the real client IP from proxy headers
//  3. CORS — the browser frontends live on other origins and send cookies
//  4. Logger — logs each request with timing info
//  5. Recoverer — catches panics and returns 500 instead of crashing
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	assets := asset.New(asset.Config{
		CloudName: s.config.CloudinaryCloudName,
		APIKey:    s.config.CloudinaryAPIKey,
		APISecret: s.config.CloudinaryAPISecret,
	}, s.logger)

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	locationService := service.NewLocationService(s.db, s.logger)
	memoryService := service.NewMemoryService(s.db, assets, s.logger)

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	authHandler := handler.NewAuthHandler(authService, github, s.logger)
	locationHandler := handler.NewLocationHandler(locationService)
	memoryHandler := handler.NewMemoryHandler(memoryService)

	if github != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	}

	s.router.Route("/api", func(r chi.Router) {
		// Public: account creation and sign-in.
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		// Everything else requires a valid token.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)

			r.Get("/locations", locationHandler.HandleList)
			r.Post("/locations", locationHandler.HandleCreate)
			r.Put("/locations", locationHandler.HandleUpdate)
			r.Delete("/locations/{title}/{lat}/{lon}", locationHandler.HandleDelete)

			r.Get("/memories", memoryHandler.HandleList)
			r.Post("/memories", memoryHandler.HandleCreate)
			r.Put("/memories/{title}/{date}/{text}", memoryHandler.HandleUpdate)
			r.Delete("/memories/{title}/{date}/{text}", memoryHandler.HandleDelete)

			r.Get("/memories/{title}/{date}/{text}/files", memoryHandler.HandleListFiles)
			r.Post("/memories/{title}/{date}/{text}/files", memoryHandler.HandleAddFile)
			r.Delete("/memories/{title}/{date}/{text}/files", memoryHandler.HandleRemoveFile)
			r.Put("/memories/{title}/{date}/{text}/files/display-name", memoryHandler.HandleRenameFile)
		})
	})

	// Built frontend, when present. Must come last — it catches everything
	// the API routes didn't.
	if s.config.StaticDir != "" {
		s.router.Handle("/*", handler.NewSPAHandler(s.config.StaticDir))
	}

	return nil
}

// Start starts the HTTP server and handles graceful shutdown:
//  1. Stop accepting new connections on SIGINT/SIGTERM
//  2. Wait up to 30s for in-flight requests
//  3. Close the database connection
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
