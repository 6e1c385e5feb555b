// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root — the one place where the entire
// dependency chain is assembled:
//
//	sqlite.DB → repositories → services → handlers → routes
//
// Each layer only receives what it needs: services get repository interfaces
// (not the concrete DB), handlers get services (not repositories). main.go
// stays minimal — it reads config and calls New + Start.
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

	"github.com/sakif/linkvault/internal/auth"
	"github.com/sakif/linkvault/internal/handler"
	"github.com/sakif/linkvault/internal/middleware"
	sqliteRepo "github.com/sakif/linkvault/internal/repository/sqlite"
	"github.com/sakif/linkvault/internal/service"
)

// Config holds server configuration, loaded from the environment in main.
type Config struct {
	Port   int
	DBPath string

	JWTSecret string

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string

	// FrontendURL is where OAuth redirects land; it is always allowed by CORS.
	FrontendURL string
	// CORSOrigins lists additional allowed origins.
	CORSOrigins []string

	Env string // "development" or "production"
}

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown so the WAL is flushed and the file lock
// released.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain and registers all routes.
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

// Handler exposes the router for tests driving the server with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database connection. Start does this itself; Close is
// for tests that never call Start.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures middleware and the API route tree.
//
// ROUTE STRUCTURE:
//
//	GET    /                                      → service info
//	GET    /health                                → liveness probe
//	POST   /api/auth/register                     → create password account
//	POST   /api/auth/login                        → email/password login
//	GET    /api/auth/oauth/github                 → start GitHub OAuth
//	GET    /api/auth/oauth/github/callback        → finish GitHub OAuth
//	GET    /api/auth/me                           → current user          [auth]
//	GET    /api/users/profile                     → own profile           [auth]
//	PUT    /api/users/profile                     → update profile        [auth]
//	PUT    /api/users/profile/privacy             → update privacy flags  [auth]
//	DELETE /api/users/delete                      → delete account        [auth]
//	GET    /api/users/portfolio/{identifier}      → public portfolio      [optional auth]
//	GET    /api/connections                       → own connections       [auth]
//	POST   /api/connections                       → add connection        [auth]
//	PUT    /api/connections/{id}                  → update connection     [auth]
//	DELETE /api/connections/{id}                  → delete connection     [auth]
//	GET    /api/connections/user/{userId}         → public connections
//	POST   /api/connections/{id}/click            → record click, return URL
//	GET    /api/analytics/overview                → dashboard totals      [auth]
//	GET    /api/analytics/platforms               → clicks per platform   [auth]
//	GET    /api/analytics/activity                → recent events         [auth]
//	POST   /api/analytics/track                   → record custom event   [auth]
//
// Middleware order matters: RealIP must run before logging so log lines and
// analytics see the client address, and Recoverer wraps everything below it.
func (s *Server) setupRoutes() error {
	handler.ExposeErrorDetail(s.config.Env == "development")

	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// === Auth building blocks ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()
	github := auth.NewGitHubProvider(
		s.config.GitHubClientID,
		s.config.GitHubClientSecret,
		s.config.GitHubCallbackURL,
	)

	// === Services ===
	users := s.db.Users()
	connections := s.db.Connections()
	analytics := s.db.Analytics()

	authService := service.NewAuthService(users, connections, tokens, passwords, s.logger)
	userService := service.NewUserService(users, connections, analytics, s.logger)
	connectionService := service.NewConnectionService(connections, analytics, s.logger)
	analyticsService := service.NewAnalyticsService(analytics, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, github, s.config.FrontendURL, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	connectionHandler := handler.NewConnectionHandler(connectionService, s.logger)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, s.logger)

	requireAuth := auth.RequireAuth(tokens, users)
	optionalAuth := auth.OptionalAuth(tokens)

	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Get("/oauth/github", authHandler.HandleGitHubLogin)
			r.Get("/oauth/github/callback", authHandler.HandleGitHubCallback)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)
		})

		r.Route("/users", func(r chi.Router) {
			r.With(optionalAuth).Get("/portfolio/{identifier}", userHandler.HandleGetPortfolio)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/profile", userHandler.HandleGetProfile)
				r.Put("/profile", userHandler.HandleUpdateProfile)
				r.Put("/profile/privacy", userHandler.HandleUpdatePrivacy)
				r.Delete("/delete", userHandler.HandleDeleteAccount)
			})
		})

		r.Route("/connections", func(r chi.Router) {
			r.Get("/user/{userId}", connectionHandler.HandleListPublic)
			r.Post("/{id}/click", connectionHandler.HandleClick)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/", connectionHandler.HandleList)
				r.Post("/", connectionHandler.HandleCreate)
				r.Put("/{id}", connectionHandler.HandleUpdate)
				r.Delete("/{id}", connectionHandler.HandleDelete)
			})
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/overview", analyticsHandler.HandleOverview)
			r.Get("/platforms", analyticsHandler.HandlePlatforms)
			r.Get("/activity", analyticsHandler.HandleActivity)
			r.Post("/track", analyticsHandler.HandleTrack)
		})
	})

	return nil
}

// allowedOrigins is the CORS allow-list: everything from CORS_ORIGINS plus
// the frontend URL, deduplicated.
func (s *Server) allowedOrigins() []string {
	seen := make(map[string]bool)
	var origins []string
	for _, o := range append([]string{s.config.FrontendURL}, s.config.CORSOrigins...) {
		if o != "" && !seen[o] {
			seen[o] = true
			origins = append(origins, o)
		}
	}
	return origins
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"name":"linkvault","status":"ok","env":%q}`, s.config.Env)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"healthy"}`))
}

// Start runs the HTTP server and blocks until shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections.
//  2. Wait up to 30s for in-flight requests to finish.
//  3. Close the database (deferred) to flush the WAL and release the lock.
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
			slog.String("env", s.config.Env),
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
