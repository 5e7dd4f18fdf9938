// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - Which storage backend the process talks to
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (we can create a test server without running main)
// - Reusable (multiple entry points could use the same server config)
// - Clean (main.go stays minimal — just "start the server")
//
// DEPENDENCY INJECTION FLOW:
// main.go creates:
//   Config (port, db path) → passed to Server
//   Server.New() creates: Store (sqlite or postgres) → services → handlers → hub
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
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

	"github.com/sakif/pinboard/internal/handler"
	"github.com/sakif/pinboard/internal/middleware"
	"github.com/sakif/pinboard/internal/repository"
	"github.com/sakif/pinboard/internal/repository/postgres"
	"github.com/sakif/pinboard/internal/repository/sqlite"
	"github.com/sakif/pinboard/internal/service"
	"github.com/sakif/pinboard/internal/ws"
)

// Config holds server configuration.
// Using a struct for config (instead of individual parameters) makes it easy to:
// - Add new config options without changing function signatures
// - Pass config around as a single value
// - Load config from files/env vars in one place
type Config struct {
	Port   int
	DBPath string // SQLite database file, used when no postgres URL is set
}

// postgresEnvVars are checked in order; the first non-empty one selects
// the postgres backend. The POSTGRESS_ spelling is kept for
// compatibility with existing deployments that already set it.
var postgresEnvVars = []string{
	"DATABASE_URL",
	"POSTGRES_URL",
	"POSTGRESS_POSTGRES_URL",
	"POSTGRESS_SUPABASE_URL",
}

// openStore picks the storage backend from the environment.
//
// BACKEND SELECTION LIVES HERE, NOT IN THE REPOSITORY PACKAGE:
// Both driver packages import repository for the Store interface, so a
// factory in repository would create an import cycle. The composition
// root is the natural home for "which implementation do we use" anyway.
//
// STRICT STARTUP:
// A postgres URL that doesn't connect is a hard error — we do NOT fall
// back to sqlite. Silently running on the wrong backend is far worse
// than failing fast: the operator configured postgres and would lose
// every write made to a surprise local file.
func openStore(cfg Config, logger *slog.Logger) (repository.Store, error) {
	for _, name := range postgresEnvVars {
		if dsn := os.Getenv(name); dsn != "" {
			logger.Info("using postgres storage", slog.String("source", name))
			return postgres.New(dsn)
		}
	}
	logger.Info("using sqlite storage", slog.String("path", cfg.DBPath))
	return sqlite.New(cfg.DBPath)
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the store connection and the websocket hub. Both are
// shut down in Start() during graceful shutdown: the hub is stopped via
// context cancellation, the store is closed to flush pending writes.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	store  repository.Store
	hub    *ws.Hub
}

// New creates a new Server with the given config.
//
// The whole dependency chain is assembled here:
//  1. Open the storage backend (openStore)
//  2. Create the schema and seed categories (Initialize)
//  3. Create the websocket hub
//  4. Create the service layer with the Store interface
//  5. Create the handlers with the services and the hub
//  6. Wire handlers to routes
//
// Each layer only receives what it needs:
// - Services get the repository interface (not the concrete driver)
// - Handlers get the services and the hub (never the store)
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	// Initialize is fatal when it fails: running without a schema just
	// turns every request into a 500.
	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Initialize(initCtx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
		hub:    ws.NewHub(logger),
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /health                        → Liveness probe
// GET    /ws                            → Websocket upgrade
// GET    /api/pins                      → List pins
// POST   /api/pins                      → Create pin
// GET    /api/pins/categories           → List categories
// GET    /api/pins/categories/all       → List categories (original client path)
// POST   /api/pins/categories           → Create category
// PUT    /api/pins/categories/{id}      → Update category
// DELETE /api/pins/categories/{id}      → Delete category
// GET    /api/pins/{id}                 → Get pin with visit history
// PUT    /api/pins/{id}                 → Update pin
// DELETE /api/pins/{id}                 → Delete pin
// POST   /api/pins/{id}/visit           → Record a visit
// GET    /api/pins/{id}/history         → Visit history (original client path)
// GET    /api/pins/{id}/visits          → Visit history
//
// ROUTE ORDER MATTERS:
// /api/pins/categories is registered BEFORE /api/pins/{id} so that
// "categories" is never captured as a pin id.
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added. Our order:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. CORS — the API is consumed by browsers on other origins
// 5. Logger — logs each request with timing info
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	s.router.Use(middleware.Logger(s.logger))

	pinHandler := handler.NewPinHandler(service.NewPinService(s.store, s.logger), s.hub, s.logger)
	categoryHandler := handler.NewCategoryHandler(service.NewCategoryService(s.store, s.logger), s.hub, s.logger)
	wsHandler := handler.NewWSHandler(s.hub, s.logger)

	s.router.Get("/health", handler.HandleHealth)
	s.router.Get("/ws", wsHandler.HandleConnect)

	s.router.Route("/api/pins", func(r chi.Router) {
		r.Get("/", pinHandler.HandleList)
		r.Post("/", pinHandler.HandleCreate)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.HandleList)
			// The original frontend fetches the list at /all; both paths serve it.
			r.Get("/all", categoryHandler.HandleList)
			r.Post("/", categoryHandler.HandleCreate)
			r.Put("/{id}", categoryHandler.HandleUpdate)
			r.Delete("/{id}", categoryHandler.HandleDelete)
		})

		r.Get("/{id}", pinHandler.HandleGet)
		r.Put("/{id}", pinHandler.HandleUpdate)
		r.Delete("/{id}", pinHandler.HandleDelete)
		r.Post("/{id}/visit", pinHandler.HandleVisit)
		// The original frontend reads history at /history; /visits is kept as an alias.
		r.Get("/{id}/history", pinHandler.HandleHistory)
		r.Get("/{id}/visits", pinHandler.HandleHistory)
	})

	s.router.NotFound(handler.HandleNotFound)
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Stop the hub (closes all websocket connections)
// 4. Close the store (flushes WAL / returns pooled connections)
//
// The `defer s.store.Close()` ensures step 4 happens even if something panics.
func (s *Server) Start() error {
	defer s.store.Close()

	// The hub runs until this context is canceled.
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go func() {
		_ = s.hub.Run(hubCtx)
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine (so it doesn't block)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		stopHub()
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
