// Package server provides the HTTP server and routing.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/jaehoon-ko/wonfolio/internal/api"
	"github.com/jaehoon-ko/wonfolio/internal/capture"
	"github.com/jaehoon-ko/wonfolio/internal/database"
	"github.com/jaehoon-ko/wonfolio/internal/modules/deposits"
	"github.com/jaehoon-ko/wonfolio/internal/modules/manual"
	"github.com/jaehoon-ko/wonfolio/internal/modules/registry"
	returnshandlers "github.com/jaehoon-ko/wonfolio/internal/modules/returns/handlers"
	"github.com/jaehoon-ko/wonfolio/internal/modules/snapshots"
)

// Config holds server configuration.
type Config struct {
	Log         zerolog.Logger
	Port        int
	DevMode     bool
	DataDir     string
	PortfolioDB *database.DB
	CacheDB     *database.DB

	Capture          *capture.Service
	ReturnsHandlers  *returnshandlers.Handlers
	DepositHandlers  *deposits.Handlers
	ManualHandlers   *manual.Handlers
	RegistryHandlers *registry.Handlers
	SnapshotHandlers *snapshots.Handlers
}

// Server is the HTTP server.
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            Config
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.DataDir, map[string]*database.DB{
			"portfolio": cfg.PortfolioDB,
			"cache":     cfg.CacheDB,
		}),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check, outside the /api envelope
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		s.cfg.ReturnsHandlers.RegisterRoutes(r)
		s.cfg.DepositHandlers.RegisterRoutes(r)
		s.cfg.ManualHandlers.RegisterRoutes(r)
		s.cfg.RegistryHandlers.RegisterRoutes(r)
		s.cfg.SnapshotHandlers.RegisterRoutes(r)

		r.Post("/capture/run", s.handleCaptureRun)

		r.Route("/system", func(r chi.Router) {
			r.Get("/info", s.systemHandlers.HandleSystemInfo)
			r.Get("/databases", s.systemHandlers.HandleDatabaseStats)
		})
	})
}

// handleCaptureRun triggers an on-demand capture, optionally for a past date.
func (s *Server) handleCaptureRun(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")

	res, err := s.cfg.Capture.CaptureSnapshot(date)
	if err != nil {
		api.WriteError(w, s.log, err)
		return
	}
	api.WriteJSON(w, s.log, http.StatusOK, res)
}

// handleHealth reports process liveness and database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	databases := map[string]string{}
	for name, db := range map[string]*database.DB{"portfolio": s.cfg.PortfolioDB, "cache": s.cfg.CacheDB} {
		if db == nil {
			continue
		}
		if err := db.HealthCheck(ctx); err != nil {
			databases[name] = "unreachable"
			status = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			databases[name] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"databases": databases,
	})
}

// Router exposes the configured handler, used by tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server (blocking).
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
