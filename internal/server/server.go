package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/workdoc/workdoc/internal/access"
	"github.com/workdoc/workdoc/internal/events"
	"github.com/workdoc/workdoc/internal/handler"
	"github.com/workdoc/workdoc/internal/metrics"
	"github.com/workdoc/workdoc/internal/model"
	"github.com/workdoc/workdoc/internal/openapi"
	"github.com/workdoc/workdoc/internal/server/middleware"
	"github.com/workdoc/workdoc/internal/service"
	"github.com/workdoc/workdoc/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	BaseURL         string
	Version         string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodySize     int64 // bytes
	RateLimit       int   // auth requests per IP per minute, 0 disables
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            5000,
		BaseURL:         "http://localhost:5000",
		Version:         "dev",
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		MaxBodySize:     10 * 1024 * 1024, // 10MB
		RateLimit:       20,
	}
}

// Deps are the services the routes are served from.
type Deps struct {
	Store       *store.Store
	Identity    *service.IdentityService
	Tokens      *service.AuthService
	Submissions *service.SubmissionService
	Events      events.Broker
	Metrics     *metrics.Collector  // optional
	Gatherer    prometheus.Gatherer // optional, serves /metrics
}

// Server is the top-level HTTP server for workdoc. It owns the Chi router
// and the services behind it.
type Server struct {
	cfg        Config
	deps       Deps
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	var rec middleware.HTTPRecorder
	if s.deps.Metrics != nil {
		rec = s.deps.Metrics
	}

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger, rec))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", handler.ClientIDHeader},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if s.cfg.MaxBodySize > 0 {
		r.Use(limitBody(s.cfg.MaxBodySize))
	}

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if s.deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(s.deps.Gatherer))
	}

	// --- OpenAPI spec (no auth required) ---
	r.Get("/openapi.json", handler.NewOpenAPIHandler(openapi.Generate(s.cfg.BaseURL, s.cfg.Version)).ServeSpec)

	authenticate := middleware.Authenticate(s.deps.Tokens, s.deps.Identity)
	adminOnly := middleware.Require(access.RequireRole(model.RoleAdmin))

	authHandler := handler.NewAuthHandler(s.deps.Identity, s.deps.Tokens, s.logger)
	subHandler := handler.NewSubmissionHandler(s.deps.Submissions, s.logger)
	fileHandler := handler.NewFileHandler(s.deps.Submissions, s.logger)
	eventsHandler := handler.NewEventsHandler(s.deps.Events)
	sysHandler := handler.NewSystemHandler(s.deps.Identity, s.deps.Store, s.logger)

	// --- API routes ---
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			// Credential endpoints are rate limited per client IP
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(s.cfg.RateLimit))
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/create-first-admin", authHandler.CreateFirstAdmin)
			})
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Get("/profile", authHandler.Profile)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Screenshots are linked from reports and mail, so no token is needed
		r.Get("/uploads/{filename}", fileHandler.Upload)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.With(middleware.Require(access.RequireRole(model.RoleIntern))).
				Post("/submit", subHandler.Submit)
			r.Get("/submissions", subHandler.List)
			r.With(adminOnly).Delete("/submissions/{id}", subHandler.Delete)
			r.Post("/send-email", subHandler.SendEmail)
			r.Get("/download/{filename}", fileHandler.Download)

			r.Route("/admin", func(r chi.Router) {
				r.Use(adminOnly)

				// Submission event queues
				r.Post("/register", eventsHandler.Register)
				r.Post("/unregister", eventsHandler.Unregister)
				r.Get("/events", eventsHandler.Events)

				// Account management
				r.Get("/users", sysHandler.ListUsers)
				r.Post("/users/deactivate", sysHandler.DeactivateUser)
				r.Post("/users/activate", sysHandler.ActivateUser)
				r.Get("/stats", sysHandler.Stats)
			})
		})
	})

	s.router = r
}

func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the database answers,
// or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := map[string]string{"database": "ok"}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.deps.Store.Ping(ctx); err != nil {
		checks["database"] = "error: " + err.Error()
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the event broker and the database.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in background goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if s.deps.Events != nil {
		if err := s.deps.Events.Close(); err != nil {
			s.logger.Warn("close event broker", "error", err)
		}
	}
	if err := s.deps.Store.Close(); err != nil {
		s.logger.Warn("close database", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
