package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/QTest-hq/casegen/internal/config"
	"github.com/QTest-hq/casegen/internal/llm"
	"github.com/QTest-hq/casegen/internal/session"
	"github.com/QTest-hq/casegen/pkg/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// requestTimeout is above the LLM client timeout so a slow generation
// still gets its answer written.
const requestTimeout = 6 * time.Minute

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// RunStore reads generation history
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]model.GenerationRun, error)
	ListSessionRuns(ctx context.Context, sessionID string, limit int) ([]model.GenerationRun, error)
	GetRun(ctx context.Context, id string) (*model.GenerationRun, error)
}

// UsageReporter exposes LLM usage accounting
type UsageReporter interface {
	GetStats() llm.UsageStats
	GetBudgetStatus() llm.BudgetStatus
	RecentRecords(limit int) []llm.UsageRecord
}

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators the server exposes. Only Sessions is required.
type Deps struct {
	Sessions *session.Manager
	Runs     RunStore
	Usage    UsageReporter
	Checks   map[string]HealthCheck
}

// Server represents the API server
type Server struct {
	cfg      *config.Config
	router   *chi.Mux
	sessions *session.Manager
	runs     RunStore
	usage    UsageReporter
	checks   map[string]HealthCheck
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Sessions == nil {
		return nil, errors.New("session manager is required")
	}

	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		sessions: deps.Sessions,
		runs:     deps.Runs,
		usage:    deps.Usage,
		checks:   deps.Checks,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(requestTimeout))
	s.router.Use(corsMiddleware)
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.healthCheck)
	s.router.Get("/ready", s.readyCheck)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/options", s.getOptions)

		// Sessions
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.createSession)
			r.Get("/", s.listSessions)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Delete("/", s.deleteSession)
				r.Put("/testcase", s.updateTestCase)
				r.Put("/selection", s.updateSelection)

				r.Post("/steps", s.addStep)
				r.Put("/steps/{index}", s.updateStep)
				r.Delete("/steps/{index}", s.removeStep)

				r.Post("/generate", s.generate)
				r.Post("/autofill", s.autoFill)
				r.Get("/preview", s.preview)

				r.Get("/files", s.listFiles)
				r.Put("/files/active", s.selectFile)
				r.Get("/files/{index}", s.getFile)

				r.Get("/runs", s.listSessionRuns)
			})
		})

		// Generation history
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.listRuns)
			r.Get("/{runID}", s.getRun)
		})

		r.Get("/usage", s.getUsage)
	})
}

// Health check handlers
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyCheck(w http.ResponseWriter, r *http.Request) {
	failed := make(map[string]string)
	for name, check := range s.checks {
		if err := check(r.Context()); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		log.Warn().Interface("failed", failed).Msg("readiness check failed")
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not ready",
			"checks": failed,
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondText(w http.ResponseWriter, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
