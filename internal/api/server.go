package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dgallion1/docweave/internal/config"
	"github.com/dgallion1/docweave/internal/metrics"
	"github.com/dgallion1/docweave/internal/textgen"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"
)

// Renderer turns a markdown document into HTML.
type Renderer interface {
	Render(ctx context.Context, src string) (string, error)
}

// Server is the HTTP API server for docweave.
type Server struct {
	router   chi.Router
	renderer Renderer
	stats    *textgen.LLMStats
	registry *prom.Registry
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server. stats and registry may be
// nil, which disables /api/stats/llm and /metrics respectively.
func NewServer(renderer Renderer, stats *textgen.LLMStats, registry *prom.Registry, log *slog.Logger, cfg config.Config) *Server {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	s := &Server{
		renderer: renderer,
		stats:    stats,
		registry: registry,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	if s.registry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.HTTPHandler(s.registry))
	}

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/markdown", s.handleMarkdown)
		r.Get("/api/markdown-files", s.handleListFiles)
		r.Get("/api/markdown-files/{name}", s.handleGetFile)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
