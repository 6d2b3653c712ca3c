package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lookanalyst/lookanalyst"
	"github.com/lookanalyst/lookanalyst/metrics"
	"github.com/lookanalyst/lookanalyst/models"
)

// Version is reported by the info endpoint
const Version = "1.0.0"

// Server represents the API server
type Server struct {
	pipeline    *lookanalyst.Pipeline
	addr        string
	server      *http.Server
	router      chi.Router
	corsEnabled bool
	frontendURL string
}

// Config contains server configuration
type Config struct {
	Addr        string
	CORSEnabled bool
	FrontendURL string // Public base URL advertised by the info endpoint
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:        ":3000",
		CORSEnabled: true,
		FrontendURL: "http://localhost:3000",
	}
}

// NewServer creates a new API server around a pipeline
func NewServer(config Config, pipeline *lookanalyst.Pipeline) *Server {
	s := &Server{
		pipeline:    pipeline,
		addr:        config.Addr,
		corsEnabled: config.CORSEnabled,
		frontendURL: config.FrontendURL,
	}

	s.router = s.registerRoutes()

	s.server = &http.Server{
		Addr:        config.Addr,
		Handler:     otelhttp.NewHandler(s.router, "lookanalyst-api"),
		ReadTimeout: 30 * time.Second,
		// Page fetch, proxy fallback, image download, and the model call run in sequence
		WriteTimeout: 4 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	})

	r.Get("/", s.handleInfo)
	r.Get("/docs", s.handleDocs)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/analyze-clothing", s.handleAnalyzeClothing)
	r.Post("/download", s.handleDownload)

	return r
}

// Start starts the API server
func (s *Server) Start() error {
	slog.Info("starting API server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}

// middleware applies CORS, request logging, and request metrics to all routes
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.corsEnabled {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept-Language")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		labels := []string{r.Method, pattern, strconv.Itoa(status)}
		metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(duration.Seconds())

		// Skip health checks and scrapes to reduce noise
		if r.URL.Path != "/health" && r.URL.Path != "/metrics" {
			slog.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", duration.Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message, details string) {
	respondJSON(w, status, models.ErrorResponse{
		Success: false,
		Error:   message,
		Details: details,
	})
}
