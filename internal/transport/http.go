package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const sessionHeader = "Mcp-Session-Id"

// ServerConfig holds the handlers served in http mode.
type ServerConfig struct {
	MCP     http.Handler
	Metrics http.Handler
	// Auth protects /mcp and /metrics when set.
	Auth   func(http.Handler) http.Handler
	Logger *slog.Logger
}

// NewServer creates the HTTP router.
func NewServer(cfg ServerConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(cfg.Logger))

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		if cfg.Auth != nil {
			r.Use(cfg.Auth)
		}
		if cfg.MCP != nil {
			r.Handle("/mcp", cfg.MCP)
			r.Handle("/mcp/*", cfg.MCP)
		}
		if cfg.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", cfg.Metrics)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeRPCError(w, http.StatusNotFound, CodeNotFound, "not found")
	})
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// New MCP sessions get their ID in the response.
			sessionID := r.Header.Get(sessionHeader)
			if sessionID == "" {
				sessionID = ww.Header().Get(sessionHeader)
			}
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"session_id", sessionID,
				"duration", time.Since(start),
			)
		})
	}
}
