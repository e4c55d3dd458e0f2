package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"conectasat/internal/platform/middleware"
)

// Registrar is anything that can mount routes onto the router. Domain handlers
// implement it.
type Registrar interface {
	Register(r chi.Router)
}

// Options carries the cross-cutting pieces the router wires in front of every
// handler.
type Options struct {
	Logger             *slog.Logger
	Redis              *goredis.Client
	RateLimitPerMinute int
}

// NewRouter assembles the HTTP surface: platform middleware, operational
// endpoints and every registered domain handler.
func NewRouter(opts Options, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(opts.Logger))
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.RateLimit(opts.Redis, opts.RateLimitPerMinute, opts.Logger))

	r.Get("/", handleRoot)
	r.Get("/health", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(r)
	}

	return r
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "ConectaSAT CFDI verification API",
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "Service is up and running",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
