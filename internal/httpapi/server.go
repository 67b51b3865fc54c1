// Package httpapi serves the Ancestor routes over HTTP.
package httpapi

import (
	"context"
	"iter"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ancestord/internal/ancestor"
	"ancestord/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Ask(ctx context.Context, req ancestor.Request) (ancestor.Result, error)
	AskStream(ctx context.Context, req ancestor.Request) (iter.Seq[string], error)
	Ready() bool
	Status() types.EngineStatus
}

// Options carries the static facts reported by /status.
type Options struct {
	Model   types.Model
	Speech  string
	Started time.Time
}

// Routes lists the public routes, as shown by GET /.
var Routes = []string{"/ancestor", "/ancestor/stream", "/healthz", "/readyz", "/status", "/metrics"}

func NewMux(svc Service, opts Options) http.Handler {
	if opts.Started.IsZero() {
		opts.Started = time.Now()
	}
	if opts.Speech == "" {
		opts.Speech = "none"
	}
	h := &handlers{svc: svc, opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if len(corsAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id", "X-Log-Level"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Welcome to Ancestor AI",
			"routes":  Routes,
		})
	})

	r.Group(func(r chi.Router) {
		if every := rateWindow(); every > 0 {
			r.Use(newIPLimiter(every, rateLimitPerMin).middleware)
		}
		r.Get("/ancestor", h.askGet)
		r.Post("/ancestor", h.askPost)
		r.Post("/ancestor/stream", h.askStream)
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		writeJSON(w, http.StatusOK, types.StatusResponse{
			Engine:         svc.Status(),
			Model:          opts.Model,
			Speech:         opts.Speech,
			UptimeSeconds:  int64(now.Sub(opts.Started).Seconds()),
			ServerTimeUnix: now.Unix(),
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}
