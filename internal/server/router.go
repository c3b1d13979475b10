package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fedutinova/meshgen/internal/metrics"
	httpapi "github.com/fedutinova/meshgen/internal/transport/http"
)

// NewRouter mounts the API handlers. m may be nil, in which case /metrics is
// not served.
func NewRouter(h *httpapi.Handlers, m *metrics.Collector) http.Handler {
	r := chi.NewRouter()

	// CORS must run first so preflight requests short-circuit
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}))

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if m != nil {
		r.Use(m.Middleware)
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	h.Routers(r)
	return r
}
