package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

type RouterOptions struct {
	CORSOrigins []string
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64
	RateBurst int
}

// NewRouter wires the middleware stack and the API routes.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(CORS(origins))
	if opts.RateLimit > 0 {
		r.Use(NewIPRateLimiter(rate.Limit(opts.RateLimit), max(opts.RateBurst, 1)).Middleware)
	}

	h.RegisterRoutes(r)
	return r
}

// NewServer returns an http.Server with the timeouts used in production.
// WriteTimeout leaves room for a slow model call plus the sink.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
