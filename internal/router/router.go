package router

import (
	"context"
	"net/http"
	"time"

	"myretail/internal/handler"
	"myretail/internal/middleware"

	"github.com/rs/zerolog"
)

// readyTimeout bounds the dependency check behind /ready.
const readyTimeout = 2 * time.Second

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New creates a new HTTP router with all routes and middleware configured.
func New(
	productHandler *handler.ProductHandler,
	store Pinger,
	limiter *middleware.RateLimiter,
	apiKey string,
	adminKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Liveness (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Readiness reflects price store reachability
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("readiness check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ready"}`))
	})

	mux.HandleFunc("GET /products/{productId}", productHandler.GetByID)
	mux.HandleFunc("PUT /products/{productId}", productHandler.Update)

	// Apply middleware in order: Recovery -> RequestID -> Logging -> RateLimit -> CORS -> APIKeyAuth
	var handler http.Handler = mux
	handler = middleware.APIKeyAuth(apiKey, adminKey, logger)(handler)
	handler = middleware.CORS(handler)
	handler = limiter.Middleware(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
