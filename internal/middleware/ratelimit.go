package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"myretail/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// clientIdleTTL is how long an unused bucket is kept before eviction.
const clientIdleTTL = 3 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter manages per-client token buckets. A request carrying one of the
// configured API keys is limited per key; anything else is limited per remote IP,
// so unknown keys cannot mint fresh buckets.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
	now       func() time.Time

	rate   rate.Limit
	burst  int
	keys   []string
	logger zerolog.Logger
}

// NewRateLimiter creates a limiter allowing rps requests per second per client
// with the given burst. It returns nil when rps is not positive.
func NewRateLimiter(rps, burst int, logger zerolog.Logger, apiKeys ...string) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		now:     time.Now,
		rate:    rate.Limit(rps),
		burst:   burst,
		keys:    apiKeys,
		logger:  logger,
	}
}

func (l *RateLimiter) getLimiter(id string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= clientIdleTTL {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) >= clientIdleTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[id]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[id] = c
	}
	c.lastSeen = now
	return c.limiter
}

// size returns the number of tracked clients.
func (l *RateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Middleware rejects requests over the client's budget with 429.
// A nil limiter passes every request through.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := l.clientID(r)
		if !l.getLimiter(id).Allow() {
			l.logger.Warn().
				Str("path", r.URL.Path).
				Str("client", id).
				Msg("rate limit exceeded")
			w.Header().Set("Retry-After", "1")
			writeError(w, r, http.StatusTooManyRequests, model.ErrCodeRateLimited, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID names the bucket for r. Configured keys are referred to by index
// so key material never ends up in logs.
func (l *RateLimiter) clientID(r *http.Request) string {
	if provided := r.Header.Get("X-API-Key"); provided != "" {
		for i, key := range l.keys {
			if keyMatches(provided, key) {
				return "key:" + strconv.Itoa(i)
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
