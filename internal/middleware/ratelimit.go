package middleware

import (
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/technosupport/cctv-console/internal/ratelimit"
)

type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter
	actions ratelimit.LimitConfig
	log     zerolog.Logger
}

func NewRateLimitMiddleware(l *ratelimit.Limiter, actions ratelimit.LimitConfig, log zerolog.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: l,
		actions: actions,
		log:     log.With().Str("component", "ratelimit").Logger(),
	}
}

// ActionLimiter limits state-changing console requests per client IP.
// When Redis is unavailable requests are let through.
func (m *RateLimitMiddleware) ActionLimiter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ratelimit.Key(ratelimit.ScopeAction, m.limiter.HashIP(clientIP(r)))

		decision, err := m.limiter.CheckRateLimit(r.Context(), ratelimit.ScopeAction, key, m.actions)
		if errors.Is(err, ratelimit.ErrRedisUnavailable) {
			RecordRedisError()
			RecordRateLimit(string(ratelimit.ScopeAction), "fail_open")
			m.log.Warn().Err(err).Str("path", r.URL.Path).Msg("rate limit check failed open")
			next.ServeHTTP(w, r)
			return
		} else if err != nil {
			RecordRateLimit(string(ratelimit.ScopeAction), "fail_open")
			m.log.Error().Err(err).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}

		m.writeRateLimitHeaders(w, decision)
		if !decision.Allowed {
			RecordRateLimit(string(ratelimit.ScopeAction), "blocked")
			respondLimited(w)
			return
		}

		RecordRateLimit(string(ratelimit.ScopeAction), "allowed")
		next.ServeHTTP(w, r)
	})
}

func respondLimited(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"` + ratelimit.ErrRateLimitExceeded.Error() + `"}` + "\n"))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (m *RateLimitMiddleware) writeRateLimitHeaders(w http.ResponseWriter, d *ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
	if !d.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
	}
}
