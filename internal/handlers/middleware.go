package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"bikeshare-platform/pkg/logging"
	"bikeshare-platform/pkg/metrics"
)

// RequestIDHeader carries the per-request session ID
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags each request context with a session ID, reusing the
// caller's X-Request-ID when present, and logs the request on completion.
func RequestIDMiddleware(logger *logging.StructuredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			start := time.Now()
			ctx := logging.WithSessionID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))

			logger.Debug(ctx, "[HTTP_REQUEST] Request served", logging.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}

// RateLimiter rejects requests above a steady rate with 429 Too Many Requests
type RateLimiter struct {
	limiter *rate.Limiter
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewRateLimiter allows rps requests per second with the given burst
func NewRateLimiter(rps float64, burst int, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Middleware implements mux.MiddlewareFunc
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			rl.logger.Warn(r.Context(), "[RATE_LIMITED] Request rejected", logging.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
			})
			rl.metrics.RecordAPIError("rate_limited", endpoint(r))

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(ErrorResponse{
				Error:     http.StatusText(http.StatusTooManyRequests),
				Message:   "rate limit exceeded",
				Code:      http.StatusTooManyRequests,
				ErrorCode: CodeRateLimited,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
