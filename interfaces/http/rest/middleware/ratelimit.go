package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/timmarsh1987/XMCVisualiser/pkg/auth"
	"github.com/timmarsh1987/XMCVisualiser/pkg/errors"
)

// RateLimit rejects callers that exceed their token bucket with 429. The
// caller is keyed by address; run after chi's RealIP.
func RateLimit(limiter auth.RateLimiter, limit int, window time.Duration, eh *errors.ErrorHandler) func(next http.Handler) http.Handler {
	ipLimiter := auth.NewIPRateLimiter(limiter)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := ipLimiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				eh.Handle(w, r, errors.NewInternalError("rate limiter unavailable").WithCause(err))
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter(limit, window)))
				eh.Handle(w, r, errors.NewRateLimitError(limit, window.String()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// retryAfter is the refill interval of one token in whole seconds
func retryAfter(limit int, window time.Duration) int {
	if limit <= 0 {
		return 1
	}
	seconds := int((window / time.Duration(limit)).Seconds())
	return max(seconds, 1)
}
