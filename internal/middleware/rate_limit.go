package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	pkghttp "github.com/sacbeh/gatehouse/pkg/http"
)

// RateLimitConfig holds per-IP rate limiting configuration
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// DefaultAuthRateLimit returns the default budget for credential endpoints:
// 10 attempts per minute per IP
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Requests: 10,
		Window:   1 * time.Minute,
	}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(cfg RateLimitConfig) func(next http.Handler) http.Handler {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		cfg = DefaultAuthRateLimit()
	}

	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many requests. Try again later.")
		}),
	)
}
