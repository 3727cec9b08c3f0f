package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/snipay/snipay/internal/auth"
	"github.com/snipay/snipay/internal/cache"
)

// RateLimitConfig configures both rate limiting middlewares.
type RateLimitConfig struct {
	Logger *slog.Logger
	Cache  *cache.Cache

	// Per-user limits for authenticated API routes.
	APIEnabled bool
	UserRPM    int
	UserBurst  int

	// Per-IP limits for the public redirect route.
	RedirectEnabled bool
	RedirectRPS     int
	RedirectBurst   int
}

// RateLimitUser limits authenticated API requests per user. It must
// run after Auth so the identity is in the context; without one the
// request passes through untouched.
func RateLimitUser(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := auth.UserIDFromContext(r.Context())
			if !cfg.APIEnabled || cfg.UserRPM <= 0 || userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := cfg.Cache.CheckUserRateLimit(r.Context(), userID, cfg.UserRPM, cfg.UserBurst)
			if err != nil {
				// Fail open; rate limiting is protection, not a dependency.
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("user_id", userID),
				)
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, cfg.UserRPM, result.Remaining, result.ResetAt)

			if !result.Allowed {
				rejectRateLimited(w, r, cfg.Logger, result.RetryAfter,
					slog.String("type", "api"),
					slog.String("user_id", userID),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitIP limits requests per client IP on the public redirect
// route, where there is no user identity to key on.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RedirectEnabled {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)

			result, err := cfg.Cache.CheckIPRateLimit(r.Context(), ip, cfg.RedirectRPS, cfg.RedirectBurst)
			if err != nil {
				cfg.Logger.Error("IP rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("ip", ip),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !result.Allowed {
				rejectRateLimited(w, r, cfg.Logger, result.RetryAfter,
					slog.String("type", "redirect"),
					slog.String("ip", ip),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	if limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
}

// rejectRateLimited logs the rejection and writes the 429 response.
func rejectRateLimited(w http.ResponseWriter, r *http.Request, logger *slog.Logger, retryAfter time.Duration, attrs ...slog.Attr) {
	attrs = append(attrs,
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Int64("retry_after_seconds", int64(retryAfter.Seconds())),
		slog.String("request_id", GetRequestID(r.Context())),
	)
	logger.LogAttrs(r.Context(), slog.LevelWarn, "rate limit exceeded", attrs...)

	w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	fmt.Fprintf(w, `{"code":"RATE_LIMITED","message":"Rate limit exceeded. Retry after %d seconds."}`,
		int(retryAfter.Seconds()))
}

// clientIP resolves the originating address behind proxies: first
// X-Forwarded-For entry, then X-Real-IP, then the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
