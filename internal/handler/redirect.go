package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/snipay/snipay/internal/service"
)

// RedirectHandler handles redirect requests.
type RedirectHandler struct {
	urls   *service.URLService
	logger *slog.Logger
}

// NewRedirectHandler creates a new RedirectHandler.
func NewRedirectHandler(urls *service.URLService, logger *slog.Logger) *RedirectHandler {
	return &RedirectHandler{urls: urls, logger: logger}
}

// Redirect handles GET /{shortCode} for URL redirection.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")
	if shortCode == "" {
		writeError(w, http.StatusNotFound, "URL_NOT_FOUND", "Short URL not found")
		return
	}

	start := time.Now()

	shortURL, err := h.urls.ResolveRedirect(r.Context(), shortCode)
	duration := time.Since(start)

	if err != nil {
		h.handleRedirectError(w, shortCode, err, duration)
		return
	}

	// Record the hit without blocking the redirect
	h.urls.RecordClickAsync(shortURL,
		getClientIP(r),
		r.Header.Get("User-Agent"),
		r.Header.Get("Referer"),
	)

	h.logger.Info("redirect_success",
		"short_code", shortCode,
		"duration_ms", float64(duration.Microseconds())/1000,
	)

	// Set security headers
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Cache-Control", "private, max-age=0")

	http.Redirect(w, r, shortURL.OriginalURL, http.StatusFound)
}

// handleRedirectError handles errors during redirect resolution.
func (h *RedirectHandler) handleRedirectError(w http.ResponseWriter, shortCode string, err error, duration time.Duration) {
	switch {
	case errors.Is(err, service.ErrShortURLNotFound):
		h.logger.Info("redirect_not_found",
			"short_code", shortCode,
			"duration_ms", float64(duration.Microseconds())/1000,
		)
		h.writeRedirectError(w, http.StatusNotFound, "URL_NOT_FOUND", "Short URL not found")

	case errors.Is(err, service.ErrURLDisabled):
		h.logger.Info("redirect_disabled",
			"short_code", shortCode,
			"duration_ms", float64(duration.Microseconds())/1000,
		)
		// Return 404 for disabled URLs (don't reveal existence)
		h.writeRedirectError(w, http.StatusNotFound, "URL_NOT_FOUND", "Short URL not found")

	default:
		h.logger.Error("redirect_error",
			"short_code", shortCode,
			"error", err,
			"duration_ms", float64(duration.Microseconds())/1000,
		)
		h.writeRedirectError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeRedirectError writes a JSON error response for redirect failures.
func (h *RedirectHandler) writeRedirectError(w http.ResponseWriter, status int, code, message string) {
	// Set security headers even on errors
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=0")

	writeError(w, status, code, message)
}

// getClientIP resolves the visitor address for click events. CDN and
// proxy headers take precedence over the socket address.
func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
