package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/snipay/snipay/internal/auth"
	"github.com/snipay/snipay/internal/service"
)

// AnalyticsHandler serves click statistics.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	logger    *slog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analytics *service.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: logger}
}

// UserSeries handles GET /api/analytics/user.
// Returns the caller's per-day click counts as a sparse date-keyed map.
// A user with no clicks gets an empty object, never an error.
func (h *AnalyticsHandler) UserSeries(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	series, err := h.analytics.UserClickSeries(r.Context(), userID)
	if err != nil {
		h.logger.Error("user_series_failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, series)
}

// URLSeries handles GET /api/analytics/{shortCode}.
func (h *AnalyticsHandler) URLSeries(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "shortCode")
	userID := auth.UserIDFromContext(r.Context())

	stats, err := h.analytics.URLAnalytics(r.Context(), userID, shortCode)
	if err != nil {
		if errors.Is(err, service.ErrShortURLNotFound) {
			writeError(w, http.StatusNotFound, "URL_NOT_FOUND", "Short URL not found")
			return
		}
		h.logger.Error("url_series_failed", "short_code", shortCode, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
