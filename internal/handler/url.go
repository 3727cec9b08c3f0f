package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/snipay/snipay/internal/auth"
	"github.com/snipay/snipay/internal/handler/dto"
	"github.com/snipay/snipay/internal/service"
)

// URLHandler handles short URL management requests.
type URLHandler struct {
	urls   *service.URLService
	logger *slog.Logger
}

// NewURLHandler creates a new URLHandler.
func NewURLHandler(urls *service.URLService, logger *slog.Logger) *URLHandler {
	return &URLHandler{urls: urls, logger: logger}
}

// Shorten handles POST /api/url/shorten.
// Creates a short URL by spending a confirmed payment reference.
func (h *URLHandler) Shorten(w http.ResponseWriter, r *http.Request) {
	var req dto.ShortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.PaymentReferenceID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_REFERENCE", "paymentReferenceId is required")
		return
	}

	userID := auth.UserIDFromContext(r.Context())

	shortURL, err := h.urls.Shorten(r.Context(), userID, req.OriginalURL, req.PaymentReferenceID)
	if err != nil {
		h.handleURLError(w, err)
		return
	}

	h.logger.Info("url_created",
		"user_id", userID,
		"url_id", shortURL.ID,
		"short_code", shortURL.ShortCode,
		"reference_id", req.PaymentReferenceID,
	)

	writeJSON(w, http.StatusCreated, dto.ToURLResponse(shortURL, h.urls.ShortLink(shortURL.ShortCode)))
}

// ListMine handles GET /api/url/user.
// Returns all of the caller's short URLs, newest first.
func (h *URLHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	urls, err := h.urls.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list_urls_failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	responses := make([]*dto.URLResponse, 0, len(urls))
	for _, u := range urls {
		responses = append(responses, dto.ToURLResponse(u, h.urls.ShortLink(u.ShortCode)))
	}

	writeJSON(w, http.StatusOK, responses)
}

// handleURLError maps URL service errors to HTTP responses.
func (h *URLHandler) handleURLError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidOriginalURL):
		writeError(w, http.StatusBadRequest, "INVALID_URL", "Original URL is invalid")
	case errors.Is(err, service.ErrURLTooLong):
		writeError(w, http.StatusBadRequest, "INVALID_URL", "Original URL exceeds maximum length")
	case errors.Is(err, service.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, "PAYMENT_REFERENCE_UNKNOWN", "Payment reference not found")
	case errors.Is(err, service.ErrPaymentNotConfirmed):
		writeError(w, http.StatusPaymentRequired, "PAYMENT_NOT_CONFIRMED", "Payment has not been confirmed")
	case errors.Is(err, service.ErrReferenceConsumed):
		writeError(w, http.StatusConflict, "REFERENCE_ALREADY_CONSUMED", "Payment reference was already used")
	default:
		h.logger.Error("shorten_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
