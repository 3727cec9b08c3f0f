package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/snipay/snipay/internal/auth"
	"github.com/snipay/snipay/internal/handler/dto"
	"github.com/snipay/snipay/internal/service"
)

// PaymentHandler handles payment intent requests.
type PaymentHandler struct {
	payments *service.PaymentService
	logger   *slog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, logger: logger}
}

// GenerateQR handles POST /api/payment/generate-qr.
// Issues a fresh payment reference with its scan-to-pay QR code.
func (h *PaymentHandler) GenerateQR(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	intent, err := h.payments.GenerateIntent(r.Context(), userID)
	if err != nil {
		h.logger.Error("generate_intent_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	h.logger.Info("payment_intent_issued",
		"user_id", userID,
		"reference_id", intent.ReferenceID,
		"amount", intent.Amount,
	)

	writeJSON(w, http.StatusOK, intent)
}

// Confirm handles POST /api/payment/confirm?paymentReferenceId=PAY-XXXX.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	referenceID := r.URL.Query().Get("paymentReferenceId")
	if referenceID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_REFERENCE", "paymentReferenceId is required")
		return
	}

	userID := auth.UserIDFromContext(r.Context())

	if err := h.payments.Confirm(r.Context(), userID, referenceID); err != nil {
		h.handlePaymentError(w, referenceID, err)
		return
	}

	h.logger.Info("payment_confirmed", "user_id", userID, "reference_id", referenceID)

	writeJSON(w, http.StatusOK, dto.ConfirmResponse{
		Success: true,
		Message: "Payment confirmed",
	})
}

// handlePaymentError maps payment service errors to HTTP responses.
func (h *PaymentHandler) handlePaymentError(w http.ResponseWriter, referenceID string, err error) {
	switch {
	case errors.Is(err, service.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, "PAYMENT_REFERENCE_UNKNOWN", "Payment reference not found")
	case errors.Is(err, service.ErrPaymentExpired):
		writeError(w, http.StatusGone, "PAYMENT_EXPIRED", "Payment reference has expired")
	case errors.Is(err, service.ErrReferenceConsumed):
		writeError(w, http.StatusConflict, "REFERENCE_ALREADY_CONSUMED", "Payment reference was already used")
	default:
		h.logger.Error("confirm_payment_failed", "reference_id", referenceID, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
