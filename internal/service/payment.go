package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/snipay/snipay/internal/model"
	"github.com/snipay/snipay/internal/qr"
	"github.com/snipay/snipay/internal/repository"
)

// Payment service errors.
var (
	ErrPaymentNotFound = errors.New("payment reference not found")
	// ErrPaymentExpired means the settlement window closed before the
	// payment was confirmed.
	ErrPaymentExpired = errors.New("payment reference expired")
	// ErrReferenceConsumed means the reference already bought a URL and
	// can never be presented again.
	ErrReferenceConsumed = errors.New("payment reference already consumed")
)

// PaymentConfig holds the merchant-side intent parameters.
type PaymentConfig struct {
	UPIID        string
	MerchantName string
	Amount       int64 // minor units
	Currency     string
	Expiry       time.Duration
}

// PaymentService issues and confirms UPI payment intents.
type PaymentService struct {
	repo *repository.Repository
	cfg  PaymentConfig
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(repo *repository.Repository, cfg PaymentConfig) *PaymentService {
	return &PaymentService{repo: repo, cfg: cfg}
}

// GenerateIntent creates a pending payment for the user and returns the
// scan-to-pay intent: reference, UPI deep link parameters, and a QR code.
func (s *PaymentService) GenerateIntent(ctx context.Context, userID string) (*model.PaymentIntent, error) {
	now := time.Now().UTC()

	payment := &model.Payment{
		ID:          ulid.Make().String(),
		UserID:      userID,
		ReferenceID: newPaymentReference(),
		Amount:      s.cfg.Amount,
		Currency:    s.cfg.Currency,
		Status:      model.PaymentStatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.Expiry),
	}

	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	upiIntent := qr.UPIIntent(s.cfg.UPIID, s.cfg.MerchantName, payment.ReferenceID, payment.Amount, payment.Currency)
	qrBase64, err := qr.EncodePNG(upiIntent)
	if err != nil {
		return nil, fmt.Errorf("render payment QR: %w", err)
	}

	return &model.PaymentIntent{
		ReferenceID:  payment.ReferenceID,
		Amount:       payment.Amount,
		Currency:     payment.Currency,
		UPIID:        s.cfg.UPIID,
		MerchantName: s.cfg.MerchantName,
		QRCodeBase64: qrBase64,
	}, nil
}

// Confirm records that the user settled the referenced payment.
// Confirming an already-confirmed payment is a no-op; a consumed or
// expired reference is rejected. Payments owned by other users look like
// they do not exist.
func (s *PaymentService) Confirm(ctx context.Context, userID, referenceID string) error {
	payment, err := s.repo.GetPaymentByReference(ctx, referenceID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return ErrPaymentNotFound
		}
		return err
	}
	if payment.UserID != userID {
		return ErrPaymentNotFound
	}

	switch payment.Status {
	case model.PaymentStatusConfirmed:
		return nil
	case model.PaymentStatusConsumed:
		return ErrReferenceConsumed
	}

	if payment.IsExpired() {
		return ErrPaymentExpired
	}

	err = s.repo.MarkPaymentConfirmed(ctx, referenceID, time.Now().UTC())
	if errors.Is(err, repository.ErrPaymentNotPending) {
		// Lost a race with another confirmation. Re-read to report the
		// state that won.
		return s.Confirm(ctx, userID, referenceID)
	}
	return err
}

// newPaymentReference generates a public payment reference of the form
// PAY-XXXXXXXX.
func newPaymentReference() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "PAY-" + strings.ToUpper(raw[:8])
}
