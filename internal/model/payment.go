// Package model defines domain entities for the application.
package model

import "time"

// PaymentStatus represents the lifecycle state of a payment record.
type PaymentStatus string

const (
	// PaymentStatusPending means the payment intent was issued but not settled.
	PaymentStatusPending PaymentStatus = "pending"
	// PaymentStatusConfirmed means settlement was confirmed for this reference.
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	// PaymentStatusConsumed means a short URL was already issued against
	// this reference. A consumed payment can never be used again.
	PaymentStatusConsumed PaymentStatus = "consumed"
)

// Payment represents a server-side payment record tied to one shorten request.
// A payment is created in pending state when a QR intent is generated,
// moves to confirmed when the user reports settlement, and is consumed
// exactly once when a short URL is created against it.
type Payment struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	ReferenceID string        `json:"payment_reference_id"`
	Amount      int64         `json:"amount"` // minor units (paise)
	Currency    string        `json:"currency"`
	Status      PaymentStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
	ConfirmedAt *time.Time    `json:"confirmed_at,omitempty"`
	ConsumedAt  *time.Time    `json:"consumed_at,omitempty"`
}

// IsExpired reports whether a still-pending payment has passed its
// settlement window. Confirmed and consumed payments never expire.
func (p *Payment) IsExpired() bool {
	return p.Status == PaymentStatusPending && time.Now().After(p.ExpiresAt)
}

// PaymentIntent is the client-facing view of a freshly issued payment.
// It is immutable once issued; later workflow steps reference it by
// ReferenceID but never mutate it. Field names follow the wire contract.
type PaymentIntent struct {
	ReferenceID  string `json:"paymentReferenceId"`
	Amount       int64  `json:"amount"` // minor units
	Currency     string `json:"currency"`
	UPIID        string `json:"upiId"`
	MerchantName string `json:"merchantName"`
	QRCodeBase64 string `json:"qrCodeBase64"`
}
