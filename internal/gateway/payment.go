package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/snipay/snipay/internal/model"
)

// Server error codes for the payment endpoints.
const (
	CodePaymentNotSettled       = "PAYMENT_NOT_SETTLED"
	CodePaymentReferenceUnknown = "PAYMENT_REFERENCE_UNKNOWN"
	CodePaymentExpired          = "PAYMENT_EXPIRED"
)

// ConfirmationResult is the outcome of a settlement check. Anything
// other than ResultConfirmed is a hard stop for that attempt; whether
// the same reference may be checked again depends on the result.
type ConfirmationResult int

const (
	// ResultConfirmed means the payment settled; resource creation may proceed.
	ResultConfirmed ConfirmationResult = iota + 1
	// ResultNotYetSettled means the money has not arrived. The same
	// reference stays valid and may be checked again later.
	ResultNotYetSettled
	// ResultExpired means the settlement window closed. The reference is
	// dead; a fresh intent is required.
	ResultExpired
	// ResultUnknown means the server does not recognize the reference.
	// The reference is dead; a fresh intent is required.
	ResultUnknown
)

// String returns a user-presentable description of the result.
func (r ConfirmationResult) String() string {
	switch r {
	case ResultConfirmed:
		return "confirmed"
	case ResultNotYetSettled:
		return "not yet settled"
	case ResultExpired:
		return "expired"
	case ResultUnknown:
		return "unknown reference"
	default:
		return "invalid"
	}
}

// PaymentClient talks to the payment endpoints.
type PaymentClient struct {
	client *Client
}

// NewPaymentClient creates a PaymentClient on top of an authenticated Client.
func NewPaymentClient(client *Client) *PaymentClient {
	return &PaymentClient{client: client}
}

// RequestIntent asks the server to allocate a new payment intent for the
// calling user. The server associates the reference with the user; no
// domain input is needed beyond the ambient identity. Failures are never
// retried here: issuing an intent has real-world side effects.
func (p *PaymentClient) RequestIntent(ctx context.Context) (*model.PaymentIntent, error) {
	var intent model.PaymentIntent
	if err := p.client.do(ctx, http.MethodPost, "/api/payment/generate-qr", nil, nil, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// Confirm asks the server whether the given payment reference has settled.
//
// The server signals the distinguishable outcomes through status codes:
// 402 means the money has not arrived yet, 404 means the reference is not
// recognized, 410 means the settlement window closed. Any other rejection
// is treated conservatively as a non-retryable upstream error.
func (p *PaymentClient) Confirm(ctx context.Context, referenceID string) (ConfirmationResult, error) {
	query := url.Values{"paymentReferenceId": {referenceID}}

	err := p.client.do(ctx, http.MethodPost, "/api/payment/confirm", query, nil, nil)
	if err == nil {
		return ResultConfirmed, nil
	}

	gwErr, ok := AsError(err)
	if !ok || gwErr.Kind == KindTransport {
		return 0, err
	}

	switch {
	case gwErr.Status == http.StatusPaymentRequired || gwErr.Code == CodePaymentNotSettled:
		return ResultNotYetSettled, nil
	case gwErr.Status == http.StatusNotFound || gwErr.Code == CodePaymentReferenceUnknown:
		return ResultUnknown, nil
	case gwErr.Status == http.StatusGone || gwErr.Code == CodePaymentExpired:
		return ResultExpired, nil
	}

	return 0, err
}
