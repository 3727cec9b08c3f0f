package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/snipay/snipay/internal/model"
)

// Server error codes for the shorten endpoint.
const (
	CodeInvalidURL               = "INVALID_URL"
	CodePaymentNotConfirmed      = "PAYMENT_NOT_CONFIRMED"
	CodeReferenceAlreadyConsumed = "REFERENCE_ALREADY_CONSUMED"
)

// ResourceClient talks to the short URL endpoints.
type ResourceClient struct {
	client *Client
}

// NewResourceClient creates a ResourceClient on top of an authenticated Client.
func NewResourceClient(client *Client) *ResourceClient {
	return &ResourceClient{client: client}
}

// shortenRequest is the wire body for URL creation.
type shortenRequest struct {
	OriginalURL        string `json:"originalUrl"`
	PaymentReferenceID string `json:"paymentReferenceId"`
}

// Create requests creation of a short URL against a confirmed payment
// reference. Callers must only pass a reference that previously yielded
// a confirmed settlement check; the server still re-verifies and rejects
// unconfirmed or reused references.
func (rc *ResourceClient) Create(ctx context.Context, originalURL, referenceID string) (*model.ShortURL, error) {
	if err := validateAbsoluteURL(originalURL); err != nil {
		return nil, err
	}

	body := shortenRequest{
		OriginalURL:        originalURL,
		PaymentReferenceID: referenceID,
	}

	var created model.ShortURL
	err := rc.client.do(ctx, http.MethodPost, "/api/url/shorten", nil, body, &created)
	if err != nil {
		return nil, refineCreateError(err)
	}

	return &created, nil
}

// ListMine fetches the calling user's short URLs.
func (rc *ResourceClient) ListMine(ctx context.Context) ([]*model.ShortURL, error) {
	var urls []*model.ShortURL
	if err := rc.client.do(ctx, http.MethodGet, "/api/url/user", nil, nil, &urls); err != nil {
		return nil, err
	}
	return urls, nil
}

// refineCreateError narrows a generic upstream error into the kinds the
// caller distinguishes: validation rejection and state conflicts.
func refineCreateError(err error) error {
	gwErr, ok := AsError(err)
	if !ok || gwErr.Kind != KindUpstream {
		return err
	}

	switch {
	case gwErr.Status == http.StatusBadRequest || gwErr.Code == CodeInvalidURL:
		gwErr.Kind = KindValidation
	case gwErr.Code == CodeReferenceAlreadyConsumed,
		gwErr.Code == CodePaymentNotConfirmed,
		gwErr.Status == http.StatusConflict,
		gwErr.Status == http.StatusPaymentRequired:
		gwErr.Kind = KindStateConflict
	}

	return gwErr
}

// validateAbsoluteURL rejects anything that is not an absolute http(s)
// URL before any request is sent.
func validateAbsoluteURL(raw string) error {
	if raw == "" {
		return &Error{Kind: KindValidation, Message: "original URL is required"}
	}

	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return &Error{Kind: KindValidation, Message: "original URL must be an absolute URL"}
	}

	return nil
}
