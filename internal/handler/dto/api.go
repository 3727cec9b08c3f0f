// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/snipay/snipay/internal/model"
)

// SignupRequest represents the request body for registration.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the bearer token handed out at signup and login.
type AuthResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// ShortenRequest represents the request body for creating a short URL.
// PaymentReferenceID must name a confirmed, unspent payment.
type ShortenRequest struct {
	OriginalURL        string `json:"originalUrl"`
	PaymentReferenceID string `json:"paymentReferenceId"`
}

// URLResponse represents a short URL in API responses.
type URLResponse struct {
	ID          string    `json:"id"`
	OriginalURL string    `json:"originalUrl"`
	ShortCode   string    `json:"shortCode"`
	ShortURL    string    `json:"shortUrl"`
	TotalClicks int64     `json:"totalClicks"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ConfirmResponse acknowledges a payment confirmation.
type ConfirmResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToURLResponse converts a ShortURL model to a URLResponse DTO.
func ToURLResponse(url *model.ShortURL, shortLink string) *URLResponse {
	return &URLResponse{
		ID:          url.ID,
		OriginalURL: url.OriginalURL,
		ShortCode:   url.ShortCode,
		ShortURL:    shortLink,
		TotalClicks: url.TotalClicks,
		CreatedAt:   url.CreatedAt,
	}
}
