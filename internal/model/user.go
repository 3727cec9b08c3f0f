package model

import "time"

// User represents an account that owns payments and short URLs.
// PasswordHash is an argon2id PHC string and never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the authenticated caller attached to a request context
// after the session token has been verified.
type Identity struct {
	UserID string
	Email  string
}
