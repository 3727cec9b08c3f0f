package gateway

import (
	"context"
	"net/http"
)

// Session is an authenticated API session as returned by signup/login.
type Session struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// SessionClient talks to the unauthenticated auth endpoints.
type SessionClient struct {
	client *Client
}

// NewSessionClient creates a SessionClient for the API at baseURL.
// No token is needed; these endpoints establish one.
func NewSessionClient(baseURL string) *SessionClient {
	return &SessionClient{client: New(baseURL, "")}
}

// credentials is the wire body for signup and login.
type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup registers a new account and returns its session.
func (s *SessionClient) Signup(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	body := credentials{Email: email, Password: password}
	if err := s.client.do(ctx, http.MethodPost, "/api/auth/signup", nil, body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Login authenticates an existing account and returns its session.
func (s *SessionClient) Login(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	body := credentials{Email: email, Password: password}
	if err := s.client.do(ctx, http.MethodPost, "/api/auth/login", nil, body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}
