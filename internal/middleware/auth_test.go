package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/snipay/snipay/internal/auth"
	"github.com/snipay/snipay/internal/model"
)

func newAuthHandler(t *testing.T, tokens *auth.TokenIssuer) (http.Handler, *model.Identity) {
	t.Helper()

	seen := &model.Identity{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := Auth(AuthConfig{Logger: logger, Tokens: tokens})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if identity, ok := auth.IdentityFromContext(r.Context()); ok {
				*seen = identity
			}
			w.WriteHeader(http.StatusOK)
		}))

	return handler, seen
}

func TestAuth_ValidToken(t *testing.T) {
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	handler, seen := newAuthHandler(t, tokens)

	signed, err := tokens.Issue(model.Identity{UserID: "user-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/url/user", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen.UserID != "user-1" {
		t.Errorf("identity user ID = %q, want user-1", seen.UserID)
	}
	if seen.Email != "a@example.com" {
		t.Errorf("identity email = %q, want a@example.com", seen.Email)
	}
}

func TestAuth_Rejections(t *testing.T) {
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	otherTokens := auth.NewTokenIssuer("other-secret", time.Hour)

	otherSigned, err := otherTokens.Issue(model.Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-jwt"},
		{"wrong secret", "Bearer " + otherSigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, seen := newAuthHandler(t, tokens)

			req := httptest.NewRequest(http.MethodGet, "/api/url/user", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if seen.UserID != "" {
				t.Error("handler ran despite rejected token")
			}

			var body struct {
				Code string `json:"code"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Code != "UNAUTHORIZED" {
				t.Errorf("error code = %q, want UNAUTHORIZED", body.Code)
			}
		})
	}
}
