package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/snipay/snipay/internal/model"
)

// ErrInvalidToken covers every way a bearer token can fail verification:
// bad signature, wrong algorithm, expiry, or garbage input. Callers get
// one error so responses cannot leak which check failed.
var ErrInvalidToken = errors.New("invalid or expired token")

// tokenClaims carries the user identity inside the signed token.
// Subject holds the user ID.
type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies the HS256 bearer tokens handed out at
// login.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer with the given signing secret and
// token lifetime.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue signs a token for the identity, valid for the configured TTL.
func (t *TokenIssuer) Issue(identity model.Identity) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a signed token, returning the identity it
// carries. Only HS256 is accepted.
func (t *TokenIssuer) Verify(signed string) (model.Identity, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return model.Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return model.Identity{}, ErrInvalidToken
	}

	return model.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}
