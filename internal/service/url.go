package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/snipay/snipay/internal/cache"
	"github.com/snipay/snipay/internal/model"
	"github.com/snipay/snipay/internal/repository"
)

// URL service errors.
var (
	ErrInvalidOriginalURL  = errors.New("invalid original URL")
	ErrURLTooLong          = errors.New("original URL too long")
	ErrShortURLNotFound    = errors.New("short URL not found")
	ErrURLDisabled         = errors.New("short URL is disabled")
	ErrPaymentNotConfirmed = errors.New("payment is not confirmed")
)

const (
	maxOriginalURLLength = 2048
	shortCodeLength      = 6
	shortCodeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	maxShortCodeRetries  = 3
)

// URLService handles short URL business logic.
type URLService struct {
	repo    *repository.Repository
	cache   *cache.Cache
	baseURL string
}

// NewURLService creates a new URLService.
func NewURLService(repo *repository.Repository, cache *cache.Cache, baseURL string) *URLService {
	return &URLService{
		repo:    repo,
		cache:   cache,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Shorten creates a short URL, spending the referenced payment. The
// payment must be confirmed and unspent; it is consumed atomically with
// the URL creation so one payment never buys two URLs.
func (s *URLService) Shorten(ctx context.Context, userID, originalURL, referenceID string) (*model.ShortURL, error) {
	if err := s.validateOriginalURL(originalURL); err != nil {
		return nil, err
	}

	shortCode, err := s.generateUniqueShortCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate short code: %w", err)
	}

	shortURL := &model.ShortURL{
		ID:          ulid.Make().String(),
		UserID:      userID,
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		Enabled:     true,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.repo.CreateURLConsumingPayment(ctx, shortURL, referenceID); err != nil {
		switch {
		case errors.Is(err, repository.ErrPaymentNotFound):
			return nil, ErrPaymentNotFound
		case errors.Is(err, repository.ErrPaymentNotConfirmed):
			return nil, ErrPaymentNotConfirmed
		case errors.Is(err, repository.ErrPaymentConsumed):
			return nil, ErrReferenceConsumed
		}
		return nil, fmt.Errorf("failed to create short URL: %w", err)
	}

	// Warm the redirect cache; eventual consistency is fine
	_ = s.cache.SetRedirect(ctx, shortURL)

	return shortURL, nil
}

// ListForUser retrieves all of a user's short URLs, newest first.
func (s *URLService) ListForUser(ctx context.Context, userID string) ([]*model.ShortURL, error) {
	return s.repo.ListURLsByUser(ctx, userID)
}

// ResolveRedirect resolves a short code to its destination.
// This is the hot path - cache first, negative cache for misses, DB as
// the source of truth.
func (s *URLService) ResolveRedirect(ctx context.Context, shortCode string) (*model.ShortURL, error) {
	cached, err := s.cache.GetRedirect(ctx, shortCode)
	if err == nil {
		return s.validateRedirect(cached.ToShortURL(shortCode))
	}

	if errors.Is(err, cache.ErrCacheMiss) {
		isNegative, _ := s.cache.IsNegativelyCached(ctx, shortCode)
		if isNegative {
			return nil, ErrShortURLNotFound
		}
	}
	// On Redis errors fall through to the database.

	shortURL, err := s.repo.GetURLByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, repository.ErrShortURLNotFound) {
			_ = s.cache.SetNegativeCache(ctx, shortCode)
			return nil, ErrShortURLNotFound
		}
		return nil, err
	}

	_ = s.cache.SetRedirect(ctx, shortURL)

	return s.validateRedirect(shortURL)
}

// RecordClickAsync records a redirect hit without blocking the redirect.
// The Redis counter feeds the denormalized total; the click event row
// feeds per-day analytics.
func (s *URLService) RecordClickAsync(shortURL *model.ShortURL, ip, userAgent, referrer string) {
	event := &model.ClickEvent{
		ID:        ulid.Make().String(),
		URLID:     shortURL.ID,
		ShortCode: shortURL.ShortCode,
		ClickedAt: time.Now().UTC(),
		IPAddress: ip,
		UserAgent: userAgent,
		Referrer:  referrer,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = s.cache.IncrementClicks(ctx, shortURL.ShortCode)
		_ = s.repo.InsertClickEvent(ctx, event)
	}()
}

// FlushClicks moves buffered Redis click counters into the database.
// Called periodically from a background loop.
func (s *URLService) FlushClicks(ctx context.Context) error {
	keys, err := s.cache.ScanClickKeys(ctx)
	if err != nil {
		return err
	}

	for _, key := range keys {
		shortCode := cache.ExtractShortCodeFromClickKey(key)
		if shortCode == "" {
			continue
		}

		count, err := s.cache.GetAndResetClicks(ctx, shortCode)
		if err != nil || count == 0 {
			continue
		}

		shortURL, err := s.repo.GetURLByShortCode(ctx, shortCode)
		if err != nil {
			continue
		}

		if err := s.repo.IncrementURLClicks(ctx, shortURL.ID, count); err != nil {
			return fmt.Errorf("flush clicks for %s: %w", shortCode, err)
		}
	}

	return nil
}

// ShortLink renders the public short link for a code.
func (s *URLService) ShortLink(shortCode string) string {
	return s.baseURL + "/" + shortCode
}

// validateRedirect rejects disabled URLs on the redirect path.
func (s *URLService) validateRedirect(shortURL *model.ShortURL) (*model.ShortURL, error) {
	if !shortURL.Enabled {
		return nil, ErrURLDisabled
	}
	return shortURL, nil
}

// validateOriginalURL validates the URL being shortened.
func (s *URLService) validateOriginalURL(raw string) error {
	if raw == "" {
		return ErrInvalidOriginalURL
	}

	if len(raw) > maxOriginalURLLength {
		return ErrURLTooLong
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidOriginalURL
	}

	// Only allow http and https schemes
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidOriginalURL
	}

	// Must have a host
	if parsed.Host == "" {
		return ErrInvalidOriginalURL
	}

	return nil
}

// generateUniqueShortCode generates a short code with collision retry.
func (s *URLService) generateUniqueShortCode(ctx context.Context) (string, error) {
	for i := 0; i < maxShortCodeRetries; i++ {
		code := generateRandomShortCode()
		exists, err := s.repo.ShortCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("failed to generate unique short code after retries")
}

// generateRandomShortCode generates a random code using crypto/rand.
func generateRandomShortCode() string {
	b := make([]byte, shortCodeLength)
	for i := range b {
		idx, err := cryptoRandInt(len(shortCodeAlphabet))
		if err != nil {
			// Fallback (should never happen in practice)
			idx = 0
		}
		b[i] = shortCodeAlphabet[idx]
	}
	return string(b)
}

// cryptoRandInt returns a cryptographically secure random integer in [0, max).
func cryptoRandInt(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
