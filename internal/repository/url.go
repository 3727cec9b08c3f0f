package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/snipay/snipay/internal/model"
)

// Common errors for short URL repository operations.
var (
	ErrShortURLNotFound = errors.New("short URL not found")
	ErrShortCodeExists  = errors.New("short code already exists")
	// ErrPaymentNotConfirmed means the referenced payment exists but has
	// not been confirmed, so it cannot buy a short URL.
	ErrPaymentNotConfirmed = errors.New("payment is not confirmed")
	// ErrPaymentConsumed means the referenced payment already bought a
	// short URL. A reference is spent exactly once.
	ErrPaymentConsumed = errors.New("payment reference already consumed")
)

// CreateURLConsumingPayment atomically spends a confirmed payment and
// inserts the short URL it pays for. Both happen in one transaction: the
// payment flips to consumed only if the URL row lands, and the URL row
// lands only if this call is the one that flipped the payment. Losing a
// race over the same reference surfaces as ErrPaymentConsumed.
func (r *Repository) CreateURLConsumingPayment(ctx context.Context, url *model.ShortURL, referenceID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	consume := `
		UPDATE payments
		SET status = $2, consumed_at = $3
		WHERE reference_id = $1 AND user_id = $4 AND status = $5
	`

	result, err := tx.Exec(ctx, consume,
		referenceID,
		model.PaymentStatusConsumed,
		time.Now().UTC(),
		url.UserID,
		model.PaymentStatusConfirmed,
	)
	if err != nil {
		return fmt.Errorf("consume payment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return r.classifyUnspendablePayment(ctx, referenceID, url.UserID)
	}

	insert := `
		INSERT INTO short_urls (id, user_id, short_code, original_url, total_clicks, enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = tx.Exec(ctx, insert,
		url.ID,
		url.UserID,
		url.ShortCode,
		url.OriginalURL,
		url.TotalClicks,
		url.Enabled,
		url.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrShortCodeExists
		}
		return fmt.Errorf("create short URL: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// classifyUnspendablePayment explains why the conditional consume update
// matched nothing.
func (r *Repository) classifyUnspendablePayment(ctx context.Context, referenceID, userID string) error {
	payment, err := r.GetPaymentByReference(ctx, referenceID)
	if err != nil {
		return err
	}
	if payment.UserID != userID {
		return ErrPaymentNotFound
	}

	switch payment.Status {
	case model.PaymentStatusConsumed:
		return ErrPaymentConsumed
	case model.PaymentStatusPending:
		return ErrPaymentNotConfirmed
	default:
		return ErrPaymentNotConfirmed
	}
}

// GetURLByShortCode retrieves a short URL by its code.
// This is the hot path for redirects.
func (r *Repository) GetURLByShortCode(ctx context.Context, shortCode string) (*model.ShortURL, error) {
	query := `
		SELECT id, user_id, short_code, original_url, total_clicks, enabled, created_at
		FROM short_urls
		WHERE short_code = $1
	`

	url, err := scanShortURL(r.pool.QueryRow(ctx, query, shortCode))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrShortURLNotFound
		}
		return nil, fmt.Errorf("failed to get URL by short code: %w", err)
	}

	return url, nil
}

// ListURLsByUser retrieves all short URLs owned by a user, newest first.
func (r *Repository) ListURLsByUser(ctx context.Context, userID string) ([]*model.ShortURL, error) {
	query := `
		SELECT id, user_id, short_code, original_url, total_clicks, enabled, created_at
		FROM short_urls
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list URLs: %w", err)
	}
	defer rows.Close()

	var urls []*model.ShortURL
	for rows.Next() {
		url, err := scanShortURL(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan URL: %w", err)
		}
		urls = append(urls, url)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating URLs: %w", err)
	}

	return urls, nil
}

// IncrementURLClicks bumps the denormalized click counter for a URL.
// Called from the async click recording path, not the redirect itself.
func (r *Repository) IncrementURLClicks(ctx context.Context, id string, count int64) error {
	query := `
		UPDATE short_urls
		SET total_clicks = total_clicks + $2
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, id, count)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}

	return nil
}

// ShortCodeExists checks if a short code is already taken.
func (r *Repository) ShortCodeExists(ctx context.Context, shortCode string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM short_urls WHERE short_code = $1)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, shortCode).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check short code existence: %w", err)
	}

	return exists, nil
}

// scanShortURL scans a single row into a ShortURL model.
func scanShortURL(row pgx.Row) (*model.ShortURL, error) {
	var url model.ShortURL
	err := row.Scan(
		&url.ID,
		&url.UserID,
		&url.ShortCode,
		&url.OriginalURL,
		&url.TotalClicks,
		&url.Enabled,
		&url.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &url, nil
}
