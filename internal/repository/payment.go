package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/snipay/snipay/internal/model"
)

// Common errors for payment repository operations.
var (
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrPaymentNotPending means a confirmation raced with another update
	// and the payment is no longer in the pending state.
	ErrPaymentNotPending = errors.New("payment is not pending")
)

// CreatePayment inserts a new payment intent.
func (r *Repository) CreatePayment(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO payments (id, user_id, reference_id, amount, currency, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		payment.ID,
		payment.UserID,
		payment.ReferenceID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.CreatedAt,
		payment.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetPaymentByReference retrieves a payment by its public reference ID.
func (r *Repository) GetPaymentByReference(ctx context.Context, referenceID string) (*model.Payment, error) {
	query := `
		SELECT id, user_id, reference_id, amount, currency, status, created_at, expires_at, confirmed_at, consumed_at
		FROM payments
		WHERE reference_id = $1
	`

	payment, err := scanPayment(r.pool.QueryRow(ctx, query, referenceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment by reference: %w", err)
	}

	return payment, nil
}

// MarkPaymentConfirmed transitions a pending payment to confirmed. The
// update is conditional on the pending state so concurrent confirmations
// cannot double-apply.
func (r *Repository) MarkPaymentConfirmed(ctx context.Context, referenceID string, at time.Time) error {
	query := `
		UPDATE payments
		SET status = $2, confirmed_at = $3
		WHERE reference_id = $1 AND status = $4
	`

	result, err := r.pool.Exec(ctx, query,
		referenceID,
		model.PaymentStatusConfirmed,
		at,
		model.PaymentStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to confirm payment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrPaymentNotPending
	}

	return nil
}

// scanPayment scans a single row into a Payment model.
func scanPayment(row pgx.Row) (*model.Payment, error) {
	var payment model.Payment
	err := row.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.ReferenceID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.CreatedAt,
		&payment.ExpiresAt,
		&payment.ConfirmedAt,
		&payment.ConsumedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
