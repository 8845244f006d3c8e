package repository

import (
	"context"
	"database/sql"
	"errors"

	"handshake/backend/internal/otp/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an OTP challenge repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const challengeColumns = `id, agreement_id, email, otp_hash, expires_at, attempts, verified, invalidated, created_at`

// Create persists the challenge. The challenge must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Challenge) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO otp_events (`+challengeColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.AgreementID, c.Email, c.OTPHash, c.ExpiresAt, c.Attempts, c.Verified, c.Invalidated, c.CreatedAt)
	return err
}

// GetLatest returns the newest non-invalidated challenge for email and agreementID, or nil if not found.
func (r *PostgresRepository) GetLatest(ctx context.Context, email, agreementID string, unverifiedOnly bool) (*domain.Challenge, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+challengeColumns+`
FROM otp_events
WHERE email = $1 AND agreement_id = $2 AND NOT invalidated AND (NOT $3 OR NOT verified)
ORDER BY created_at DESC, id DESC
LIMIT 1`, email, agreementID, unverifiedOnly)
	var c domain.Challenge
	err := row.Scan(&c.ID, &c.AgreementID, &c.Email, &c.OTPHash, &c.ExpiresAt, &c.Attempts, &c.Verified, &c.Invalidated, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// IncrementAttempts adds one to attempts in a single statement so concurrent verifies each count.
func (r *PostgresRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`UPDATE otp_events SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`, id).Scan(&n)
	return n, err
}

// MarkVerified flips verified to true once.
func (r *PostgresRepository) MarkVerified(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otp_events SET verified = TRUE WHERE id = $1 AND NOT verified`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Invalidate flags the challenge so lookups skip it. Verified challenges are left untouched.
func (r *PostgresRepository) Invalidate(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE otp_events SET invalidated = TRUE WHERE id = $1 AND NOT verified`, id)
	return err
}
