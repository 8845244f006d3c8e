package repository

import (
	"context"
	"time"

	"handshake/backend/internal/otp/domain"
)

// Repository defines persistence for OTP challenges.
type Repository interface {
	Create(ctx context.Context, c *domain.Challenge) error
	// GetLatest returns the newest non-invalidated challenge for the pair, or nil if none.
	// When unverifiedOnly is true, verified challenges are skipped.
	GetLatest(ctx context.Context, email, agreementID string, unverifiedOnly bool) (*domain.Challenge, error)
	// IncrementAttempts atomically adds one to attempts and returns the new count.
	IncrementAttempts(ctx context.Context, id string) (int, error)
	// MarkVerified sets verified=true if it was false; ok reports whether this call changed it.
	MarkVerified(ctx context.Context, id string) (ok bool, err error)
	// Invalidate flags a challenge whose code could not be delivered.
	Invalidate(ctx context.Context, id string) error
}

// DefaultChallengeTTL is how long an issued code stays valid.
const DefaultChallengeTTL = 10 * time.Minute
