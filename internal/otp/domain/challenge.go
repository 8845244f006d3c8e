package domain

import "time"

// Challenge is one issued one-time code for an (email, agreement) pair (stored in otp_events).
// Attempts only grows; once Verified is true the record is never changed again.
type Challenge struct {
	ID          string
	AgreementID string
	Email       string
	OTPHash     string
	ExpiresAt   time.Time
	Attempts    int
	Verified    bool
	// Invalidated marks a challenge whose code was never delivered; it is ignored by cooldown
	// and verification lookups.
	Invalidated bool
	CreatedAt   time.Time
}

// IsExpiredAt reports whether the challenge can no longer be verified at now.
func (c *Challenge) IsExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
