package domain

import (
	"time"

	"handshake/backend/internal/receipt"
)

// Event is the immutable record of a completed signature: a frozen copy of every signed field, the
// payload that was hashed, and the resulting signature. At most one exists per agreement.
type Event struct {
	ID string
	receipt.Fields
	CanonicalPayload string
	HMACSignature    string
	CreatedAt        time.Time
}
