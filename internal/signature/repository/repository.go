package repository

import (
	"context"
	"errors"

	"handshake/backend/internal/signature/domain"
)

// ErrDuplicate is returned by Create when the agreement already has a signature event.
var ErrDuplicate = errors.New("signature: event already exists for agreement")

// Repository persists signature events. Events are insert-only.
type Repository interface {
	// Create inserts e, returning ErrDuplicate if one exists for e.AgreementID.
	Create(ctx context.Context, e *domain.Event) error
	// GetByAgreementID returns the agreement's event, or nil if not found.
	GetByAgreementID(ctx context.Context, agreementID string) (*domain.Event, error)
}
