package repository

import (
	"context"

	"handshake/backend/internal/agreement/domain"
)

// Repository defines persistence for agreements. Agreements are never deleted.
type Repository interface {
	Create(ctx context.Context, a *domain.Agreement) error
	// GetByID returns the agreement, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Agreement, error)
	// GetByToken returns the agreement holding signerToken, or nil if not found.
	GetByToken(ctx context.Context, signerToken string) (*domain.Agreement, error)
	// ListByCreator returns the creator's agreements newest first.
	ListByCreator(ctx context.Context, creatorID string) ([]*domain.Agreement, error)
	// UpdateStatus applies u only if the current status is one of from, in a single conditional write.
	// It reports whether a row changed.
	UpdateStatus(ctx context.Context, id string, from []domain.Status, u domain.StatusUpdate) (bool, error)
}
