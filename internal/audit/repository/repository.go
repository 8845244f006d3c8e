package repository

import (
	"context"

	"handshake/backend/internal/audit/domain"
)

// Repository defines append-only persistence for audit records. There is no update or delete.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByAgreement returns the agreement's records oldest first.
	ListByAgreement(ctx context.Context, agreementID string) ([]*domain.AuditLog, error)
}
