package repository

import (
	"context"
	"database/sql"

	"handshake/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create appends the record. The record must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	meta := a.Metadata
	if meta == "" {
		meta = "{}"
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_trail (id, agreement_id, event_type, actor_email, ip, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`,
		a.ID, a.AgreementID, string(a.EventType), nullString(a.ActorEmail), a.IP, meta, a.CreatedAt)
	return err
}

// ListByAgreement returns the agreement's audit records oldest first.
func (r *PostgresRepository) ListByAgreement(ctx context.Context, agreementID string) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, agreement_id, event_type, actor_email, ip, metadata::text, created_at
FROM audit_trail
WHERE agreement_id = $1
ORDER BY created_at, id`, agreementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var (
			a     domain.AuditLog
			et    string
			actor sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.AgreementID, &et, &actor, &a.IP, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.EventType = domain.EventType(et)
		a.ActorEmail = actor.String
		out = append(out, &a)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
