package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"handshake/backend/internal/signature/domain"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a signature event repository that uses the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const eventColumns = `id, agreement_id, contract_text, creator_email, signer_email, signer_legal_name,
signed_at, template_id, template_version, canonical_payload, hmac_signature, created_at`

// Create inserts the event. The UNIQUE constraint on agreement_id makes a second insert fail with ErrDuplicate.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Event) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO signature_events (`+eventColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.AgreementID, e.ContractText, e.CreatorEmail, e.SignerEmail, e.SignerLegalName,
		e.SignedAt, e.TemplateID, e.TemplateVersion, e.CanonicalPayload, e.HMACSignature, e.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

// GetByAgreementID returns the event for agreementID, or nil if not found.
func (r *PostgresRepository) GetByAgreementID(ctx context.Context, agreementID string) (*domain.Event, error) {
	var e domain.Event
	err := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM signature_events WHERE agreement_id = $1`, agreementID).
		Scan(&e.ID, &e.AgreementID, &e.ContractText, &e.CreatorEmail, &e.SignerEmail, &e.SignerLegalName,
			&e.SignedAt, &e.TemplateID, &e.TemplateVersion, &e.CanonicalPayload, &e.HMACSignature, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}
