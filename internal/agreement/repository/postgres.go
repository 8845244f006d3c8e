package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"handshake/backend/internal/agreement/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an agreement repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const agreementColumns = `id, creator_id, creator_email, title, template_id, template_version, field_data,
contract_text, signer_token, status, signer_email, signer_legal_name, signed_at, expires_at, created_at, updated_at`

// Create persists the agreement. The agreement must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.Agreement) error {
	fields, err := json.Marshal(a.FieldData)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO agreements (`+agreementColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		a.ID, a.CreatorID, a.CreatorEmail, a.Title, a.TemplateID, a.TemplateVersion, string(fields),
		a.ContractText, a.SignerToken, string(a.Status), nullString(a.SignerEmail), nullString(a.SignerLegalName),
		nullTime(a.SignedAt), a.ExpiresAt, a.CreatedAt, a.UpdatedAt)
	return err
}

// GetByID returns the agreement for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Agreement, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE id = $1`, id)
	return scanOne(row)
}

// GetByToken returns the agreement for signerToken, or nil if not found.
func (r *PostgresRepository) GetByToken(ctx context.Context, signerToken string) (*domain.Agreement, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+agreementColumns+` FROM agreements WHERE signer_token = $1`, signerToken)
	return scanOne(row)
}

// ListByCreator returns the creator's agreements newest first.
func (r *PostgresRepository) ListByCreator(ctx context.Context, creatorID string) ([]*domain.Agreement, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+agreementColumns+`
FROM agreements
WHERE creator_id = $1
ORDER BY created_at DESC, id DESC`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Agreement
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateStatus writes u only while status is one of from. COALESCE keeps columns whose update field is nil.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, from []domain.Status, u domain.StatusUpdate) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE agreements
SET status = $3,
    signer_email = COALESCE($4, signer_email),
    signer_legal_name = COALESCE($5, signer_legal_name),
    signed_at = COALESCE($6, signed_at),
    updated_at = $7
WHERE id = $1 AND status = ANY($2)`,
		id, allowed, string(u.Status), ptrString(u.SignerEmail), ptrString(u.SignerLegalName),
		nullTime(u.SignedAt), time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row) (*domain.Agreement, error) {
	a, err := scanAgreement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

func scanAgreement(s scanner) (*domain.Agreement, error) {
	var (
		a           domain.Agreement
		status      string
		fields      []byte
		signerEmail sql.NullString
		signerName  sql.NullString
		signedAt    sql.NullTime
	)
	err := s.Scan(&a.ID, &a.CreatorID, &a.CreatorEmail, &a.Title, &a.TemplateID, &a.TemplateVersion, &fields,
		&a.ContractText, &a.SignerToken, &status, &signerEmail, &signerName, &signedAt,
		&a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = domain.Status(status)
	a.SignerEmail = signerEmail.String
	a.SignerLegalName = signerName.String
	if signedAt.Valid {
		t := signedAt.Time.UTC()
		a.SignedAt = &t
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &a.FieldData); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func ptrString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
