package domain

import "time"

// Agreement is one document offered for signature. ContractText never changes after creation.
type Agreement struct {
	ID              string
	CreatorID       string
	CreatorEmail    string
	Title           string
	TemplateID      string
	TemplateVersion int
	FieldData       map[string]string
	ContractText    string
	// SignerToken is the capability that grants access to the signer flow.
	SignerToken     string
	Status          Status
	SignerEmail     string
	SignerLegalName string
	SignedAt        *time.Time
	ExpiresAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsExpiredAt reports whether the deadline has passed at now.
func (a *Agreement) IsExpiredAt(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// StatusUpdate is applied by a conditional status write. Nil fields are left unchanged.
type StatusUpdate struct {
	Status          Status
	SignerEmail     *string
	SignerLegalName *string
	SignedAt        *time.Time
}

// Apply copies u onto a and stamps UpdatedAt.
func (u StatusUpdate) Apply(a *Agreement, now time.Time) {
	a.Status = u.Status
	if u.SignerEmail != nil {
		a.SignerEmail = *u.SignerEmail
	}
	if u.SignerLegalName != nil {
		a.SignerLegalName = *u.SignerLegalName
	}
	if u.SignedAt != nil {
		t := *u.SignedAt
		a.SignedAt = &t
	}
	a.UpdatedAt = now
}
