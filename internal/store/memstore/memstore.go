// Package memstore implements every repository in memory with the same conditional-write guarantees as
// the Postgres repositories. It backs tests and the database-less development mode.
package memstore

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	agreementdomain "handshake/backend/internal/agreement/domain"
	auditdomain "handshake/backend/internal/audit/domain"
	otpdomain "handshake/backend/internal/otp/domain"
	signaturedomain "handshake/backend/internal/signature/domain"
	signaturerepo "handshake/backend/internal/signature/repository"
)

var errChallengeNotFound = errors.New("memstore: otp challenge not found")

// Store holds all tables behind one mutex.
type Store struct {
	mu         sync.Mutex
	agreements map[string]*agreementdomain.Agreement
	challenges []*otpdomain.Challenge
	signatures map[string]*signaturedomain.Event
	audit      []*auditdomain.AuditLog
	nowF       func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		agreements: make(map[string]*agreementdomain.Agreement),
		signatures: make(map[string]*signaturedomain.Event),
		nowF:       func() time.Time { return time.Now().UTC() },
	}
}

// Agreements returns the agreement repository view.
func (s *Store) Agreements() *Agreements { return &Agreements{s} }

// Challenges returns the OTP challenge repository view.
func (s *Store) Challenges() *Challenges { return &Challenges{s} }

// Signatures returns the signature event repository view.
func (s *Store) Signatures() *Signatures { return &Signatures{s} }

// AuditTrail returns the audit repository view.
func (s *Store) AuditTrail() *AuditTrail { return &AuditTrail{s} }

func cloneAgreement(a *agreementdomain.Agreement) *agreementdomain.Agreement {
	c := *a
	c.FieldData = maps.Clone(a.FieldData)
	if a.SignedAt != nil {
		t := *a.SignedAt
		c.SignedAt = &t
	}
	return &c
}

// Agreements implements the agreement repository.
type Agreements struct{ s *Store }

func (r *Agreements) Create(ctx context.Context, a *agreementdomain.Agreement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.agreements[a.ID] = cloneAgreement(a)
	return nil
}

func (r *Agreements) GetByID(ctx context.Context, id string) (*agreementdomain.Agreement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.agreements[id]
	if !ok {
		return nil, nil
	}
	return cloneAgreement(a), nil
}

func (r *Agreements) GetByToken(ctx context.Context, signerToken string) (*agreementdomain.Agreement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.agreements {
		if a.SignerToken == signerToken {
			return cloneAgreement(a), nil
		}
	}
	return nil, nil
}

func (r *Agreements) ListByCreator(ctx context.Context, creatorID string) ([]*agreementdomain.Agreement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*agreementdomain.Agreement
	for _, a := range r.s.agreements {
		if a.CreatorID == creatorID {
			out = append(out, cloneAgreement(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *Agreements) UpdateStatus(ctx context.Context, id string, from []agreementdomain.Status, u agreementdomain.StatusUpdate) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.agreements[id]
	if !ok || !slices.Contains(from, a.Status) {
		return false, nil
	}
	u.Apply(a, r.s.nowF())
	return true, nil
}

// Challenges implements the OTP challenge repository.
type Challenges struct{ s *Store }

func (r *Challenges) Create(ctx context.Context, c *otpdomain.Challenge) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.challenges = append(r.s.challenges, &cp)
	return nil
}

// GetLatest returns the newest matching challenge. Ties on CreatedAt go to the later insert.
func (r *Challenges) GetLatest(ctx context.Context, email, agreementID string, unverifiedOnly bool) (*otpdomain.Challenge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *otpdomain.Challenge
	for _, c := range r.s.challenges {
		if c.Email != email || c.AgreementID != agreementID || c.Invalidated {
			continue
		}
		if unverifiedOnly && c.Verified {
			continue
		}
		if latest == nil || !c.CreatedAt.Before(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *Challenges) find(id string) *otpdomain.Challenge {
	for _, c := range r.s.challenges {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (r *Challenges) IncrementAttempts(ctx context.Context, id string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := r.find(id)
	if c == nil {
		return 0, errChallengeNotFound
	}
	c.Attempts++
	return c.Attempts, nil
}

func (r *Challenges) MarkVerified(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := r.find(id)
	if c == nil || c.Verified {
		return false, nil
	}
	c.Verified = true
	return true, nil
}

func (r *Challenges) Invalidate(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c := r.find(id); c != nil && !c.Verified {
		c.Invalidated = true
	}
	return nil
}

// Signatures implements the signature event repository.
type Signatures struct{ s *Store }

func (r *Signatures) Create(ctx context.Context, e *signaturedomain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.signatures[e.AgreementID]; ok {
		return signaturerepo.ErrDuplicate
	}
	cp := *e
	r.s.signatures[e.AgreementID] = &cp
	return nil
}

func (r *Signatures) GetByAgreementID(ctx context.Context, agreementID string) (*signaturedomain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.signatures[agreementID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

// AuditTrail implements the audit repository.
type AuditTrail struct{ s *Store }

func (r *AuditTrail) Create(ctx context.Context, a *auditdomain.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *a
	r.s.audit = append(r.s.audit, &cp)
	return nil
}

func (r *AuditTrail) ListByAgreement(ctx context.Context, agreementID string) ([]*auditdomain.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*auditdomain.AuditLog
	for _, a := range r.s.audit {
		if a.AgreementID == agreementID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}
