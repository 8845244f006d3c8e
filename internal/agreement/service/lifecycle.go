package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"handshake/backend/internal/agreement/domain"
	"handshake/backend/internal/apperror"
	auditdomain "handshake/backend/internal/audit/domain"
	"handshake/backend/internal/receipt"
	"handshake/backend/internal/security"
	signaturedomain "handshake/backend/internal/signature/domain"
	signaturerepo "handshake/backend/internal/signature/repository"
	"handshake/backend/internal/templates"
)

// CreateInput is the creator's request for a new agreement.
type CreateInput struct {
	TemplateID string
	Fields     map[string]string
}

// Created is the result of Create.
type Created struct {
	Agreement *domain.Agreement
	SignerURL string
}

// View is what the signer sees when opening a link. Receipt is set, and ReadOnly true, once signed.
type View struct {
	Agreement *domain.Agreement
	Receipt   *signaturedomain.Event
	ReadOnly  bool
}

// SignInput is the signer's final submission.
type SignInput struct {
	AgreementID     string
	SignerToken     string
	SignerLegalName string
	SignerEmail     string
}

// Create renders the template, stores a pending agreement with a fresh signer token, and returns its link.
func (s *Service) Create(ctx context.Context, creator security.Creator, in CreateInput) (_ *Created, err error) {
	ctx, span := s.startSpan(ctx, "create")
	defer func() { endSpan(span, err) }()

	if creator.ID == "" {
		return nil, apperror.Validation("creator is required")
	}
	creatorEmail, err := normalizeEmail(creator.Email)
	if err != nil {
		return nil, err
	}
	now := s.nowF()
	rendered, err := templates.Render(in.TemplateID, in.Fields, now)
	if err != nil {
		return nil, err
	}
	token, err := s.newToken()
	if err != nil {
		return nil, apperror.Transport("failed to generate signer token", err)
	}
	a := &domain.Agreement{
		ID:              uuid.New().String(),
		CreatorID:       creator.ID,
		CreatorEmail:    creatorEmail,
		Title:           rendered.Title,
		TemplateID:      rendered.TemplateID,
		TemplateVersion: rendered.TemplateVersion,
		FieldData:       rendered.Fields,
		ContractText:    rendered.ContractText,
		SignerToken:     token,
		Status:          domain.StatusPending,
		ExpiresAt:       now.Add(s.ttl),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.agreements.Create(ctx, a); err != nil {
		return nil, apperror.Transport("failed to create agreement", err)
	}
	s.auditLog.LogEvent(ctx, a.ID, auditdomain.EventCreated, creatorEmail,
		map[string]string{"template_id": a.TemplateID})
	return &Created{Agreement: a, SignerURL: s.SignerURL(token)}, nil
}

// View resolves a signer link. The first view of a pending agreement moves it to viewed; a signed agreement
// returns its receipt.
func (s *Service) View(ctx context.Context, token string) (_ *View, err error) {
	ctx, span := s.startSpan(ctx, "view")
	defer func() { endSpan(span, err) }()

	notFound := apperror.NotFound("Agreement not found or link is invalid.")
	if strings.TrimSpace(token) == "" {
		return nil, notFound
	}
	a, err := s.agreements.GetByToken(ctx, token)
	if err != nil {
		return nil, apperror.Transport("failed to load agreement", err)
	}
	if a == nil {
		return nil, notFound
	}
	ev, err := s.recoverSigned(ctx, a)
	if err != nil {
		return nil, err
	}
	if a.Status == domain.StatusSigned {
		return &View{Agreement: a, Receipt: ev, ReadOnly: true}, nil
	}
	if err := s.expireIfDue(ctx, a); err != nil {
		return nil, err
	}
	next, err := domain.Next(a.Status, domain.EventView)
	if err != nil {
		return nil, transitionError(err)
	}
	if next != a.Status {
		ok, err := s.agreements.UpdateStatus(ctx, a.ID, domain.Sources(domain.EventView, next), domain.StatusUpdate{Status: next})
		if err != nil {
			slog.WarnContext(ctx, "agreement: failed to record view", "agreement_id", a.ID, "error", err)
		} else if ok {
			a.Status = next
			a.UpdatedAt = s.nowF()
			s.auditLog.LogEvent(ctx, a.ID, auditdomain.EventViewed, "", nil)
		}
	}
	return &View{Agreement: a}, nil
}

// gateSigner loads the agreement for a signer action and checks that ev is legal in its current status.
func (s *Service) gateSigner(ctx context.Context, agreementID, token string, ev domain.Event) (*domain.Agreement, error) {
	a, err := s.loadForSigner(ctx, agreementID, token)
	if err != nil {
		return nil, err
	}
	if _, err := s.recoverSigned(ctx, a); err != nil {
		return nil, err
	}
	if err := s.expireIfDue(ctx, a); err != nil {
		return nil, err
	}
	if _, err := domain.Next(a.Status, ev); err != nil {
		return nil, transitionError(err)
	}
	return a, nil
}

// SendCode issues a verification code to email for the agreement.
func (s *Service) SendCode(ctx context.Context, agreementID, token, email string) (err error) {
	ctx, span := s.startSpan(ctx, "send_code")
	defer func() { endSpan(span, err) }()

	email, err = normalizeEmail(email)
	if err != nil {
		return err
	}
	a, err := s.gateSigner(ctx, agreementID, token, domain.EventSendCode)
	if err != nil {
		return err
	}
	if _, err := s.otp.SendCode(ctx, email, a.ID, a.Title); err != nil {
		return err
	}
	s.metrics.otpSent.Add(ctx, 1)
	s.auditLog.LogEvent(ctx, a.ID, auditdomain.EventOTPSent, email, nil)
	return nil
}

// VerifyCode checks code for email and, on success, moves the agreement to otp_verified with email stamped as
// the verified signer.
func (s *Service) VerifyCode(ctx context.Context, agreementID, token, email, code string) (_ *domain.Agreement, err error) {
	ctx, span := s.startSpan(ctx, "verify_code")
	defer func() { endSpan(span, err) }()

	email, err = normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, apperror.Validation("code is required")
	}
	a, err := s.gateSigner(ctx, agreementID, token, domain.EventVerifyOTP)
	if err != nil {
		return nil, err
	}
	if err := s.otp.VerifyCode(ctx, email, a.ID, code); err != nil {
		s.metrics.recordVerification(ctx, string(apperror.KindOf(err)))
		return nil, err
	}
	s.metrics.recordVerification(ctx, "verified")

	u := domain.StatusUpdate{Status: domain.StatusOTPVerified, SignerEmail: &email}
	ok, err := s.agreements.UpdateStatus(ctx, a.ID, domain.Sources(domain.EventVerifyOTP, domain.StatusOTPVerified), u)
	if err != nil {
		return nil, apperror.Transport("failed to record verification", err)
	}
	if !ok {
		// Status moved underneath us; report against the fresh state.
		fresh, err := s.agreements.GetByID(ctx, a.ID)
		if err != nil || fresh == nil {
			return nil, apperror.Transport("failed to reload agreement", err)
		}
		_, nerr := domain.Next(fresh.Status, domain.EventVerifyOTP)
		return nil, transitionError(nerr)
	}
	u.Apply(a, s.nowF())
	s.auditLog.LogEvent(ctx, a.ID, auditdomain.EventOTPVerified, email, nil)
	return a, nil
}

// Sign binds the verified signer to the contract. It checks, in order: required input, the signer token,
// that the status is otp_verified, the deadline, and that the email matches the verified one. It then
// persists exactly one signature event and moves the agreement to signed.
func (s *Service) Sign(ctx context.Context, in SignInput) (_ *signaturedomain.Event, err error) {
	ctx, span := s.startSpan(ctx, "sign")
	defer func() { endSpan(span, err) }()

	legalName := strings.TrimSpace(in.SignerLegalName)
	if legalName == "" {
		return nil, apperror.Validation("signer_legal_name is required")
	}
	email, err := normalizeEmail(in.SignerEmail)
	if err != nil {
		return nil, err
	}
	a, err := s.loadForSigner(ctx, in.AgreementID, in.SignerToken)
	if err != nil {
		return nil, err
	}
	if ev, err := s.recoverSigned(ctx, a); err != nil {
		return nil, err
	} else if ev != nil {
		return nil, transitionError(domain.ErrAlreadySigned)
	}
	if _, err := domain.Next(a.Status, domain.EventSign); err != nil {
		if !a.Status.IsTerminal() {
			// Due agreements still get their forced expiry write.
			_ = s.expireIfDue(ctx, a)
		}
		return nil, transitionError(err)
	}
	if err := s.expireIfDue(ctx, a); err != nil {
		return nil, err
	}
	if a.SignerEmail != email {
		return nil, apperror.Validation("Email does not match the verified email for this agreement.")
	}

	signedAt := s.nowF().UTC().Truncate(time.Millisecond)
	fields := receipt.Fields{
		AgreementID:     a.ID,
		ContractText:    a.ContractText,
		CreatorEmail:    a.CreatorEmail,
		SignerEmail:     email,
		SignerLegalName: legalName,
		SignedAt:        receipt.FormatTimestamp(signedAt),
		TemplateID:      a.TemplateID,
		TemplateVersion: receipt.FormatVersion(a.TemplateVersion),
	}
	signed := s.signer.Sign(fields)
	ev := &signaturedomain.Event{
		ID:               uuid.New().String(),
		Fields:           fields,
		CanonicalPayload: signed.CanonicalPayload,
		HMACSignature:    signed.Signature,
		CreatedAt:        signedAt,
	}
	if err := s.signatures.Create(ctx, ev); err != nil {
		if errors.Is(err, signaturerepo.ErrDuplicate) {
			if existing, gerr := s.signatures.GetByAgreementID(ctx, a.ID); gerr == nil && existing != nil {
				s.repairSigned(ctx, a, existing)
			}
			return nil, transitionError(domain.ErrAlreadySigned)
		}
		return nil, apperror.Transport("failed to record signature", err)
	}

	u := domain.StatusUpdate{
		Status:          domain.StatusSigned,
		SignerEmail:     &email,
		SignerLegalName: &legalName,
		SignedAt:        &signedAt,
	}
	// The signature event is authoritative from here; a failed status write is repaired on next access.
	if ok, err := s.agreements.UpdateStatus(ctx, a.ID, domain.Sources(domain.EventSign, domain.StatusSigned), u); err != nil {
		slog.ErrorContext(ctx, "agreement: signature recorded but status update failed", "agreement_id", a.ID, "error", err)
	} else if !ok {
		slog.WarnContext(ctx, "agreement: signature recorded but status already moved", "agreement_id", a.ID)
	}
	s.metrics.signed.Add(ctx, 1)
	s.auditLog.LogEvent(ctx, a.ID, auditdomain.EventSigned, email,
		map[string]string{"signer_legal_name": legalName, "signature_event_id": ev.ID})
	return ev, nil
}

// Supersede retires an open agreement on behalf of its creator. Agreements owned by someone else are
// reported as not found.
func (s *Service) Supersede(ctx context.Context, creator security.Creator, agreementID string) (_ *domain.Agreement, err error) {
	ctx, span := s.startSpan(ctx, "supersede")
	defer func() { endSpan(span, err) }()

	a, err := s.loadForCreator(ctx, creator, agreementID)
	if err != nil {
		return nil, err
	}
	if _, err := s.recoverSigned(ctx, a); err != nil {
		return nil, err
	}
	if err := s.expireIfDue(ctx, a); err != nil {
		return nil, err
	}
	if _, err := domain.Next(a.Status, domain.EventSupersede); err != nil {
		return nil, transitionError(err)
	}
	prev := a.Status
	ok, err := s.agreements.UpdateStatus(ctx, a.ID, domain.Sources(domain.EventSupersede, domain.StatusSuperseded),
		domain.StatusUpdate{Status: domain.StatusSuperseded})
	if err != nil {
		return nil, apperror.Transport("failed to supersede agreement", err)
	}
	if !ok {
		return nil, apperror.StateConflict("Agreement changed state; reload and try again.")
	}
	a.Status = domain.StatusSuperseded
	a.UpdatedAt = s.nowF()
	s.auditLog.LogEvent(ctx, a.ID, auditdomain.EventSuperseded, creator.Email,
		map[string]string{"previous_status": string(prev)})
	return a, nil
}

func (s *Service) loadForCreator(ctx context.Context, creator security.Creator, agreementID string) (*domain.Agreement, error) {
	if strings.TrimSpace(agreementID) == "" {
		return nil, apperror.Validation("agreement id is required")
	}
	a, err := s.agreements.GetByID(ctx, agreementID)
	if err != nil {
		return nil, apperror.Transport("failed to load agreement", err)
	}
	if a == nil || creator.ID == "" || a.CreatorID != creator.ID {
		return nil, errNotFound
	}
	return a, nil
}

// ListByCreator returns the creator's agreements, newest first. Open agreements past their deadline are
// expired as a side effect.
func (s *Service) ListByCreator(ctx context.Context, creator security.Creator) (_ []*domain.Agreement, err error) {
	ctx, span := s.startSpan(ctx, "list")
	defer func() { endSpan(span, err) }()

	if creator.ID == "" {
		return nil, apperror.Validation("creator is required")
	}
	list, err := s.agreements.ListByCreator(ctx, creator.ID)
	if err != nil {
		return nil, apperror.Transport("failed to list agreements", err)
	}
	for _, a := range list {
		if aerr := s.expireIfDue(ctx, a); aerr != nil && apperror.KindOf(aerr) == apperror.KindTransport {
			slog.WarnContext(ctx, "agreement: failed to expire during listing", "agreement_id", a.ID, "error", aerr)
		}
	}
	return list, nil
}

// AuditTrail returns the audit records of one of the creator's agreements, oldest first.
func (s *Service) AuditTrail(ctx context.Context, creator security.Creator, agreementID string) (_ []*auditdomain.AuditLog, err error) {
	ctx, span := s.startSpan(ctx, "audit_trail")
	defer func() { endSpan(span, err) }()

	a, err := s.loadForCreator(ctx, creator, agreementID)
	if err != nil {
		return nil, err
	}
	logs, err := s.auditReader.ListByAgreement(ctx, a.ID)
	if err != nil {
		return nil, apperror.Transport("failed to load audit trail", err)
	}
	return logs, nil
}
