// Package service implements the agreement lifecycle: it drives the state machine, gates signing on
// OTP verification, and issues and verifies HMAC receipts.
package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"handshake/backend/internal/agreement/domain"
	"handshake/backend/internal/apperror"
	"handshake/backend/internal/audit"
	auditdomain "handshake/backend/internal/audit/domain"
	otpdomain "handshake/backend/internal/otp/domain"
	"handshake/backend/internal/receipt"
	"handshake/backend/internal/security"
	signaturedomain "handshake/backend/internal/signature/domain"
)

// DefaultAgreementTTL is how long a signer link stays open.
const DefaultAgreementTTL = 24 * time.Hour

const instrumentationName = "handshake/agreement"

// AgreementRepo is the agreement persistence needed by the service.
type AgreementRepo interface {
	Create(ctx context.Context, a *domain.Agreement) error
	GetByID(ctx context.Context, id string) (*domain.Agreement, error)
	GetByToken(ctx context.Context, signerToken string) (*domain.Agreement, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*domain.Agreement, error)
	UpdateStatus(ctx context.Context, id string, from []domain.Status, u domain.StatusUpdate) (bool, error)
}

// SignatureRepo is the signature event persistence needed by the service.
type SignatureRepo interface {
	Create(ctx context.Context, e *signaturedomain.Event) error
	GetByAgreementID(ctx context.Context, agreementID string) (*signaturedomain.Event, error)
}

// AuditReader lists audit records for the creator-facing trail.
type AuditReader interface {
	ListByAgreement(ctx context.Context, agreementID string) ([]*auditdomain.AuditLog, error)
}

// OTPVerifier issues and checks one-time codes.
type OTPVerifier interface {
	SendCode(ctx context.Context, email, agreementID, title string) (*otpdomain.Challenge, error)
	VerifyCode(ctx context.Context, email, agreementID, candidate string) error
}

// ReceiptSigner signs and verifies receipt fields.
type ReceiptSigner interface {
	Sign(fields receipt.Fields) receipt.Signed
	Verify(fields receipt.Fields, signature string) bool
}

// Service implements the agreement lifecycle.
type Service struct {
	agreements  AgreementRepo
	signatures  SignatureRepo
	auditReader AuditReader
	auditLog    audit.AuditLogger
	otp         OTPVerifier
	signer      ReceiptSigner
	frontendURL string
	ttl         time.Duration
	nowF        func() time.Time
	newToken    func() (string, error)
	tracer      trace.Tracer
	metrics     instruments
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.nowF = now }
}

// NewService returns a Service with the given dependencies. frontendURL prefixes signer links.
func NewService(
	agreements AgreementRepo,
	signatures SignatureRepo,
	auditReader AuditReader,
	auditLog audit.AuditLogger,
	otp OTPVerifier,
	signer ReceiptSigner,
	frontendURL string,
	opts ...Option,
) *Service {
	s := &Service{
		agreements:  agreements,
		signatures:  signatures,
		auditReader: auditReader,
		auditLog:    auditLog,
		otp:         otp,
		signer:      signer,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
		ttl:         DefaultAgreementTTL,
		nowF:        func() time.Time { return time.Now().UTC() },
		newToken:    security.NewSignerToken,
		tracer:      otel.Tracer(instrumentationName),
		metrics:     newInstruments(otel.Meter(instrumentationName)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignerURL returns the signer link for token.
func (s *Service) SignerURL(token string) string {
	return s.frontendURL + "/sign/" + token
}

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "agreement."+name)
}

// endSpan records err on span and ends it. Caller-correctable kinds are not marked as span errors.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		if apperror.KindOf(err) == apperror.KindTransport {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// normalizeEmail trims and lowercases email and checks its format.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperror.Validation("email is required")
	}
	if !emailPattern.MatchString(email) {
		return "", apperror.Validation("invalid email format")
	}
	return email, nil
}

var errNotFound = apperror.NotFound("Agreement not found.")

// loadForSigner returns the agreement when token matches its stored capability. Unknown ids and wrong
// tokens produce the same not-found error.
func (s *Service) loadForSigner(ctx context.Context, agreementID, token string) (*domain.Agreement, error) {
	if strings.TrimSpace(agreementID) == "" || token == "" {
		return nil, apperror.Validation("agreement_id and signer_token are required")
	}
	a, err := s.agreements.GetByID(ctx, agreementID)
	if err != nil {
		return nil, apperror.Transport("failed to load agreement", err)
	}
	if a == nil || !security.SignerTokenEqual(token, a.SignerToken) {
		return nil, errNotFound
	}
	return a, nil
}

// transitionError maps a state machine rejection to the caller-facing taxonomy.
func transitionError(err error) error {
	switch {
	case errors.Is(err, domain.ErrAlreadySigned):
		return apperror.StateConflict("This agreement has already been signed.")
	case errors.Is(err, domain.ErrExpired):
		return apperror.Expired("This agreement link has expired.")
	case errors.Is(err, domain.ErrSuperseded):
		return apperror.StateConflict("This agreement has been superseded.")
	case errors.Is(err, domain.ErrNotVerified):
		return apperror.StateConflict("Email verification is required before signing.")
	default:
		return apperror.StateConflict("This action is not allowed in the agreement's current state.")
	}
}

// expireIfDue force-transitions a non-terminal agreement whose deadline has passed and returns the
// expired error. It returns nil when the agreement is still open or already terminal.
func (s *Service) expireIfDue(ctx context.Context, a *domain.Agreement) error {
	if a.Status.IsTerminal() || !a.IsExpiredAt(s.nowF()) {
		return nil
	}
	prev := a.Status
	ok, err := s.agreements.UpdateStatus(ctx, a.ID, domain.Sources(domain.EventExpire, domain.StatusExpired),
		domain.StatusUpdate{Status: domain.StatusExpired})
	if err != nil {
		return apperror.Transport("failed to expire agreement", err)
	}
	if ok {
		a.Status = domain.StatusExpired
		s.auditLog.LogEvent(ctx, a.ID, auditdomain.EventExpired, "", map[string]string{"previous_status": string(prev)})
	}
	return transitionError(domain.ErrExpired)
}

// recoverSigned repairs an agreement left in otp_verified after its signature event committed. The event is
// authoritative; the status is re-derived from it. Reports whether a signature event exists.
func (s *Service) recoverSigned(ctx context.Context, a *domain.Agreement) (*signaturedomain.Event, error) {
	if a.Status != domain.StatusOTPVerified && a.Status != domain.StatusSigned {
		return nil, nil
	}
	ev, err := s.signatures.GetByAgreementID(ctx, a.ID)
	if err != nil {
		return nil, apperror.Transport("failed to load signature event", err)
	}
	if ev == nil || a.Status == domain.StatusSigned {
		return ev, nil
	}
	s.repairSigned(ctx, a, ev)
	return ev, nil
}

func (s *Service) repairSigned(ctx context.Context, a *domain.Agreement, ev *signaturedomain.Event) {
	signedAt, err := time.Parse(receipt.TimestampLayout, ev.SignedAt)
	if err != nil {
		signedAt = ev.CreatedAt
	}
	u := domain.StatusUpdate{
		Status:          domain.StatusSigned,
		SignerEmail:     &ev.SignerEmail,
		SignerLegalName: &ev.SignerLegalName,
		SignedAt:        &signedAt,
	}
	ok, err := s.agreements.UpdateStatus(ctx, a.ID, []domain.Status{domain.StatusOTPVerified}, u)
	if err != nil {
		slog.ErrorContext(ctx, "agreement: failed to repair signed status", "agreement_id", a.ID, "error", err)
		return
	}
	u.Apply(a, s.nowF())
	if ok {
		slog.WarnContext(ctx, "agreement: repaired signed status from signature event", "agreement_id", a.ID)
		s.auditLog.LogEvent(ctx, a.ID, auditdomain.EventSigned, ev.SignerEmail,
			map[string]string{"signer_legal_name": ev.SignerLegalName, "recovered": "true"})
	}
}
