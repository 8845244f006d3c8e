// Package otp issues and checks one-time email codes for an (email, agreement) pair, enforcing
// the send cooldown, code expiry, and the attempt ceiling.
package otp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"handshake/backend/internal/apperror"
	"handshake/backend/internal/email"
	"handshake/backend/internal/otp/domain"
	"handshake/backend/internal/otp/repository"
)

const (
	// CooldownWindow is the minimum gap between two codes for the same pair.
	CooldownWindow = 60 * time.Second
	// MaxAttempts is the number of verify calls a challenge accepts.
	MaxAttempts = 5
)

// Digester computes and compares keyed code digests.
type Digester interface {
	Digest(agreementID, email, code string) string
	Equal(agreementID, email, candidate, storedDigest string) bool
}

// Verifier implements send-code and verify-code.
type Verifier struct {
	repo     repository.Repository
	digester Digester
	sender   email.Sender
	ttl      time.Duration
	nowF     func() time.Time
	generate func() (string, error)
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.nowF = now }
}

// WithCodeGenerator overrides code generation.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(v *Verifier) { v.generate = gen }
}

// NewVerifier returns a Verifier backed by repo that delivers codes through sender.
func NewVerifier(repo repository.Repository, digester Digester, sender email.Sender, opts ...Option) *Verifier {
	v := &Verifier{
		repo:     repo,
		digester: digester,
		sender:   sender,
		ttl:      repository.DefaultChallengeTTL,
		nowF:     func() time.Time { return time.Now().UTC() },
		generate: GenerateCode,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SendCode issues a new code for the pair and emails it. It returns a rate-limit error while the
// newest challenge for the pair is younger than CooldownWindow. If delivery fails the new challenge
// is invalidated and a transport error tells the caller to request a code again.
func (v *Verifier) SendCode(ctx context.Context, emailAddr, agreementID, title string) (*domain.Challenge, error) {
	now := v.nowF()
	latest, err := v.repo.GetLatest(ctx, emailAddr, agreementID, false)
	if err != nil {
		return nil, apperror.Transport("failed to look up verification code", err)
	}
	if latest != nil {
		if elapsed := now.Sub(latest.CreatedAt); elapsed < CooldownWindow {
			wait := (CooldownWindow - elapsed + time.Second - 1).Truncate(time.Second)
			return nil, apperror.RateLimit(
				fmt.Sprintf("Please wait %ds before requesting a new code.", int(wait/time.Second)), wait)
		}
	}

	code, err := v.generate()
	if err != nil {
		return nil, apperror.Transport("failed to create verification code", err)
	}
	c := &domain.Challenge{
		ID:          uuid.New().String(),
		AgreementID: agreementID,
		Email:       emailAddr,
		OTPHash:     v.digester.Digest(agreementID, emailAddr, code),
		ExpiresAt:   now.Add(v.ttl),
		CreatedAt:   now,
	}
	if err := v.repo.Create(ctx, c); err != nil {
		return nil, apperror.Transport("Failed to create verification code.", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, CooldownWindow)
	defer cancel()
	err = v.sender.Send(sendCtx, email.OTPMessage{
		To:          emailAddr,
		AgreementID: agreementID,
		Title:       title,
		Code:        code,
		ExpiresAt:   c.ExpiresAt,
	})
	if err != nil {
		invCtx, invCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer invCancel()
		if invErr := v.repo.Invalidate(invCtx, c.ID); invErr != nil {
			slog.ErrorContext(ctx, "otp: failed to invalidate undelivered challenge",
				"challenge_id", c.ID, "error", invErr)
		}
		return nil, apperror.Transport("Failed to send verification email. Please request a new code.", err)
	}
	return c, nil
}

// VerifyCode checks candidate against the newest unverified challenge for the pair. The attempt
// counter is incremented before the comparison so retries and concurrent calls cannot exceed
// MaxAttempts.
func (v *Verifier) VerifyCode(ctx context.Context, emailAddr, agreementID, candidate string) error {
	c, err := v.repo.GetLatest(ctx, emailAddr, agreementID, true)
	if err != nil {
		return apperror.Transport("failed to look up verification code", err)
	}
	if c == nil {
		return apperror.NotFound("No pending verification found. Request a new code.")
	}
	if c.IsExpiredAt(v.nowF()) {
		return apperror.Expired("Verification code has expired. Request a new one.")
	}
	if c.Attempts >= MaxAttempts {
		return apperror.RateLimit("Too many failed attempts. Request a new code.", 0)
	}

	attempts, err := v.repo.IncrementAttempts(ctx, c.ID)
	if err != nil {
		return apperror.Transport("failed to record verification attempt", err)
	}
	if attempts > MaxAttempts {
		return apperror.RateLimit("Too many failed attempts. Request a new code.", 0)
	}
	if !v.digester.Equal(agreementID, emailAddr, strings.TrimSpace(candidate), c.OTPHash) {
		return apperror.WrongCode(MaxAttempts - attempts)
	}
	if _, err := v.repo.MarkVerified(ctx, c.ID); err != nil {
		return apperror.Transport("failed to record verification", err)
	}
	return nil
}
