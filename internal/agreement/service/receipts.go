package service

import (
	"context"
	"strings"

	"handshake/backend/internal/apperror"
	signaturedomain "handshake/backend/internal/signature/domain"
)

// Verification is the outcome of VerifyReceipt. Event holds the authoritative stored fields.
type Verification struct {
	Valid bool
	Event *signaturedomain.Event
}

// Receipt is a signature event with the title of the agreement it seals.
type Receipt struct {
	*signaturedomain.Event
	Title string
}

// GetReceipt returns the signature event of a signed agreement and the agreement title.
func (s *Service) GetReceipt(ctx context.Context, agreementID string) (_ *Receipt, err error) {
	ctx, span := s.startSpan(ctx, "get_receipt")
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(agreementID) == "" {
		return nil, apperror.Validation("agreement id is required")
	}
	ev, err := s.signatures.GetByAgreementID(ctx, agreementID)
	if err != nil {
		return nil, apperror.Transport("failed to load receipt", err)
	}
	if ev == nil {
		return nil, apperror.NotFound("No receipt found for this agreement.")
	}
	a, err := s.agreements.GetByID(ctx, agreementID)
	if err != nil {
		return nil, apperror.Transport("failed to load agreement", err)
	}
	rc := &Receipt{Event: ev}
	if a != nil {
		rc.Title = a.Title
	}
	return rc, nil
}

// VerifyReceipt recomputes the signature from the stored event and compares it to signature. A mismatch
// is a normal invalid result, not an error.
func (s *Service) VerifyReceipt(ctx context.Context, agreementID, signature string) (_ *Verification, err error) {
	ctx, span := s.startSpan(ctx, "verify_receipt")
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(agreementID) == "" || strings.TrimSpace(signature) == "" {
		return nil, apperror.Validation("agreement_id and hmac_signature are required")
	}
	ev, err := s.signatures.GetByAgreementID(ctx, agreementID)
	if err != nil {
		return nil, apperror.Transport("failed to load signature event", err)
	}
	if ev == nil {
		return nil, apperror.NotFound("No signature record found for this agreement.")
	}
	valid := s.signer.Verify(ev.Fields, strings.TrimSpace(signature))
	s.metrics.recordReceipt(ctx, valid)
	return &Verification{Valid: valid, Event: ev}, nil
}
