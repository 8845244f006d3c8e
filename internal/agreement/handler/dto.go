package handler

import (
	"encoding/json"
	"time"

	"handshake/backend/internal/agreement/domain"
	"handshake/backend/internal/agreement/service"
	auditdomain "handshake/backend/internal/audit/domain"
	signaturedomain "handshake/backend/internal/signature/domain"
)

type createRequest struct {
	TemplateID string            `json:"template_id"`
	FieldData  map[string]string `json:"field_data"`
}

type sendCodeRequest struct {
	AgreementID string `json:"agreement_id"`
	SignerToken string `json:"signer_token"`
	Email       string `json:"email"`
}

type verifyCodeRequest struct {
	AgreementID string `json:"agreement_id"`
	SignerToken string `json:"signer_token"`
	Email       string `json:"email"`
	Code        string `json:"code"`
}

type signRequest struct {
	AgreementID     string `json:"agreement_id"`
	SignerToken     string `json:"signer_token"`
	SignerLegalName string `json:"signer_legal_name"`
	SignerEmail     string `json:"signer_email"`
}

type verifyReceiptRequest struct {
	AgreementID   string `json:"agreement_id"`
	HMACSignature string `json:"hmac_signature"`
}

// agreementResponse is the creator's view of an agreement. It includes the signer link.
type agreementResponse struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	TemplateID      string            `json:"template_id"`
	TemplateVersion int               `json:"template_version"`
	FieldData       map[string]string `json:"field_data"`
	ContractText    string            `json:"contract_text"`
	Status          domain.Status     `json:"status"`
	CreatorEmail    string            `json:"creator_email"`
	SignerEmail     string            `json:"signer_email,omitempty"`
	SignerLegalName string            `json:"signer_legal_name,omitempty"`
	SignerURL       string            `json:"signer_url,omitempty"`
	SignedAt        *time.Time        `json:"signed_at,omitempty"`
	ExpiresAt       time.Time         `json:"expires_at"`
	CreatedAt       time.Time         `json:"created_at"`
}

func toAgreementResponse(a *domain.Agreement, signerURL string) agreementResponse {
	return agreementResponse{
		ID:              a.ID,
		Title:           a.Title,
		TemplateID:      a.TemplateID,
		TemplateVersion: a.TemplateVersion,
		FieldData:       a.FieldData,
		ContractText:    a.ContractText,
		Status:          a.Status,
		CreatorEmail:    a.CreatorEmail,
		SignerEmail:     a.SignerEmail,
		SignerLegalName: a.SignerLegalName,
		SignerURL:       signerURL,
		SignedAt:        a.SignedAt,
		ExpiresAt:       a.ExpiresAt,
		CreatedAt:       a.CreatedAt,
	}
}

// signerAgreementResponse is what the signer link shows. It never carries the signer token.
type signerAgreementResponse struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	ContractText string           `json:"contract_text"`
	CreatorEmail string           `json:"creator_email"`
	Status       domain.Status    `json:"status"`
	ExpiresAt    time.Time        `json:"expires_at"`
	ReadOnly     bool             `json:"read_only"`
	Receipt      *receiptResponse `json:"receipt,omitempty"`
}

// receiptResponse carries the signed fields in their stored wire form.
type receiptResponse struct {
	ID               string `json:"id"`
	Title            string `json:"title,omitempty"`
	AgreementID      string `json:"agreement_id"`
	ContractText     string `json:"contract_text"`
	CreatorEmail     string `json:"creator_email"`
	SignerEmail      string `json:"signer_email"`
	SignerLegalName  string `json:"signer_legal_name"`
	SignedAt         string `json:"signed_at"`
	TemplateID       string `json:"template_id"`
	TemplateVersion  string `json:"template_version"`
	CanonicalPayload string `json:"canonical_payload"`
	HMACSignature    string `json:"hmac_signature"`
}

func toTitledReceiptResponse(rc *service.Receipt) *receiptResponse {
	if rc == nil {
		return nil
	}
	r := toReceiptResponse(rc.Event)
	if r != nil {
		r.Title = rc.Title
	}
	return r
}

func toReceiptResponse(e *signaturedomain.Event) *receiptResponse {
	if e == nil {
		return nil
	}
	return &receiptResponse{
		ID:               e.ID,
		AgreementID:      e.AgreementID,
		ContractText:     e.ContractText,
		CreatorEmail:     e.CreatorEmail,
		SignerEmail:      e.SignerEmail,
		SignerLegalName:  e.SignerLegalName,
		SignedAt:         e.SignedAt,
		TemplateID:       e.TemplateID,
		TemplateVersion:  e.TemplateVersion,
		CanonicalPayload: e.CanonicalPayload,
		HMACSignature:    e.HMACSignature,
	}
}

type verifyReceiptResponse struct {
	Valid   bool             `json:"valid"`
	Receipt *receiptResponse `json:"receipt"`
}

type auditResponse struct {
	ID         string                `json:"id"`
	EventType  auditdomain.EventType `json:"event_type"`
	ActorEmail string                `json:"actor_email,omitempty"`
	IP         string                `json:"ip"`
	Metadata   json.RawMessage       `json:"metadata"`
	CreatedAt  time.Time             `json:"created_at"`
}

func toAuditResponse(l *auditdomain.AuditLog) auditResponse {
	meta := json.RawMessage(l.Metadata)
	if !json.Valid(meta) {
		meta = json.RawMessage("{}")
	}
	return auditResponse{
		ID:         l.ID,
		EventType:  l.EventType,
		ActorEmail: l.ActorEmail,
		IP:         l.IP,
		Metadata:   meta,
		CreatedAt:  l.CreatedAt,
	}
}
