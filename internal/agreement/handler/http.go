// Package handler exposes the agreement lifecycle over HTTP (chi) and gRPC.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"handshake/backend/internal/agreement/domain"
	"handshake/backend/internal/agreement/service"
	auditdomain "handshake/backend/internal/audit/domain"
	"handshake/backend/internal/httpx"
	"handshake/backend/internal/security"
	"handshake/backend/internal/server/interceptors"
	signaturedomain "handshake/backend/internal/signature/domain"
	"handshake/backend/internal/templates"
)

// Service is the lifecycle surface the handlers depend on.
type Service interface {
	Create(ctx context.Context, creator security.Creator, in service.CreateInput) (*service.Created, error)
	ListByCreator(ctx context.Context, creator security.Creator) ([]*domain.Agreement, error)
	Supersede(ctx context.Context, creator security.Creator, agreementID string) (*domain.Agreement, error)
	AuditTrail(ctx context.Context, creator security.Creator, agreementID string) ([]*auditdomain.AuditLog, error)
	View(ctx context.Context, token string) (*service.View, error)
	SendCode(ctx context.Context, agreementID, token, email string) error
	VerifyCode(ctx context.Context, agreementID, token, email, code string) (*domain.Agreement, error)
	Sign(ctx context.Context, in service.SignInput) (*signaturedomain.Event, error)
	GetReceipt(ctx context.Context, agreementID string) (*service.Receipt, error)
	VerifyReceipt(ctx context.Context, agreementID, signature string) (*service.Verification, error)
	SignerURL(token string) string
}

// Middlewares are applied to route groups by Register. Nil entries are skipped.
type Middlewares struct {
	// Creator authenticates creator routes and must set the creator via interceptors.WithCreator.
	Creator func(http.Handler) http.Handler
	// OTP throttles the code send and verify routes.
	OTP func(http.Handler) http.Handler
}

// Handler serves the agreement, OTP, sign and receipt routes.
type Handler struct {
	svc Service
}

// NewHandler returns a Handler backed by svc.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts all routes under /api on r.
func (h *Handler) Register(r chi.Router, mw Middlewares) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/agreements/templates", h.handleListTemplates)
		r.Get("/agreements/sign/{token}", h.handleView)

		r.Group(func(r chi.Router) {
			if mw.Creator != nil {
				r.Use(mw.Creator)
			}
			r.Post("/agreements", h.handleCreate)
			r.Get("/agreements", h.handleList)
			r.Post("/agreements/{id}/supersede", h.handleSupersede)
			r.Get("/agreements/{id}/audit", h.handleAuditTrail)
		})

		r.Group(func(r chi.Router) {
			if mw.OTP != nil {
				r.Use(mw.OTP)
			}
			r.Post("/otp/send", h.handleSendCode)
			r.Post("/otp/verify", h.handleVerifyCode)
		})

		r.Post("/sign", h.handleSign)
		r.Post("/receipts/verify", h.handleVerifyReceipt)
		r.Get("/receipts/{id}", h.handleGetReceipt)
	})
}

func creatorFrom(w http.ResponseWriter, r *http.Request) (security.Creator, bool) {
	c, ok := interceptors.GetCreator(r.Context())
	if !ok || c.ID == "" {
		w.Header().Set("WWW-Authenticate", "Bearer")
		httpx.WriteJSON(w, http.StatusUnauthorized, httpx.ErrorResponse{
			Error: "Missing or invalid authorization.", Code: "unauthorized",
		})
		return security.Creator{}, false
	}
	return c, true
}

func (h *Handler) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"templates": templates.List()})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	creator, ok := creatorFrom(w, r)
	if !ok {
		return
	}
	var req createRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out, err := h.svc.Create(r.Context(), creator, service.CreateInput{TemplateID: req.TemplateID, Fields: req.FieldData})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAgreementResponse(out.Agreement, out.SignerURL))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	creator, ok := creatorFrom(w, r)
	if !ok {
		return
	}
	list, err := h.svc.ListByCreator(r.Context(), creator)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := make([]agreementResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAgreementResponse(a, h.svc.SignerURL(a.SignerToken)))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"agreements": out})
}

func (h *Handler) handleSupersede(w http.ResponseWriter, r *http.Request) {
	creator, ok := creatorFrom(w, r)
	if !ok {
		return
	}
	a, err := h.svc.Supersede(r.Context(), creator, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAgreementResponse(a, ""))
}

func (h *Handler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	creator, ok := creatorFrom(w, r)
	if !ok {
		return
	}
	logs, err := h.svc.AuditTrail(r.Context(), creator, chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	out := make([]auditResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, toAuditResponse(l))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"events": out})
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.View(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	a := v.Agreement
	httpx.WriteJSON(w, http.StatusOK, signerAgreementResponse{
		ID:           a.ID,
		Title:        a.Title,
		ContractText: a.ContractText,
		CreatorEmail: a.CreatorEmail,
		Status:       a.Status,
		ExpiresAt:    a.ExpiresAt,
		ReadOnly:     v.ReadOnly,
		Receipt:      toReceiptResponse(v.Receipt),
	})
}

func (h *Handler) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := h.svc.SendCode(r.Context(), req.AgreementID, req.SignerToken, req.Email); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Verification code sent to your email.",
	})
}

func (h *Handler) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	a, err := h.svc.VerifyCode(r.Context(), req.AgreementID, req.SignerToken, req.Email, req.Code)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"verified": true,
		"status":   a.Status,
	})
}

func (h *Handler) handleSign(w http.ResponseWriter, r *http.Request) {
	var req signRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	ev, err := h.svc.Sign(r.Context(), service.SignInput{
		AgreementID:     req.AgreementID,
		SignerToken:     req.SignerToken,
		SignerLegalName: req.SignerLegalName,
		SignerEmail:     req.SignerEmail,
	})
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"receipt": toReceiptResponse(ev),
	})
}

func (h *Handler) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	rc, err := h.svc.GetReceipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTitledReceiptResponse(rc))
}

func (h *Handler) handleVerifyReceipt(w http.ResponseWriter, r *http.Request) {
	var req verifyReceiptRequest
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	res, err := h.svc.VerifyReceipt(r.Context(), req.AgreementID, req.HMACSignature)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, verifyReceiptResponse{Valid: res.Valid, Receipt: toReceiptResponse(res.Event)})
}
