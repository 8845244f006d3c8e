// Package handler serves the dev-only GET /dev/otp route.
package handler

import (
	"net/http"
	"strings"

	"handshake/backend/internal/apperror"
	"handshake/backend/internal/devotp"
	"handshake/backend/internal/httpx"
)

const devOTPNote = "DEV MODE ONLY"

// Handler reads plaintext codes from the dev store. Only mounted when dev OTP is enabled outside production.
type Handler struct {
	store devotp.Store
}

// NewHandler returns a Handler reading from store.
func NewHandler(store devotp.Store) *Handler {
	return &Handler{store: store}
}

type otpResponse struct {
	OTP  string `json:"otp"`
	Note string `json:"note"`
}

// GetOTP returns the newest code for ?agreement_id=&email=.
func (h *Handler) GetOTP(w http.ResponseWriter, r *http.Request) {
	agreementID := strings.TrimSpace(r.URL.Query().Get("agreement_id"))
	email := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("email")))
	if agreementID == "" || email == "" {
		httpx.WriteError(w, r, apperror.Validation("agreement_id and email are required"))
		return
	}
	code, ok := h.store.Get(r.Context(), agreementID, email)
	if !ok {
		httpx.WriteError(w, r, apperror.NotFound("OTP not found or expired"))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, otpResponse{OTP: code, Note: devOTPNote})
}
