// Package httpx holds the JSON helpers and the error-kind to status mapping shared by HTTP handlers.
package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"handshake/backend/internal/apperror"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error             string `json:"error"`
	Code              string `json:"code"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
	RetryAfterSeconds *int   `json:"retry_after_seconds,omitempty"`
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RoutePattern returns the matched chi route pattern, or "unmatched". Raw paths are never logged because
// signer links carry the capability token.
func RoutePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// ReadJSON decodes a bounded body into dst, rejecting unknown fields.
func ReadJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.Validation("Invalid JSON body.")
	}
	return nil
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindStateConflict:
		return http.StatusConflict
	case apperror.KindRateLimit:
		return http.StatusTooManyRequests
	case apperror.KindExpired:
		return http.StatusGone
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindIntegrity:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}

// WriteError writes err as an ErrorResponse. Transport causes are logged, not returned.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperror.As(err)
	if e.Kind == apperror.KindTransport {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "route", RoutePattern(r), "error", err)
	}
	resp := ErrorResponse{Error: e.Message, Code: string(e.Kind)}
	if e.RemainingAttempts >= 0 {
		n := e.RemainingAttempts
		resp.RemainingAttempts = &n
	}
	if e.Kind == apperror.KindRateLimit && e.RetryAfter > 0 {
		secs := int((e.RetryAfter + time.Second - 1) / time.Second)
		resp.RetryAfterSeconds = &secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	WriteJSON(w, StatusFor(e.Kind), resp)
}
