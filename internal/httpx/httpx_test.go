package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handshake/backend/internal/apperror"
)

func TestStatusFor(t *testing.T) {
	cases := map[apperror.Kind]int{
		apperror.KindValidation:    http.StatusBadRequest,
		apperror.KindStateConflict: http.StatusConflict,
		apperror.KindRateLimit:     http.StatusTooManyRequests,
		apperror.KindExpired:       http.StatusGone,
		apperror.KindNotFound:      http.StatusNotFound,
		apperror.KindIntegrity:     http.StatusUnprocessableEntity,
		apperror.KindTransport:     http.StatusServiceUnavailable,
	}
	for kind, want := range cases {
		assert.Equal(t, want, StatusFor(kind), "kind %s", kind)
	}
}

func TestWriteError_RateLimitSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/otp/send", nil)
	WriteError(rec, req, apperror.RateLimit("Please wait 42s before requesting a new code.", 41500*time.Millisecond))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit", body.Code)
	require.NotNil(t, body.RetryAfterSeconds)
	assert.Equal(t, 42, *body.RetryAfterSeconds)
}

func TestWriteError_WrongCodeCarriesRemaining(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/otp/verify", nil)
	WriteError(rec, req, apperror.WrongCode(4))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.RemainingAttempts)
	assert.Equal(t, 4, *body.RemainingAttempts)
}

func TestWriteError_UnclassifiedHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/agreements", nil)
	WriteError(rec, req, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestReadJSON_RejectsUnknownFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.c","extra":1}`))
	var dst struct {
		Email string `json:"email"`
	}
	err := ReadJSON(rec, req, &dst)
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestWriteError_LogsRoutePatternNotPath(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	r := chi.NewRouter()
	r.Get("/sign/{token}", func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, apperror.Transport("db down", errors.New("connection refused")))
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sign/tok-abcdef123456", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, buf.String(), `"route":"/sign/{token}"`)
	assert.NotContains(t, buf.String(), "tok-abcdef123456")
}

func TestRoutePattern_Unmatched(t *testing.T) {
	assert.Equal(t, "unmatched", RoutePattern(httptest.NewRequest(http.MethodGet, "/x", nil)))
}
