package apperror

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"validation", Validation("bad"), KindValidation},
		{"wrapped state conflict", fmt.Errorf("sign: %w", StateConflict("already signed")), KindStateConflict},
		{"rate limit", RateLimit("slow down", time.Second), KindRateLimit},
		{"expired", Expired("gone"), KindExpired},
		{"not found", NotFound("missing"), KindNotFound},
		{"integrity", Integrity("mismatch"), KindIntegrity},
		{"plain error", errors.New("boom"), KindTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIs_MatchesByKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Expired("Agreement has expired."))
	if !errors.Is(err, Expired("")) {
		t.Error("errors.Is should match expired kind")
	}
	if errors.Is(err, NotFound("")) {
		t.Error("errors.Is should not match a different kind")
	}
}

func TestTransport_Unwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transport("store unavailable", cause)
	if !errors.Is(err, cause) {
		t.Error("Transport error should unwrap to its cause")
	}
}

func TestWrongCode(t *testing.T) {
	err := WrongCode(3)
	if err.Kind != KindValidation {
		t.Errorf("Kind = %q, want validation", err.Kind)
	}
	if err.RemainingAttempts != 3 {
		t.Errorf("RemainingAttempts = %d, want 3", err.RemainingAttempts)
	}
	if err.Message != "Invalid code. 3 attempt(s) remaining." {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestAs_WrapsUnclassified(t *testing.T) {
	if As(nil) != nil {
		t.Error("As(nil) should be nil")
	}
	e := As(errors.New("db down"))
	if e.Kind != KindTransport {
		t.Errorf("Kind = %q, want transport", e.Kind)
	}
	orig := NotFound("Agreement not found.")
	if As(fmt.Errorf("x: %w", orig)) != orig {
		t.Error("As should return the wrapped *Error")
	}
}
