package security

import (
	"crypto/sha256"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// MinSecretLen is the minimum accepted length of HMAC_SECRET in bytes.
const MinSecretLen = 32

// otpKeyInfo is the HKDF info label for the OTP digest key. Changing it invalidates every pending OTP.
const otpKeyInfo = "handshake/otp-digest/v1"

var (
	// ErrSecretMissing is returned when the signing secret is not configured.
	ErrSecretMissing = errors.New("security: HMAC_SECRET is not set")
	// ErrSecretTooShort is returned when the signing secret is shorter than MinSecretLen.
	ErrSecretTooShort = errors.New("security: HMAC_SECRET must be at least 32 bytes")
	// ErrSecretWhitespace is returned when the signing secret has leading or trailing whitespace.
	ErrSecretWhitespace = errors.New("security: HMAC_SECRET must not have surrounding whitespace")
)

// SecretStore holds the process-wide signing secret. It is built once at startup and never mutated;
// accessors return copies so callers cannot alter the stored key.
type SecretStore struct {
	receiptKey []byte
	otpKey     []byte
}

// NewSecretStore validates raw and derives the OTP digest key from it.
// Startup must abort on error: signing with an empty secret is never a degraded mode.
func NewSecretStore(raw string) (*SecretStore, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrSecretMissing
	}
	// The key is used byte-for-byte.
	if trimmed != raw {
		return nil, ErrSecretWhitespace
	}
	if len(raw) < MinSecretLen {
		return nil, ErrSecretTooShort
	}
	key := []byte(raw)
	otpKey := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, key, nil, []byte(otpKeyInfo)), otpKey); err != nil {
		return nil, err
	}
	return &SecretStore{receiptKey: key, otpKey: otpKey}, nil
}

// ReceiptKey returns the raw secret used for receipt HMACs. Receipts issued before any change
// must keep verifying, so this is the configured secret byte-for-byte.
func (s *SecretStore) ReceiptKey() []byte {
	return append([]byte(nil), s.receiptKey...)
}

// OTPKey returns the HKDF-derived key used for OTP digests.
func (s *SecretStore) OTPKey() []byte {
	return append([]byte(nil), s.otpKey...)
}
