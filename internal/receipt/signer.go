package receipt

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// KeySource supplies the receipt signing key.
type KeySource interface {
	ReceiptKey() []byte
}

// Signer produces and checks receipt signatures.
type Signer struct {
	key []byte
}

// NewSigner returns a Signer using the key from keys.
func NewSigner(keys KeySource) *Signer {
	return &Signer{key: keys.ReceiptKey()}
}

// Signed is the outcome of Sign: the lowercase hex HMAC and the exact payload that was hashed.
type Signed struct {
	Signature        string
	CanonicalPayload string
}

// Sign computes HMAC-SHA256(secret, canonical(fields)).
func (s *Signer) Sign(fields Fields) Signed {
	payload := fields.Canonical()
	return Signed{Signature: s.SignPayload(payload), CanonicalPayload: payload}
}

// SignPayload returns the lowercase hex HMAC of an already canonical payload.
func (s *Signer) SignPayload(payload string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature of fields and compares it with signature in constant time.
// Undecodable or wrong-length signatures are reported as false, never as an error.
func (s *Signer) Verify(fields Fields, signature string) bool {
	provided, err := hex.DecodeString(signature)
	if err != nil || len(provided) != sha256.Size {
		return false
	}
	expected, err := hex.DecodeString(s.SignPayload(fields.Canonical()))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, provided)
}
