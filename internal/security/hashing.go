package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// CodeDigester computes keyed digests of one-time codes. The plaintext code is never stored.
type CodeDigester struct {
	key []byte
}

// NewCodeDigester returns a digester keyed with the secret store's OTP key.
func NewCodeDigester(secrets *SecretStore) *CodeDigester {
	return &CodeDigester{key: secrets.OTPKey()}
}

// Digest returns hex HMAC-SHA256 over agreementID|email|code. Binding the pair into the input
// means a digest copied between challenges never matches.
func (d *CodeDigester) Digest(agreementID, email, code string) string {
	mac := hmac.New(sha256.New, d.key)
	mac.Write([]byte(agreementID))
	mac.Write([]byte{'|'})
	mac.Write([]byte(email))
	mac.Write([]byte{'|'})
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal reports whether candidate hashes to storedDigest, comparing in constant time.
func (d *CodeDigester) Equal(agreementID, email, candidate, storedDigest string) bool {
	got, err := hex.DecodeString(d.Digest(agreementID, email, candidate))
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(storedDigest)
	if err != nil {
		return false
	}
	return hmac.Equal(got, want)
}
