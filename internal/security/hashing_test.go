package security

import (
	"strings"
	"testing"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewSecretStore(t *testing.T) {
	if _, err := NewSecretStore(""); err != ErrSecretMissing {
		t.Errorf("empty: want ErrSecretMissing, got %v", err)
	}
	if _, err := NewSecretStore("   "); err != ErrSecretMissing {
		t.Errorf("blank: want ErrSecretMissing, got %v", err)
	}
	if _, err := NewSecretStore("short"); err != ErrSecretTooShort {
		t.Errorf("short: want ErrSecretTooShort, got %v", err)
	}
	for _, padded := range []string{testSecret + "\n", " " + testSecret, "\t" + testSecret + " "} {
		if _, err := NewSecretStore(padded); err != ErrSecretWhitespace {
			t.Errorf("%q: want ErrSecretWhitespace, got %v", padded, err)
		}
	}
	s, err := NewSecretStore(testSecret)
	if err != nil {
		t.Fatalf("NewSecretStore: %v", err)
	}
	if string(s.ReceiptKey()) != testSecret {
		t.Error("receipt key must be the configured secret")
	}
	if string(s.OTPKey()) == testSecret || len(s.OTPKey()) != 32 {
		t.Error("otp key must be a derived 32-byte key")
	}
}

func TestSecretStore_ReturnsCopies(t *testing.T) {
	s, _ := NewSecretStore(testSecret)
	k := s.ReceiptKey()
	k[0] = 'X'
	if string(s.ReceiptKey()) != testSecret {
		t.Error("mutating returned key must not change the store")
	}
}

func TestCodeDigester_DigestAndEqual(t *testing.T) {
	s, _ := NewSecretStore(testSecret)
	d := NewCodeDigester(s)
	digest := d.Digest("agr-1", "a@b.com", "012345")
	if len(digest) != 64 || strings.Contains(digest, "012345") {
		t.Fatalf("digest = %q", digest)
	}
	if !d.Equal("agr-1", "a@b.com", "012345", digest) {
		t.Error("correct code should match")
	}
	if d.Equal("agr-1", "a@b.com", "012346", digest) {
		t.Error("wrong code should not match")
	}
	if d.Equal("agr-2", "a@b.com", "012345", digest) {
		t.Error("digest must be bound to the agreement")
	}
	if d.Equal("agr-1", "c@d.com", "012345", digest) {
		t.Error("digest must be bound to the email")
	}
	if d.Equal("agr-1", "a@b.com", "012345", "not-hex") {
		t.Error("undecodable stored digest should not match")
	}
}
