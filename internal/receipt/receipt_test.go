package receipt

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"
)

type staticKey string

func (k staticKey) ReceiptKey() []byte { return []byte(k) }

const testKey = staticKey("0123456789abcdef0123456789abcdef")

func sampleFields() Fields {
	return Fields{
		AgreementID:     "7f1c2a4e-0000-4000-8000-000000000001",
		ContractText:    "BILL OF SALE\n\nItem | Price = 10",
		CreatorEmail:    "creator@example.com",
		SignerEmail:     "a@b.com",
		SignerLegalName: "Jane Doe",
		SignedAt:        "2026-10-17T12:00:00.000Z",
		TemplateID:      "bill_of_sale",
		TemplateVersion: "1",
	}
}

func TestCanonicalize_Format(t *testing.T) {
	got := Canonicalize(map[string]string{"b": "2", "a": "1", "c": "x|y=z"})
	want := "a=1|b=2|c=x|y=z"
	if got != want {
		t.Errorf("Canonicalize = %q, want %q", got, want)
	}
	if Canonicalize(nil) != "" {
		t.Error("empty mapping should canonicalize to empty string")
	}
}

func TestCanonicalize_FieldOrder(t *testing.T) {
	got := sampleFields().Canonical()
	order := []string{
		"agreement_id=", "|contract_text=", "|creator_email=", "|signer_email=",
		"|signer_legal_name=", "|signed_at=", "|template_id=", "|template_version=",
	}
	pos := -1
	for _, p := range order {
		i := strings.Index(got, p)
		if i <= pos {
			t.Fatalf("field %q out of order in %q", p, got)
		}
		pos = i
	}
	if !strings.HasSuffix(got, "template_version=1") {
		t.Errorf("payload should end with template_version, got %q", got)
	}
}

func TestCanonicalize_InsertionOrderInvariant(t *testing.T) {
	keys := []string{"signer_email", "agreement_id", "template_version", "contract_text", "signed_at"}
	a := make(map[string]string)
	for _, k := range keys {
		a[k] = "v-" + k
	}
	b := make(map[string]string)
	for i := len(keys) - 1; i >= 0; i-- {
		b[keys[i]] = "v-" + keys[i]
	}
	if Canonicalize(a) != Canonicalize(b) {
		t.Errorf("canonical forms differ: %q vs %q", Canonicalize(a), Canonicalize(b))
	}
}

func TestSigner_SignMatchesHMAC(t *testing.T) {
	s := NewSigner(testKey)
	f := sampleFields()
	signed := s.Sign(f)
	if signed.CanonicalPayload != f.Canonical() {
		t.Error("canonical payload mismatch")
	}
	mac := hmac.New(sha256.New, []byte(testKey))
	mac.Write([]byte(signed.CanonicalPayload))
	if want := hex.EncodeToString(mac.Sum(nil)); signed.Signature != want {
		t.Errorf("signature = %s, want %s", signed.Signature, want)
	}
	if signed.Signature != strings.ToLower(signed.Signature) {
		t.Error("signature must be lowercase hex")
	}
}

func TestSigner_RoundTrip(t *testing.T) {
	s := NewSigner(testKey)
	cases := []Fields{
		sampleFields(),
		{},
		{AgreementID: "x", ContractText: strings.Repeat("clause|", 500), TemplateVersion: "2"},
	}
	for i, f := range cases {
		if !s.Verify(f, s.Sign(f).Signature) {
			t.Errorf("case %d: round trip failed", i)
		}
	}
}

func TestSigner_TamperedFieldFails(t *testing.T) {
	s := NewSigner(testKey)
	f := sampleFields()
	sig := s.Sign(f).Signature

	flip := func(v string) string {
		if v == "" {
			return "x"
		}
		b := []byte(v)
		b[len(b)-1] ^= 0x01
		return string(b)
	}
	mutations := map[string]func(*Fields){
		"agreement_id":      func(f *Fields) { f.AgreementID = flip(f.AgreementID) },
		"contract_text":     func(f *Fields) { f.ContractText = flip(f.ContractText) },
		"creator_email":     func(f *Fields) { f.CreatorEmail = flip(f.CreatorEmail) },
		"signer_email":      func(f *Fields) { f.SignerEmail = flip(f.SignerEmail) },
		"signer_legal_name": func(f *Fields) { f.SignerLegalName = flip(f.SignerLegalName) },
		"signed_at":         func(f *Fields) { f.SignedAt = flip(f.SignedAt) },
		"template_id":       func(f *Fields) { f.TemplateID = flip(f.TemplateID) },
		"template_version":  func(f *Fields) { f.TemplateVersion = flip(f.TemplateVersion) },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			g := f
			mutate(&g)
			if s.Verify(g, sig) {
				t.Errorf("tampered %s still verifies", name)
			}
		})
	}
}

func TestSigner_TamperedSignatureFails(t *testing.T) {
	s := NewSigner(testKey)
	f := sampleFields()
	sig := s.Sign(f).Signature
	for i := 0; i < len(sig); i++ {
		b := []byte(sig)
		if b[i] == '0' {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
		if s.Verify(f, string(b)) {
			t.Fatalf("signature with char %d flipped still verifies", i)
		}
	}
}

func TestSigner_MalformedSignature(t *testing.T) {
	s := NewSigner(testKey)
	f := sampleFields()
	sig := s.Sign(f).Signature
	for _, bad := range []string{"", "zz", sig[:10], sig + "00", "not hex at all"} {
		if s.Verify(f, bad) {
			t.Errorf("Verify(%q) = true, want false", bad)
		}
	}
}

func TestSigner_DifferentKey(t *testing.T) {
	f := sampleFields()
	sig := NewSigner(testKey).Sign(f).Signature
	if NewSigner(staticKey("another-secret-another-secret-xx")).Verify(f, sig) {
		t.Error("signature must not verify under a different key")
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 1, 7, 4, 5, 123456789, time.FixedZone("EST", -5*3600))
	if got := FormatTimestamp(ts); got != "2026-03-01T12:04:05.123Z" {
		t.Errorf("FormatTimestamp = %q, want 2026-03-01T12:04:05.123Z", got)
	}
	if got := FormatTimestamp(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)); got != "2026-03-01T12:00:00.000Z" {
		t.Errorf("FormatTimestamp = %q, want zero millis kept", got)
	}
	if FormatVersion(1) != "1" {
		t.Errorf("FormatVersion(1) = %q", FormatVersion(1))
	}
}
