// Package receipt builds canonical payloads for signature events and signs or verifies them with
// HMAC-SHA256. The field names and the payload format are a wire contract: receipts issued earlier
// must keep verifying, so neither may change without a schema version bump.
package receipt

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// SchemaVersion identifies the signed field set below.
const SchemaVersion = 1

// Signed field names, in the exact spelling used in canonical payloads.
const (
	FieldAgreementID     = "agreement_id"
	FieldContractText    = "contract_text"
	FieldCreatorEmail    = "creator_email"
	FieldSignerEmail     = "signer_email"
	FieldSignerLegalName = "signer_legal_name"
	FieldSignedAt        = "signed_at"
	FieldTemplateID      = "template_id"
	FieldTemplateVersion = "template_version"
)

// Fields is the fixed set of values bound into a receipt. All values are already in their wire
// string form (SignedAt as stored, TemplateVersion as a decimal string).
type Fields struct {
	AgreementID     string
	ContractText    string
	CreatorEmail    string
	SignerEmail     string
	SignerLegalName string
	SignedAt        string
	TemplateID      string
	TemplateVersion string
}

// TimestampLayout is the wire form of signed_at: UTC with millisecond precision and a Z suffix.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// FormatVersion renders a template version as its decimal wire form.
func FormatVersion(v int) string {
	return strconv.Itoa(v)
}

// Map returns the named field mapping that is canonicalized.
func (f Fields) Map() map[string]string {
	return map[string]string{
		FieldAgreementID:     f.AgreementID,
		FieldContractText:    f.ContractText,
		FieldCreatorEmail:    f.CreatorEmail,
		FieldSignerEmail:     f.SignerEmail,
		FieldSignerLegalName: f.SignerLegalName,
		FieldSignedAt:        f.SignedAt,
		FieldTemplateID:      f.TemplateID,
		FieldTemplateVersion: f.TemplateVersion,
	}
}

// Canonical returns the canonical payload of f.
func (f Fields) Canonical() string {
	return Canonicalize(f.Map())
}

// Canonicalize sorts keys by byte order and joins key=value pairs with "|". Values are not
// escaped: they are server-controlled, and contract_text is one value, never decomposed.
func Canonicalize(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	return b.String()
}
