package domain

import "time"

// EventType names an audited lifecycle transition.
type EventType string

const (
	EventCreated     EventType = "created"
	EventViewed      EventType = "viewed"
	EventOTPSent     EventType = "otp_sent"
	EventOTPVerified EventType = "otp_verified"
	EventSigned      EventType = "signed"
	EventExpired     EventType = "expired"
	EventSuperseded  EventType = "superseded"
)

// AuditLog is one append-only audit_trail record.
type AuditLog struct {
	ID          string
	AgreementID string
	EventType   EventType
	ActorEmail  string
	IP          string
	// Metadata is a JSON object; "{}" when empty.
	Metadata  string
	CreatedAt time.Time
}
