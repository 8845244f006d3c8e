// Package email delivers one-time codes to signers.
package email

import (
	"context"
	"fmt"
	"html"
	"time"
)

// DefaultSubject is the subject line of OTP emails.
const DefaultSubject = "Your Handshake Verification Code"

// OTPMessage is one code delivery.
type OTPMessage struct {
	To          string
	AgreementID string
	// Title is the agreement title shown to the signer. May be empty.
	Title       string
	Code        string
	ExpiresAt   time.Time
}

// Sender delivers OTP messages. Implementations must honor ctx cancellation.
type Sender interface {
	Send(ctx context.Context, msg OTPMessage) error
}

// PlainTextBody renders the text body. The code appears only here, never in logs.
func PlainTextBody(msg OTPMessage, ttl time.Duration) string {
	body := fmt.Sprintf("Your verification code is: %s\n\nThis code expires in %d minutes. Do not share it with anyone.",
		msg.Code, int(ttl/time.Minute))
	if msg.Title != "" {
		body = fmt.Sprintf("You are signing %q.\n\n%s", msg.Title, body)
	}
	return body
}

// HTMLBody renders the HTML alternative of PlainTextBody. The title is escaped.
func HTMLBody(msg OTPMessage, ttl time.Duration) string {
	var intro string
	if msg.Title != "" {
		intro = fmt.Sprintf("<p>You are signing <strong>%s</strong>.</p>", html.EscapeString(msg.Title))
	}
	return fmt.Sprintf("%s<p>Your verification code is: <strong>%s</strong></p>"+
		"<p>This code expires in %d minutes. Do not share it with anyone.</p>",
		intro, html.EscapeString(msg.Code), int(ttl/time.Minute))
}
