package email

import (
	"context"
	"log/slog"

	"handshake/backend/internal/devotp"
)

// DevSender stores codes in a devotp.Store instead of emailing them. Development only.
type DevSender struct {
	store devotp.Store
}

// NewDevSender returns a sender that writes to store.
func NewDevSender(store devotp.Store) *DevSender {
	return &DevSender{store: store}
}

func (s *DevSender) Send(ctx context.Context, msg OTPMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.store.Put(ctx, msg.AgreementID, msg.To, msg.Code, msg.ExpiresAt)
	slog.InfoContext(ctx, "dev otp stored; fetch it from GET /dev/otp",
		"agreement_id", msg.AgreementID, "email", msg.To)
	return nil
}
