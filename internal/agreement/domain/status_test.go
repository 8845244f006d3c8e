package domain

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestNext(t *testing.T) {
	tests := []struct {
		from    Status
		ev      Event
		want    Status
		wantErr error
	}{
		{StatusPending, EventView, StatusViewed, nil},
		{StatusViewed, EventView, StatusViewed, nil},
		{StatusOTPVerified, EventView, StatusOTPVerified, nil},
		{StatusSigned, EventView, StatusSigned, nil},
		{StatusExpired, EventView, StatusExpired, ErrExpired},
		{StatusSuperseded, EventView, StatusSuperseded, ErrSuperseded},

		{StatusPending, EventSendCode, StatusPending, nil},
		{StatusOTPVerified, EventSendCode, StatusOTPVerified, nil},
		{StatusSigned, EventSendCode, StatusSigned, ErrAlreadySigned},
		{StatusExpired, EventSendCode, StatusExpired, ErrExpired},

		{StatusPending, EventVerifyOTP, StatusOTPVerified, nil},
		{StatusViewed, EventVerifyOTP, StatusOTPVerified, nil},
		{StatusOTPVerified, EventVerifyOTP, StatusOTPVerified, nil},
		{StatusSigned, EventVerifyOTP, StatusSigned, ErrAlreadySigned},
		{StatusExpired, EventVerifyOTP, StatusExpired, ErrExpired},

		{StatusPending, EventSign, StatusPending, ErrNotVerified},
		{StatusViewed, EventSign, StatusViewed, ErrNotVerified},
		{StatusOTPVerified, EventSign, StatusSigned, nil},
		{StatusSigned, EventSign, StatusSigned, ErrAlreadySigned},
		{StatusExpired, EventSign, StatusExpired, ErrExpired},
		{StatusSuperseded, EventSign, StatusSuperseded, ErrSuperseded},

		{StatusPending, EventExpire, StatusExpired, nil},
		{StatusViewed, EventExpire, StatusExpired, nil},
		{StatusOTPVerified, EventExpire, StatusExpired, nil},
		{StatusExpired, EventExpire, StatusExpired, nil},
		{StatusSigned, EventExpire, StatusSigned, ErrAlreadySigned},

		{StatusViewed, EventSupersede, StatusSuperseded, nil},
		{StatusSigned, EventSupersede, StatusSigned, ErrAlreadySigned},
		{StatusSuperseded, EventSupersede, StatusSuperseded, ErrSuperseded},

		{Status("bogus"), EventView, Status("bogus"), ErrInvalidTransition},
		{StatusPending, Event("bogus"), StatusPending, ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.ev), func(t *testing.T) {
			got, err := Next(tt.from, tt.ev)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNext_TerminalStatesNeverLeave(t *testing.T) {
	events := []Event{EventView, EventSendCode, EventVerifyOTP, EventSign, EventExpire, EventSupersede}
	for _, s := range []Status{StatusSigned, StatusExpired, StatusSuperseded} {
		for _, ev := range events {
			if got, _ := Next(s, ev); got != s {
				t.Errorf("Next(%s, %s) = %s, terminal status must not change", s, ev, got)
			}
		}
	}
}

func TestSources(t *testing.T) {
	tests := []struct {
		ev   Event
		to   Status
		want []Status
	}{
		{EventView, StatusViewed, []Status{StatusPending}},
		{EventVerifyOTP, StatusOTPVerified, []Status{StatusPending, StatusViewed, StatusOTPVerified}},
		{EventSign, StatusSigned, []Status{StatusOTPVerified}},
		{EventExpire, StatusExpired, []Status{StatusPending, StatusViewed, StatusOTPVerified}},
		{EventSupersede, StatusSuperseded, []Status{StatusPending, StatusViewed, StatusOTPVerified}},
	}
	for _, tt := range tests {
		if got := Sources(tt.ev, tt.to); !slices.Equal(got, tt.want) {
			t.Errorf("Sources(%s, %s) = %v, want %v", tt.ev, tt.to, got, tt.want)
		}
	}
}

func TestIsExpiredAt(t *testing.T) {
	exp := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	a := &Agreement{ExpiresAt: exp}
	if a.IsExpiredAt(exp) {
		t.Error("agreement should still be open at exactly expiresAt")
	}
	if !a.IsExpiredAt(exp.Add(time.Nanosecond)) {
		t.Error("agreement should be expired after expiresAt")
	}
}

func TestStatusUpdate_Apply(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := &Agreement{Status: StatusOTPVerified, SignerEmail: "bob@example.com"}
	name := "Bob Builder"
	StatusUpdate{Status: StatusSigned, SignerLegalName: &name, SignedAt: &now}.Apply(a, now)
	if a.Status != StatusSigned || a.SignerLegalName != name || a.SignedAt == nil || !a.SignedAt.Equal(now) {
		t.Errorf("agreement after Apply = %+v", a)
	}
	if a.SignerEmail != "bob@example.com" {
		t.Error("nil SignerEmail must leave the stored email unchanged")
	}
	if !a.UpdatedAt.Equal(now) {
		t.Error("UpdatedAt not stamped")
	}
}
