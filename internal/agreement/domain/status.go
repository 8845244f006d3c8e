package domain

import "errors"

// Status is the lifecycle state of an agreement.
type Status string

const (
	StatusPending     Status = "pending"
	StatusViewed      Status = "viewed"
	StatusOTPVerified Status = "otp_verified"
	StatusSigned      Status = "signed"
	StatusExpired     Status = "expired"
	StatusSuperseded  Status = "superseded"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusViewed, StatusOTPVerified, StatusSigned, StatusExpired, StatusSuperseded:
		return true
	}
	return false
}

// IsTerminal reports whether no event can move s.
func (s Status) IsTerminal() bool {
	return s == StatusSigned || s == StatusExpired || s == StatusSuperseded
}

// Open lists the non-terminal statuses.
var Open = []Status{StatusPending, StatusViewed, StatusOTPVerified}

// Event is an input to the lifecycle state machine.
type Event string

const (
	EventView      Event = "view"
	EventSendCode  Event = "send_code"
	EventVerifyOTP Event = "verify_otp"
	EventSign      Event = "sign"
	EventExpire    Event = "expire"
	EventSupersede Event = "supersede"
)

var (
	ErrAlreadySigned     = errors.New("agreement already signed")
	ErrExpired           = errors.New("agreement has expired")
	ErrSuperseded        = errors.New("agreement has been superseded")
	ErrNotVerified       = errors.New("email not verified")
	ErrInvalidTransition = errors.New("invalid transition")
)

// terminalErr returns the rejection for any event on a terminal status.
func terminalErr(s Status) error {
	switch s {
	case StatusSigned:
		return ErrAlreadySigned
	case StatusExpired:
		return ErrExpired
	case StatusSuperseded:
		return ErrSuperseded
	}
	return nil
}

// Next is the single transition function of the lifecycle. It returns the status after ev is applied to
// from, or an error naming why ev is not legal. A returned status equal to from means ev is accepted
// without a status write (re-view, send-code, re-verification).
func Next(from Status, ev Event) (Status, error) {
	if !from.Valid() {
		return from, ErrInvalidTransition
	}
	if ev == EventView && from == StatusSigned {
		// Viewing a signed agreement shows the receipt.
		return from, nil
	}
	if err := terminalErr(from); err != nil {
		if ev == EventExpire && from == StatusExpired {
			return from, nil
		}
		return from, err
	}
	switch ev {
	case EventView:
		if from == StatusPending {
			return StatusViewed, nil
		}
		return from, nil
	case EventSendCode:
		return from, nil
	case EventVerifyOTP:
		return StatusOTPVerified, nil
	case EventSign:
		if from != StatusOTPVerified {
			return from, ErrNotVerified
		}
		return StatusSigned, nil
	case EventExpire:
		return StatusExpired, nil
	case EventSupersede:
		return StatusSuperseded, nil
	}
	return from, ErrInvalidTransition
}

// Sources returns the statuses from which ev leads to to. The repository uses it as the compare-and-swap
// guard for the write.
func Sources(ev Event, to Status) []Status {
	var out []Status
	for _, s := range []Status{StatusPending, StatusViewed, StatusOTPVerified, StatusSigned, StatusExpired, StatusSuperseded} {
		if next, err := Next(s, ev); err == nil && next == to && next != s {
			out = append(out, s)
		}
	}
	if ev == EventVerifyOTP && to == StatusOTPVerified {
		out = append(out, StatusOTPVerified)
	}
	return out
}
