// Package telemetry carries agreement lifecycle events to observability sinks (OTel logs, Kafka).
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// SourceServer marks events emitted by the API server.
const SourceServer = "handshake-server"

// Event is one lifecycle event. It mirrors an audit record and is serialized as JSON on Kafka.
type Event struct {
	ID          string          `json:"id"`
	AgreementID string          `json:"agreementId"`
	EventType   string          `json:"eventType"`
	ActorEmail  string          `json:"actorEmail,omitempty"`
	Source      string          `json:"source"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// EventEmitter emits lifecycle events. Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

type multiEmitter []EventEmitter

// Multi fans an event out to every non-nil emitter and joins their errors.
func Multi(emitters ...EventEmitter) EventEmitter {
	out := make(multiEmitter, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

func (m multiEmitter) Emit(ctx context.Context, event *Event) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
