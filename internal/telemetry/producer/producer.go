// Package producer publishes lifecycle events to Kafka.
package producer

import (
	"context"

	"handshake/backend/internal/telemetry"
)

// Producer emits lifecycle events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	Emit(ctx context.Context, event *telemetry.Event) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
