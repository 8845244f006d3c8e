package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"handshake/backend/internal/audit/domain"
	auditrepo "handshake/backend/internal/audit/repository"
	"handshake/backend/internal/telemetry"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger appends one lifecycle audit record. LogEvent is best-effort: failures are logged and do not
// affect the caller, whose transition has already committed.
type AuditLogger interface {
	LogEvent(ctx context.Context, agreementID string, eventType domain.EventType, actorEmail string, metadata map[string]string)
}

// Logger implements AuditLogger using the audit repository. Each record is also emitted as a telemetry event.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	emitter     telemetry.EventEmitter
	nowF        func() time.Time
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor and emitter may be nil; then IP is recorded as "unknown" and no event is emitted.
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, emitter telemetry.EventEmitter) *Logger {
	return &Logger{
		repo:        repo,
		ipExtractor: ipExtractor,
		emitter:     emitter,
		nowF:        func() time.Time { return time.Now().UTC() },
	}
}

// LogEvent writes one audit record. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, agreementID string, eventType domain.EventType, actorEmail string, metadata map[string]string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	meta := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			meta = string(b)
		}
	}
	entry := &domain.AuditLog{
		ID:          uuid.New().String(),
		AgreementID: agreementID,
		EventType:   eventType,
		ActorEmail:  actorEmail,
		IP:          ip,
		Metadata:    meta,
		CreatedAt:   l.nowF(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "audit: failed to log event",
			"agreement_id", agreementID, "event_type", string(eventType), "error", err)
	}
	telemetry.EmitAsync(l.emitter, ctx, &telemetry.Event{
		ID:          entry.ID,
		AgreementID: agreementID,
		EventType:   string(eventType),
		ActorEmail:  actorEmail,
		Source:      telemetry.SourceServer,
		Metadata:    json.RawMessage(meta),
		CreatedAt:   entry.CreatedAt,
	})
}

type clientIPKey struct{}

// WithClientIP returns ctx carrying the caller's IP for ClientIPFromContext.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIPFromContext is an IPExtractor reading the value set by WithClientIP.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
