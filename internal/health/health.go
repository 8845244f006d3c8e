// Package health reports liveness and readiness over HTTP and the standard gRPC health protocol.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"handshake/backend/internal/httpx"
)

const pingTimeout = 2 * time.Second

// Pinger checks a dependency (e.g. *sql.DB). Nil means no dependency to check.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Checker tracks readiness and mirrors it into a gRPC health server.
type Checker struct {
	pinger Pinger
	grpc   *grpchealth.Server
}

// NewChecker returns a Checker for pinger. pinger may be nil.
func NewChecker(pinger Pinger) *Checker {
	return &Checker{pinger: pinger, grpc: grpchealth.NewServer()}
}

// Check pings the dependency.
func (c *Checker) Check(ctx context.Context) error {
	if c.pinger == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.pinger.PingContext(ctx)
}

// Register adds the gRPC health service to s.
func (c *Checker) Register(s grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(s, c.grpc)
}

// Refresh runs Check once and publishes the result to the gRPC health server.
func (c *Checker) Refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := c.Check(ctx); err != nil {
		slog.WarnContext(ctx, "health: readiness check failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	c.grpc.SetServingStatus("", status)
}

// Run refreshes readiness every interval until ctx is done, then marks the server as shutting down.
func (c *Checker) Run(ctx context.Context, interval time.Duration) error {
	c.Refresh(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			c.grpc.Shutdown()
			return nil
		case <-t.C:
			c.Refresh(ctx)
		}
	}
}

// Live always answers 200.
func (c *Checker) Live(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready answers 200 when the dependency responds and 503 otherwise.
func (c *Checker) Ready(w http.ResponseWriter, r *http.Request) {
	if err := c.Check(r.Context()); err != nil {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
