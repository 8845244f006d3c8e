package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	agreementhandler "handshake/backend/internal/agreement/handler"
	"handshake/backend/internal/health"
	"handshake/backend/internal/server/interceptors"
	"handshake/backend/internal/telemetry"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

// GRPCConfig holds the gRPC server dependencies. Receipts and Health are required.
type GRPCConfig struct {
	Receipts         agreementhandler.ReceiptServiceServer
	Health           *health.Checker
	CreatorValidator interceptors.CreatorValidator
	// Emitter receives one grpc_request event per RPC. May be nil.
	Emitter telemetry.EventEmitter
}

// NewGRPCServer returns a gRPC server with the receipt and health services registered. Interceptor order:
// client IP, creator auth, then request telemetry.
func NewGRPCServer(cfg GRPCConfig) *grpc.Server {
	public := map[string]bool{
		healthCheckMethod:              true,
		"/grpc.health.v1.Health/List": true,
	}
	for m := range agreementhandler.PublicMethods {
		public[m] = true
	}
	chain := []grpc.UnaryServerInterceptor{interceptors.ClientIPUnary()}
	if cfg.CreatorValidator != nil {
		chain = append(chain, interceptors.AuthUnary(cfg.CreatorValidator, public))
	}
	chain = append(chain, interceptors.TelemetryUnary(cfg.Emitter, map[string]bool{healthCheckMethod: true}))

	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(chain...),
	)
	agreementhandler.RegisterReceiptServiceServer(s, cfg.Receipts)
	cfg.Health.Register(s)
	return s
}
