package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	agreementhandler "handshake/backend/internal/agreement/handler"
	agreementrepo "handshake/backend/internal/agreement/repository"
	agreementservice "handshake/backend/internal/agreement/service"
	"handshake/backend/internal/audit"
	auditrepo "handshake/backend/internal/audit/repository"
	"handshake/backend/internal/config"
	"handshake/backend/internal/db"
	"handshake/backend/internal/devotp"
	devotphandler "handshake/backend/internal/devotp/handler"
	"handshake/backend/internal/email"
	"handshake/backend/internal/health"
	"handshake/backend/internal/logging"
	"handshake/backend/internal/otp"
	otprepo "handshake/backend/internal/otp/repository"
	"handshake/backend/internal/receipt"
	"handshake/backend/internal/security"
	"handshake/backend/internal/server"
	"handshake/backend/internal/server/interceptors"
	signaturerepo "handshake/backend/internal/signature/repository"
	"handshake/backend/internal/store/memstore"
	"handshake/backend/internal/telemetry"
	otelsetup "handshake/backend/internal/telemetry/otel"
	"handshake/backend/internal/telemetry/producer"
)

const (
	serviceName       = "handshake-backend"
	healthInterval    = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 5 * time.Second
)

type repositories struct {
	agreements agreementservice.AgreementRepo
	signatures agreementservice.SignatureRepo
	challenges otprepo.Repository
	audit      auditrepo.Repository
	pinger     health.Pinger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: serviceName,
		Environment: cfg.Env,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otelsetup.NewProviders(ctx, otelsetup.Config{
		ServiceName: serviceName,
		Environment: cfg.Env,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	kafkaProducer := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.EventsTopic)
	var kafkaEmitter telemetry.EventEmitter
	if kafkaProducer != nil {
		kafkaEmitter = kafkaProducer
		logger.Info("publishing lifecycle events to kafka", "topic", cfg.EventsTopic)
	}
	emitter := telemetry.Multi(otelsetup.NewEventEmitter(providers.LoggerProvider), kafkaEmitter)

	secrets, err := security.NewSecretStore(cfg.HMACSecret)
	if err != nil {
		log.Fatalf("secret: %v", err)
	}

	repos, closeDB, err := openRepositories(cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer closeDB()

	var (
		sender  email.Sender
		devOTPH *devotphandler.Handler
	)
	if cfg.OTPReturnToClient {
		store := devotp.NewMemoryStore()
		sender = email.NewDevSender(store)
		devOTPH = devotphandler.NewHandler(store)
		logger.Warn("OTP_RETURN_TO_CLIENT is enabled; codes are served from /dev/otp and never emailed")
	} else {
		sender = email.NewSendGridClient(cfg.SendGridAPIKey, cfg.SendGridBaseURL, cfg.SendGridFromEmail)
	}

	auditLogger := newAuditLogger(repos.audit, emitter)
	verifier := otp.NewVerifier(repos.challenges, security.NewCodeDigester(secrets), sender)
	svc := agreementservice.NewService(
		repos.agreements,
		repos.signatures,
		repos.audit,
		auditLogger,
		verifier,
		receipt.NewSigner(secrets),
		cfg.FrontendURL,
	)

	var creatorValidator interceptors.CreatorValidator
	if cfg.CreatorJWTSecret != "" {
		creatorValidator = security.NewCreatorTokenValidator(cfg.CreatorJWTSecret, cfg.CreatorJWTIssuer)
	} else {
		logger.Warn("CREATOR_JWT_SECRET is not set; creator routes reject every request")
		creatorValidator = security.NewCreatorTokenValidator("", "")
	}

	checker := health.NewChecker(repos.pinger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	httpSrv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(server.RouterConfig{
			Agreements:       agreementhandler.NewHandler(svc),
			Health:           checker,
			CreatorValidator: creatorValidator,
			DevOTP:           devOTPH,
			Registry:         registry,
			CORSOrigins:      cfg.CORSOriginsList(),
			RequestTimeout:   cfg.RequestTimeout,
		}),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	grpcSrv := server.NewGRPCServer(server.GRPCConfig{
		Receipts:         agreementhandler.NewGRPCServer(svc),
		Health:           checker,
		CreatorValidator: creatorValidator,
		Emitter:          emitter,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return checker.Run(gctx, healthInterval)
	})
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcSrv.GracefulStop()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped with error", "error", err)
	}

	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := kafkaProducer.Close(); err != nil {
		logger.Warn("kafka producer close", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("otel shutdown", "error", err)
	}
	logger.Info("server stopped")
}

// openRepositories returns Postgres repositories when DATABASE_URL is set and in-memory ones otherwise.
func openRepositories(cfg *config.Config) (repositories, func(), error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL is not set; using in-memory storage")
		store := memstore.New()
		return repositories{
			agreements: store.Agreements(),
			signatures: store.Signatures(),
			challenges: store.Challenges(),
			audit:      store.AuditTrail(),
		}, func() {}, nil
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return repositories{}, nil, err
	}
	return postgresRepositories(conn), func() { _ = conn.Close() }, nil
}

func postgresRepositories(conn *sql.DB) repositories {
	return repositories{
		agreements: agreementrepo.NewPostgresRepository(conn),
		signatures: signaturerepo.NewPostgresRepository(conn),
		challenges: otprepo.NewPostgresRepository(conn),
		audit:      auditrepo.NewPostgresRepository(conn),
		pinger:     conn,
	}
}

// newAuditLogger reads the caller IP stored by interceptors.ClientIPMiddleware and ClientIPUnary, so HTTP and
// gRPC requests are both attributed.
func newAuditLogger(repo auditrepo.Repository, emitter telemetry.EventEmitter) *audit.Logger {
	return audit.NewLogger(repo, audit.ClientIPFromContext, emitter)
}
