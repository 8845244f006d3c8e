// Package server assembles the HTTP router and the gRPC server from the domain handlers.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	agreementhandler "handshake/backend/internal/agreement/handler"
	devotphandler "handshake/backend/internal/devotp/handler"
	"handshake/backend/internal/health"
	"handshake/backend/internal/httpx"
	"handshake/backend/internal/server/interceptors"
)

// DefaultOTPRequestsPerMinute bounds OTP send/verify calls per client IP.
const DefaultOTPRequestsPerMinute = 10

// RouterConfig holds the HTTP router dependencies. Agreements and Health are required.
type RouterConfig struct {
	Agreements       *agreementhandler.Handler
	Health           *health.Checker
	CreatorValidator interceptors.CreatorValidator
	// DevOTP is mounted at /dev/otp only when non-nil.
	DevOTP *devotphandler.Handler
	// Registry backs /metrics. A fresh registry is used when nil.
	Registry       *prometheus.Registry
	CORSOrigins    []string
	RequestTimeout time.Duration
	// OTPRequestsPerMinute defaults to DefaultOTPRequestsPerMinute; negative disables the limit.
	OTPRequestsPerMinute int
}

// NewRouter returns the chi router serving the public API, health and metrics.
func NewRouter(cfg RouterConfig) http.Handler {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := NewHTTPMetrics(reg)
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(interceptors.ClientIPMiddleware)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", cfg.Health.Live)
	r.Get("/readyz", cfg.Health.Ready)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(timeout))

		mw := agreementhandler.Middlewares{}
		if cfg.CreatorValidator != nil {
			mw.Creator = interceptors.RequireCreator(cfg.CreatorValidator)
		}
		limit := cfg.OTPRequestsPerMinute
		if limit == 0 {
			limit = DefaultOTPRequestsPerMinute
		}
		if limit > 0 {
			mw.OTP = httprate.LimitByIP(limit, time.Minute)
		}
		cfg.Agreements.Register(r, mw)

		if cfg.DevOTP != nil {
			slog.Warn("dev OTP endpoint enabled; never enable in production")
			r.Get("/dev/otp", cfg.DevOTP.GetOTP)
		}
	})
	return r
}

// requestLogger logs one line per request at info, or warn for 5xx.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "http request",
			"method", r.Method,
			"route", httpx.RoutePattern(r),
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}
