package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type instruments struct {
	otpSent          metric.Int64Counter
	otpVerifications metric.Int64Counter
	signed           metric.Int64Counter
	receiptsVerified metric.Int64Counter
}

func newInstruments(m metric.Meter) instruments {
	fallback := noop.NewMeterProvider().Meter(instrumentationName)
	counter := func(name, desc string) metric.Int64Counter {
		c, err := m.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}
	return instruments{
		otpSent:          counter("handshake.otp.sent", "OTP codes delivered"),
		otpVerifications: counter("handshake.otp.verifications", "OTP verification attempts by result"),
		signed:           counter("handshake.agreements.signed", "Agreements signed"),
		receiptsVerified: counter("handshake.receipts.verified", "Receipt verifications by validity"),
	}
}

func (i instruments) recordVerification(ctx context.Context, result string) {
	i.otpVerifications.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (i instruments) recordReceipt(ctx context.Context, valid bool) {
	i.receiptsVerified.Add(ctx, 1, metric.WithAttributes(attribute.Bool("valid", valid)))
}
