// Worker consumes agreement lifecycle events from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, AGREEMENT_EVENTS_TOPIC, KAFKA_GROUP_ID and LOKI_URL. HMAC_SECRET is required by config but unused.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"handshake/backend/internal/config"
	"handshake/backend/internal/logging"
	"handshake/backend/internal/telemetry/loki"
)

const pushTimeout = 10 * time.Second

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type eventPusher interface {
	PushEventJSON(ctx context.Context, rawJSON []byte) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.NewLogger(logging.Config{
		ServiceName: "handshake-event-worker",
		Environment: cfg.Env,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		log.Fatal("worker: LOKI_URL is required")
	}

	topic := cfg.EventsTopic
	if topic == "" {
		topic = "handshake-events"
	}
	groupID := cfg.KafkaGroupID
	if groupID == "" {
		groupID = "handshake-event-worker"
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker: consuming", "topic", topic, "group", groupID, "loki", cfg.LokiURL)
	relay(ctx, reader, loki.NewClient(cfg.LokiURL))
	logger.Info("worker: stopped")
}

// relay forwards every message to Loki until ctx is done. Push failures are logged and the message is skipped.
func relay(ctx context.Context, reader messageReader, pusher eventPusher) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("worker: kafka read error", "error", err)
			continue
		}

		pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
		if err := pusher.PushEventJSON(pushCtx, msg.Value); err != nil {
			slog.Warn("worker: loki push failed", "offset", msg.Offset, "error", err)
		}
		cancel()
	}
}
