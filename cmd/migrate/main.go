// migrate runs DB migrations from embedded SQL: go run ./cmd/migrate -direction up.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"handshake/backend/internal/config"
	"handshake/backend/internal/db/migrate"
	"handshake/backend/internal/logging"
)

const serviceName = "handshake-migrate"

type (
	configLoader func() (*config.Config, error)
	migrator     func(dsn, direction string) error
)

func main() {
	logger := logging.NewLogger(logging.Config{ServiceName: serviceName, Environment: os.Getenv("APP_ENV")})
	if err := run(os.Args[1:], os.Stderr, config.Load, migrate.Run, logger); err != nil {
		logger.Error("migrate failed", "error", err)
		os.Exit(1)
	}
}

// run parses args, loads config and applies migrations. Already being at the target version is
// success, as migrate.Run reports it.
func run(args []string, stderr io.Writer, load configLoader, apply migrator, logger *slog.Logger) error {
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	direction := fs.String("direction", "up", "Migration direction: up or down")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set; create a .env or export DATABASE_URL")
	}
	if err := apply(cfg.DatabaseURL, *direction); err != nil {
		return fmt.Errorf("migrate %s: %w", *direction, err)
	}
	logger.Info("migrations applied", "direction", *direction)
	return nil
}
