package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"handshake/backend/internal/config"
)

func loaderWith(dsn string) configLoader {
	return func() (*config.Config, error) { return &config.Config{DatabaseURL: dsn}, nil }
}

func TestRun_AppliesDirection(t *testing.T) {
	var logs bytes.Buffer
	var gotDSN, gotDirection string
	apply := func(dsn, direction string) error {
		gotDSN, gotDirection = dsn, direction
		return nil
	}
	err := run([]string{"-direction", "down"}, io.Discard, loaderWith("postgres://db/handshake"), apply,
		slog.New(slog.NewJSONHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if gotDSN != "postgres://db/handshake" || gotDirection != "down" {
		t.Errorf("apply(%q, %q)", gotDSN, gotDirection)
	}
	if !strings.Contains(logs.String(), `"direction":"down"`) {
		t.Errorf("logs = %s", logs.String())
	}
}

func TestRun_Errors(t *testing.T) {
	boom := errors.New("boom")
	ok := func(string, string) error { return nil }
	tests := []struct {
		name    string
		args    []string
		load    configLoader
		apply   migrator
		wantErr string
	}{
		{"bad flag", []string{"-nope"}, loaderWith("postgres://db"), ok, "not defined"},
		{"config", nil, func() (*config.Config, error) { return nil, boom }, ok, "config: boom"},
		{"no database", nil, loaderWith(""), ok, "DATABASE_URL is not set"},
		{"apply", nil, loaderWith("postgres://db"), func(string, string) error { return boom }, "migrate up: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(tt.args, io.Discard, tt.load, tt.apply, slog.New(slog.NewTextHandler(io.Discard, nil)))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("run = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
