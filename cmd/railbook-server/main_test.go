// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/railbook/lib/clock"
	"github.com/bureau-foundation/railbook/lib/config"
	"github.com/bureau-foundation/railbook/lib/dispatch"
	"github.com/bureau-foundation/railbook/lib/protocol"
	"github.com/bureau-foundation/railbook/lib/testutil"
)

var testClockEpoch = time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)

// startServe runs serve on a Unix socket and returns the socket path.
// The server stops when the test ends.
func startServe(t *testing.T, cfg *config.Config, clk clock.Clock) string {
	t.Helper()
	cfg.Server.Network = "unix"
	cfg.Server.Address = filepath.Join(testutil.SocketDir(t), "railbook.sock")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan net.Addr, 1)
	serveErr := make(chan error, 1)
	go func() { serveErr <- serve(ctx, cfg, clk, logger, ready) }()

	select {
	case <-ready:
	case err := <-serveErr:
		cancel()
		t.Fatalf("serve: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("server did not become ready")
	}
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, serveErr, 5*time.Second, "serve did not return"); err != nil {
			t.Errorf("serve: %v", err)
		}
	})
	return cfg.Server.Address
}

func dial(t *testing.T, socketPath, terminalID string) *protocol.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := protocol.Dial(ctx, "unix", socketPath, terminalID)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return client
}

func call(t *testing.T, client *protocol.Client, requestType protocol.Type, payload string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := client.Call(ctx, requestType, payload)
	if err != nil {
		t.Fatalf("%s %q: %v", requestType, payload, err)
	}
	return reply
}

func TestServeSeedsBuiltinTimetable(t *testing.T) {
	socketPath := startServe(t, config.Default(), clock.Fake(testClockEpoch))
	client := dial(t, socketPath, "terminal-a")

	want := strings.Join([]string{
		"D202 (南京-苏州) {一等座=80, 二等座=200}",
		"G101 (北京-上海) {一等座=50, 二等座=100, 商务座=10}",
		"K303 (西安-成都) {硬卧=100, 硬座=300, 软卧=30}",
		"T888 (广州-深圳) {无座=50, 硬座=50}",
	}, "\n")
	if got := call(t, client, protocol.TypeQuery, ""); got != want {
		t.Fatalf("QUERY today:\n got %q\nwant %q", got, want)
	}
	if got := call(t, client, protocol.TypeQuery, "2026-01-16"); !strings.Contains(got, "K303 (西安-成都) {硬座=5}") {
		t.Fatalf("QUERY tomorrow = %q", got)
	}
}

func TestServeAppliesReservationConfig(t *testing.T) {
	fakeClock := clock.Fake(testClockEpoch)
	cfg := config.Default()
	cfg.Reservation.HoldTimeout = 10 * time.Second
	cfg.Reservation.MaxTickets = 2
	socketPath := startServe(t, cfg, fakeClock)
	client := dial(t, socketPath, "terminal-a")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Call(ctx, protocol.TypeReserve, "K303,3,2026-01-16,硬座"); err == nil {
		t.Fatal("reserve above max_tickets succeeded")
	}

	reply := call(t, client, protocol.TypeReserve, "K303,2,2026-01-16,硬座")
	orderID, ok := dispatch.ReservedOrderID(reply)
	if !ok {
		t.Fatalf("RESERVE reply %q", reply)
	}

	fakeClock.WaitForTimers(1)
	fakeClock.Advance(11 * time.Second)
	push := testutil.RequireReceive(t, client.Pushes(), 5*time.Second, "expiry push")
	if push.Payload != orderID+",EXPIRED" {
		t.Fatalf("push = %+v", push)
	}
}

func TestServeTimetableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.jsonc")
	content := `{"trains": [
		// single train
		{"id": "Z9", "origin": "拉萨", "destination": "西宁",
		 "seats": [{"date": "today", "class": "软卧", "count": 4}]},
	]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing timetable: %v", err)
	}
	cfg := config.Default()
	cfg.Timetable.Path = path
	socketPath := startServe(t, cfg, clock.Fake(testClockEpoch))
	client := dial(t, socketPath, "admin")

	if got := call(t, client, protocol.TypeQuery, ""); got != "Z9 (拉萨-西宁) {软卧=4}" {
		t.Fatalf("QUERY = %q", got)
	}
}

func TestServeRejectsBadTimetable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonc")
	if err := os.WriteFile(path, []byte(`{"trains": [{"id": "Z9", "origin": "A", "destination": "B",
		"seats": [{"date": "someday", "class": "硬座", "count": 1}]}]}`), 0644); err != nil {
		t.Fatalf("writing timetable: %v", err)
	}
	cfg := config.Default()
	cfg.Timetable.Path = path
	cfg.Server.Network = "unix"
	cfg.Server.Address = filepath.Join(testutil.SocketDir(t), "railbook.sock")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := serve(context.Background(), cfg, clock.Fake(testClockEpoch), logger, nil)
	if err == nil || !strings.Contains(err.Error(), "someday") {
		t.Fatalf("serve error = %v, want timetable date error", err)
	}
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	t.Setenv(config.EnvVar, "")
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Server.Address != config.Default().Server.Address {
		t.Fatalf("address = %q", cfg.Server.Address)
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"auto", "json", "text"} {
		logger, err := newLogger(config.LoggingConfig{Level: "warn", Format: format})
		if err != nil {
			t.Fatalf("newLogger(%s): %v", format, err)
		}
		if logger.Enabled(context.Background(), slog.LevelInfo) {
			t.Errorf("newLogger(%s) enabled Info at level warn", format)
		}
	}
	if _, err := newLogger(config.LoggingConfig{Level: "loud", Format: "json"}); err == nil {
		t.Error("newLogger accepted level \"loud\"")
	}
}
