// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// railbook-server is the central reservation authority. Passenger and
// administrative terminals connect over TCP (or a Unix socket), query
// availability, reserve seats, and pay or cancel their orders. Unpaid
// orders release their seats after the hold timeout.
//
// Configuration comes from --config, else RAILBOOK_CONFIG, else the
// built-in defaults. Flags given on the command line override the file.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/railbook/lib/clock"
	"github.com/bureau-foundation/railbook/lib/config"
	"github.com/bureau-foundation/railbook/lib/dispatch"
	"github.com/bureau-foundation/railbook/lib/process"
	"github.com/bureau-foundation/railbook/lib/reservation"
	"github.com/bureau-foundation/railbook/lib/service"
	"github.com/bureau-foundation/railbook/lib/session"
	"github.com/bureau-foundation/railbook/lib/timetable"
	"github.com/bureau-foundation/railbook/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath    string
		listen        string
		network       string
		timetablePath string
		logLevel      string
		logFormat     string
		showVersion   bool
	)

	flagSet := pflag.NewFlagSet("railbook-server", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to railbook.yaml (default: $RAILBOOK_CONFIG, else built-in defaults)")
	flagSet.StringVar(&listen, "listen", "", "listen address: host:port for tcp, socket path for unix")
	flagSet.StringVar(&network, "network", "", "listener network: tcp or unix")
	flagSet.StringVar(&timetablePath, "timetable", "", "JSONC timetable to seed instead of the built-in one")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	flagSet.StringVar(&logFormat, "log-format", "", "json, text, or auto")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return process.Usage("%v", err)
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		version.Print("railbook-server")
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return process.Usage("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("listen") {
		cfg.Server.Address = listen
	}
	if flagSet.Changed("network") {
		cfg.Server.Network = network
	}
	if flagSet.Changed("timetable") {
		cfg.Timetable.Path = timetablePath
	}
	if flagSet.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flagSet.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, clock.Real(), logger, nil)
}

// loadConfig reads path if given, then RAILBOOK_CONFIG if set, and
// otherwise returns the defaults.
func loadConfig(path string) (*config.Config, error) {
	switch {
	case path != "":
		return config.LoadFile(path)
	case os.Getenv(config.EnvVar) != "":
		return config.Load()
	}
	return config.Default(), nil
}

func newLogger(logging config.LoggingConfig) (*slog.Logger, error) {
	level, err := logging.SlogLevel()
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: level}
	text := logging.Format == "text"
	if logging.Format == "auto" {
		text = term.IsTerminal(int(os.Stderr.Fd()))
	}
	if text {
		return slog.New(slog.NewTextHandler(os.Stderr, options)), nil
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, options)), nil
}

// serve wires the authority, the session directory and the dispatcher,
// seeds the timetable, and serves until ctx is cancelled. If ready is
// non-nil it receives the bound address once the listener is up.
func serve(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *slog.Logger, ready chan<- net.Addr) error {
	directory := session.NewDirectory(logger)
	authority := reservation.New(clk, dispatch.NewPusher(directory), logger,
		reservation.WithHoldTimeout(cfg.Reservation.HoldTimeout),
		reservation.WithSweepInterval(cfg.Reservation.SweepInterval),
		reservation.WithMaxTickets(cfg.Reservation.MaxTickets),
	)

	if err := seed(authority, cfg.Timetable, clk, logger); err != nil {
		return err
	}

	dispatcher := dispatch.New(dispatch.Config{
		Authority:    authority,
		Directory:    directory,
		Clock:        clk,
		Logger:       logger,
		WriteTimeout: cfg.Server.WriteTimeout,
	})
	server := service.NewServer(cfg.Server.Network, cfg.Server.Address, dispatcher, logger)
	if err := server.Listen(); err != nil {
		return err
	}
	if ready != nil {
		ready <- server.Addr()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		authority.Run(ctx)
	}()

	logger.Info("railbook server running",
		"version", version.Info(),
		"environment", cfg.Environment,
		"address", server.Addr().String(),
	)

	serveErr := server.Serve(ctx)
	wg.Wait()

	stats := authority.Stats()
	logger.Info("railbook server stopped",
		"pending", stats.Pending,
		"paid", stats.Paid,
		"cancelled", stats.Cancelled,
		"expired", stats.Expired,
	)
	return serveErr
}

// seed applies the configured timetable file, or the built-in one when
// no file is configured and use_builtin is set.
func seed(authority *reservation.Authority, cfg config.TimetableConfig, clk clock.Clock, logger *slog.Logger) error {
	var (
		seedTimetable *timetable.Timetable
		source        string
	)
	switch {
	case cfg.Path != "":
		loaded, err := timetable.ReadFile(cfg.Path)
		if err != nil {
			return err
		}
		seedTimetable, source = loaded, cfg.Path
	case cfg.UseBuiltin:
		seedTimetable, source = timetable.Builtin(), "builtin"
	default:
		logger.Info("starting with empty inventory")
		return nil
	}

	applied, err := seedTimetable.Apply(authority, clk.Now())
	if err != nil {
		return fmt.Errorf("seeding timetable from %s: %w", source, err)
	}
	if applied == 0 {
		return errors.New("timetable " + source + " has no seat allocations")
	}
	logger.Info("timetable seeded",
		"source", source,
		"trains", len(seedTimetable.Trains),
		"allocations", applied,
	)
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `railbook-server: central ticket reservation authority.

Terminals connect and exchange CBOR envelopes {origin, type, payload}.
Requests: CONNECT, QUERY, RESERVE, CONFIRM, CANCEL, ADD_STOCK, STATUS,
DISCONNECT. Order status changes are pushed to the owning terminal as
ORDER_UPDATE "orderId,STATUS".

Usage:
  railbook-server [flags]

Examples:
  # Serve the demonstration timetable on 127.0.0.1:8888
  railbook-server

  # Serve on a Unix socket with a custom timetable
  railbook-server --network unix --listen /run/railbook.sock --timetable spring.jsonc

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
