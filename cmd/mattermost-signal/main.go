// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Command mattermost-signal bridges the real-time event streams of one or
// more Mattermost servers to Signal push notifications: it watches each
// stream for posts mentioning the operator's account and forwards them
// through signal-cli, and independently alerts when a server's access
// token has expired.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mattermost/mattermost/server/public/model"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"go.mau.fi/util/exzerolog"

	"github.com/aiku/mattermost-signal/pkg/bridge"
	"github.com/aiku/mattermost-signal/pkg/bridge/notify"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// Secrets referenced via token_env may live in a local .env file.
	_ = godotenv.Load()

	cfg, err := bridge.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	exzerolog.SetupDefaults(&log)
	log.Info().
		Str("tag", Tag).Str("commit", Commit).Str("build_time", BuildTime).
		Int("servers", len(cfg.Servers)).
		Msg("Starting mattermost-signal")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
			if err := http.ListenAndServe(cfg.MetricsAddr, bridge.MetricsHandler()); err != nil {
				log.Error().Err(err).Msg("Metrics listener failed")
			}
		}()
	}

	notifier := notify.NewSignalCLI(cfg.SignalPhoneNumber, log)

	var wg sync.WaitGroup
	for _, server := range cfg.Servers {
		checkConnectivity(ctx, server, log)

		session, err := bridge.NewSessionSupervisor(cfg, server, notifier, log)
		if err != nil {
			log.Fatal().Err(err).Str("server", server.ServerName).Msg("Invalid server configuration")
		}
		watchdog := bridge.NewTokenWatchdog(cfg, server, notifier, log)

		wg.Add(2)
		go func() {
			defer wg.Done()
			session.Run(ctx)
		}()
		go func() {
			defer wg.Done()
			watchdog.Run(ctx)
		}()
	}

	wg.Wait()
	log.Info().Msg("Shutdown complete")
}

// checkConnectivity verifies the credential once at startup. Failures are
// only logged: the session supervisor keeps retrying regardless, and the
// token watchdog alerts if the credential really is dead.
func checkConnectivity(ctx context.Context, server bridge.ServerConfig, log zerolog.Logger) {
	client := model.NewAPIv4Client(server.BaseURL)
	client.SetToken(server.Token)
	me, _, err := client.GetMe(ctx, "")
	if err != nil {
		log.Warn().Err(err).Str("server", server.ServerName).Msg("Startup connectivity check failed")
		return
	}
	log.Info().
		Str("server", server.ServerName).
		Str("user_id", me.Id).
		Str("username", me.Username).
		Msg("Connectivity check passed")
}

func newLogger(level string) (zerolog.Logger, error) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log_level: %w", err)
	}
	var out zerolog.Logger
	if isatty.IsTerminal(os.Stdout.Fd()) {
		out = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		out = zerolog.New(os.Stdout)
	}
	return out.With().Timestamp().Logger().Level(parsed), nil
}
