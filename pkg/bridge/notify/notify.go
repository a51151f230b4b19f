// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package notify delivers notification texts to an external channel. The
// production path shells out to signal-cli; the bridge core only sees the
// Notifier interface.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Notifier delivers a text body to a destination address. Implementations
// must be safe for concurrent use; sessions and watchdogs call Send from
// independent goroutines without coordination.
type Notifier interface {
	Send(ctx context.Context, destination, body string) error
}

// commandRunner runs one external command to completion. Tests inject a
// fake to capture invocations.
type commandRunner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// SignalCLI sends messages through the signal-cli command. Invocations are
// rate limited so a mention storm cannot spawn an unbounded number of
// processes; beyond that, deliveries are fire-and-forget with no retries.
type SignalCLI struct {
	account string
	binary  string
	limiter *rate.Limiter
	run     commandRunner
	log     zerolog.Logger
}

// NewSignalCLI builds a notifier sending from the given signal account.
func NewSignalCLI(account string, log zerolog.Logger) *SignalCLI {
	return &SignalCLI{
		account: account,
		binary:  "signal-cli",
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		run:     execRunner,
		log:     log.With().Str("component", "signal_cli").Logger(),
	}
}

// Send delivers one message, blocking until signal-cli exits. A non-zero
// exit or a context expiry while rate-limited is reported as an error.
func (s *SignalCLI) Send(ctx context.Context, destination, body string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	s.log.Debug().Str("destination", destination).Int("bytes", len(body)).Msg("Invoking signal-cli")
	if err := s.run(ctx, s.binary, "-u", s.account, "send", "-m", body, destination); err != nil {
		return fmt.Errorf("signal-cli send: %w", err)
	}
	return nil
}
