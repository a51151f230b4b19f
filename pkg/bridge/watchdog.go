// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mattermost/mattermost/server/public/model"
	"github.com/rs/zerolog"

	"github.com/aiku/mattermost-signal/pkg/bridge/notify"
)

// ErrCredentialRejected marks a definitive server-side rejection of the
// stored token, as opposed to a transient failure to reach the server.
var ErrCredentialRejected = errors.New("credential rejected by server")

// credentialChecker probes whether the stored token is still accepted.
type credentialChecker interface {
	CheckToken(ctx context.Context) error
}

// client4Checker validates the token against the REST API.
type client4Checker struct {
	client *model.Client4
}

func newClient4Checker(baseURL, token string) *client4Checker {
	client := model.NewAPIv4Client(baseURL)
	client.SetToken(token)
	return &client4Checker{client: client}
}

// CheckToken performs the cheapest authenticated request: a user listing
// with page size zero.
func (c *client4Checker) CheckToken(ctx context.Context) error {
	_, resp, err := c.client.GetUsers(ctx, 0, 0, "")
	if err == nil {
		return nil
	}
	if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		return fmt.Errorf("%w: %v", ErrCredentialRejected, err)
	}
	return err
}

// TokenWatchdog periodically re-validates one server's credential,
// independently of the live event-stream connection, and alerts the
// operator when the token has expired. The loop itself never stops on
// failure; only context cancellation ends it.
type TokenWatchdog struct {
	serverName  string
	checker     credentialChecker
	notifier    notify.Notifier
	destination string
	interval    time.Duration
	metrics     *serverMetrics
	log         zerolog.Logger
}

// NewTokenWatchdog wires a watchdog for one configured server.
func NewTokenWatchdog(cfg *Config, server ServerConfig, notifier notify.Notifier, log zerolog.Logger) *TokenWatchdog {
	return &TokenWatchdog{
		serverName:  server.ServerName,
		checker:     newClient4Checker(server.BaseURL, server.Token),
		notifier:    notifier,
		destination: cfg.SignalPhoneNumber,
		interval:    cfg.TokenCheckInterval(),
		metrics:     metricsFor(server.ServerName),
		log:         log.With().Str("component", "token_watchdog").Str("server", server.ServerName).Logger(),
	}
}

// Run checks immediately and then on every interval tick until ctx is done.
func (w *TokenWatchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.checkOnce(ctx)
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Token watchdog stopped")
			return
		case <-ticker.C:
		}
	}
}

// checkOnce probes the credential. A definitive rejection raises a
// one-shot alert; a transient failure is only logged, so a network blip
// does not page the operator at 3am.
func (w *TokenWatchdog) checkOnce(ctx context.Context) {
	err := w.checker.CheckToken(ctx)
	switch {
	case err == nil:
		w.log.Debug().Msg("Token still valid")
	case errors.Is(err, ErrCredentialRejected):
		w.log.Error().Err(err).Msg("Token expired")
		w.metrics.tokenAlerts.Inc()
		message := fmt.Sprintf("Token for %s expired!", w.serverName)
		if derr := w.notifier.Send(ctx, w.destination, message); derr != nil {
			w.log.Error().Err(derr).Msg("Failed to deliver token alert")
		}
	default:
		w.log.Warn().Err(err).Msg("Token check failed, will retry")
	}
}
