// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aiku/mattermost-signal/pkg/bridge/notify"
	"github.com/aiku/mattermost-signal/pkg/bridge/wire"
)

// deliveryTimeout bounds a single notification delivery attempt.
const deliveryTimeout = 30 * time.Second

// transportConn is the slice of *websocket.Conn the session loop uses,
// abstracted so tests can inject a scripted connection.
type transportConn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Dialer opens the event-stream transport for one server.
type Dialer func(ctx context.Context, url string) (transportConn, error)

// DialWebSocket is the production dialer.
func DialWebSocket(ctx context.Context, url string) (transportConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// SessionSupervisor owns the event-stream connection to one server: it
// dials, authenticates, feeds inbound frames through the codec and the
// dispatcher, and restarts the whole connection after a fixed backoff on
// any termination. It never gives up; only context cancellation stops it.
type SessionSupervisor struct {
	serverName string
	wsURL      string
	token      string

	dial       Dialer
	dispatcher *Dispatcher
	notifier   notify.Notifier

	keepaliveInterval time.Duration
	idleTimeout       time.Duration
	backoff           time.Duration

	metrics *serverMetrics
	log     zerolog.Logger
}

// NewSessionSupervisor wires a supervisor for one configured server.
func NewSessionSupervisor(cfg *Config, server ServerConfig, notifier notify.Notifier, log zerolog.Logger) (*SessionSupervisor, error) {
	wsURL, err := server.WebSocketURL()
	if err != nil {
		return nil, fmt.Errorf("server %s: %w", server.ServerName, err)
	}
	log = log.With().Str("component", "session").Str("server", server.ServerName).Logger()
	return &SessionSupervisor{
		serverName:        server.ServerName,
		wsURL:             wsURL,
		token:             server.Token,
		dial:              DialWebSocket,
		dispatcher:        NewDispatcher(server.ServerName, cfg.SignalPhoneNumber, cfg.Location(), log),
		notifier:          notifier,
		keepaliveInterval: cfg.KeepaliveInterval(),
		idleTimeout:       cfg.IdleTimeout(),
		backoff:           cfg.ReconnectBackoff(),
		metrics:           metricsFor(server.ServerName),
		log:               log,
	}, nil
}

// Run connects and reconnects until ctx is cancelled. Every termination,
// clean or not, is followed by the same fixed backoff and a fresh attempt
// with fresh session state.
func (s *SessionSupervisor) Run(ctx context.Context) {
	for {
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			s.log.Info().Msg("Session stopped")
			return
		}
		s.metrics.reconnects.Inc()
		s.log.Warn().Err(err).Dur("backoff", s.backoff).Msg("Connection ended, restarting after backoff")
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Session stopped")
			return
		case <-time.After(s.backoff):
		}
	}
}

// runOnce drives a single connection from dial to termination.
func (s *SessionSupervisor) runOnce(ctx context.Context) error {
	conn, err := s.dial(ctx, s.wsURL)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.wsURL, err)
	}
	defer conn.Close()
	s.log.Info().Str("url", s.wsURL).Msg("Connected")

	// The credential goes out before anything else; the server drops
	// unauthenticated connections after a grace period.
	challenge, err := json.Marshal(wire.NewAuthChallenge(s.token))
	if err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, challenge); err != nil {
		return fmt.Errorf("send auth challenge: %w", err)
	}

	state := NewSessionState()
	ka := startKeepalive(conn, s.keepaliveInterval, s.idleTimeout, s.metrics.keepaliveExpiries, s.log)
	defer ka.Stop()
	conn.SetPongHandler(func(appData string) error {
		ka.HandlePong(appData)
		return nil
	})

	// Cancellation unblocks the read below by tearing down the transport.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	for {
		messageType, raw, err := conn.ReadMessage()
		if err != nil {
			// The transport layer answers protocol violations such as
			// reserved bits with a 1002 close before failing the read, so
			// by this point the connection is already condemned either way.
			return fmt.Errorf("read: %w", err)
		}
		if messageType != websocket.TextMessage {
			continue
		}
		s.handleFrame(raw, state)
	}
}

// handleFrame decodes and dispatches one inbound text frame. Frames are
// processed strictly in arrival order; only delivery happens concurrently.
func (s *SessionSupervisor) handleFrame(raw []byte, state *SessionState) {
	s.metrics.frames.Inc()
	frame, err := wire.DecodeFrame(raw)
	if err != nil {
		s.metrics.decodeFailures.Inc()
		s.log.Warn().Err(err).Bytes("frame", truncateFrame(raw)).Msg("Dropping undecodable frame")
		return
	}
	switch f := frame.(type) {
	case *wire.Reply:
		s.log.Debug().Int64("seq_reply", f.SeqReply).Str("status", f.Status).Msg("Command acknowledged")
	case *wire.Envelope:
		request := s.dispatcher.Handle(f, state)
		if request == nil {
			return
		}
		s.metrics.notifications.Inc()
		go s.deliver(request)
	}
}

func (s *SessionSupervisor) deliver(request *NotificationRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	if err := s.notifier.Send(ctx, request.Destination, request.Body); err != nil {
		s.metrics.deliveryFailures.Inc()
		s.log.Error().Err(err).Msg("Notification delivery failed")
	}
}

// truncateFrame keeps log lines readable when a frame is large.
func truncateFrame(raw []byte) []byte {
	const max = 512
	if len(raw) <= max {
		return raw
	}
	return raw[:max]
}
