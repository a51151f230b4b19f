// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// keepalivePayload is the fixed probe payload. Only pongs echoing it count
// as a liveness signal for this session.
var keepalivePayload = []byte("mattermost-client")

// controlWriteWait bounds how long a control-frame write may block.
const controlWriteWait = 5 * time.Second

// controlTransport is the slice of the websocket connection the keepalive
// supervisor needs: control frames out and teardown.
type controlTransport interface {
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// keepalive drives the two per-connection liveness timers: a periodic ping
// and an idle-expiry watchdog that closes the connection when no matching
// pong arrives in time.
type keepalive struct {
	transport   controlTransport
	interval    time.Duration
	idleTimeout time.Duration
	expiries    prometheus.Counter
	log         zerolog.Logger

	mu      sync.Mutex
	expire  *time.Timer
	stopped bool

	done     chan struct{}
	stopOnce sync.Once
}

// startKeepalive arms both timers and begins pinging. Stop must be called
// when the connection ends.
func startKeepalive(t controlTransport, interval, idleTimeout time.Duration, expiries prometheus.Counter, log zerolog.Logger) *keepalive {
	k := &keepalive{
		transport:   t,
		interval:    interval,
		idleTimeout: idleTimeout,
		expiries:    expiries,
		log:         log.With().Str("component", "keepalive").Logger(),
		done:        make(chan struct{}),
	}
	k.armExpire()
	go k.pingLoop()
	return k
}

func (k *keepalive) pingLoop() {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	for {
		select {
		case <-k.done:
			return
		case <-ticker.C:
			k.log.Debug().Msg("Sending keepalive ping")
			err := k.transport.WriteControl(websocket.PingMessage, keepalivePayload, time.Now().Add(controlWriteWait))
			if err != nil {
				k.log.Warn().Err(err).Msg("Keepalive ping failed")
				return
			}
		}
	}
}

// HandlePong re-arms the idle-expiry timer when the pong echoes this
// session's probe payload. Pongs with any other payload are not a liveness
// signal and are ignored.
func (k *keepalive) HandlePong(payload string) {
	if payload != string(keepalivePayload) {
		return
	}
	k.log.Debug().Msg("Received pong")
	k.armExpire()
}

// armExpire replaces the idle-expiry timer. The previous timer is always
// invalidated first, so at most one is outstanding.
func (k *keepalive) armExpire() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.stopped {
		return
	}
	if k.expire != nil {
		k.expire.Stop()
	}
	k.expire = time.AfterFunc(k.idleTimeout, k.expired)
}

// expired actively closes the connection with a going-away close, the
// normal code for a connection we abandon ourselves.
func (k *keepalive) expired() {
	k.expiries.Inc()
	k.log.Warn().Dur("idle_timeout", k.idleTimeout).Msg("No liveness signal before deadline, closing connection")
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "idle timeout")
	if err := k.transport.WriteControl(websocket.CloseMessage, msg, time.Now().Add(controlWriteWait)); err != nil {
		k.log.Debug().Err(err).Msg("Failed to send close frame")
	}
	_ = k.transport.Close()
}

// Stop cancels both timers. It does not close the transport.
func (k *keepalive) Stop() {
	k.stopOnce.Do(func() {
		close(k.done)
	})
	k.mu.Lock()
	defer k.mu.Unlock()
	k.stopped = true
	if k.expire != nil {
		k.expire.Stop()
		k.expire = nil
	}
}
