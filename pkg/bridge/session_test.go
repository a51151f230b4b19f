// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestSupervisor(t *testing.T, dial Dialer, notifier *mockNotifier) *SessionSupervisor {
	t.Helper()
	cfg := newTestConfig(t)
	s, err := NewSessionSupervisor(cfg, cfg.Servers[0], notifier, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSessionSupervisor: %v", err)
	}
	s.dial = dial
	return s
}

func TestSessionWebSocketURL(t *testing.T) {
	s := newTestSupervisor(t, DialWebSocket, newMockNotifier())
	if s.wsURL != "wss://chat.example.com/api/v4/websocket" {
		t.Errorf("wsURL = %q", s.wsURL)
	}
}

func TestSessionRestartsAfterDialFailuresWithoutBound(t *testing.T) {
	var attempts atomic.Int64
	dial := func(_ context.Context, _ string) (transportConn, error) {
		attempts.Add(1)
		return nil, errors.New("connection refused")
	}
	s := newTestSupervisor(t, dial, newMockNotifier())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// With a 5ms backoff, repeated failures must keep producing fresh
	// attempts for as long as we watch.
	deadline := time.Now().Add(2 * time.Second)
	for attempts.Load() < 10 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d attempts before deadline", attempts.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}

func TestSessionSendsAuthChallengeFirst(t *testing.T) {
	conn := newFakeConn()
	dialed := make(chan struct{}, 1)
	dial := func(_ context.Context, _ string) (transportConn, error) {
		select {
		case dialed <- struct{}{}:
		default:
		}
		return conn, nil
	}
	s := newTestSupervisor(t, dial, newMockNotifier())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)
	<-dialed

	deadline := time.Now().Add(2 * time.Second)
	for len(conn.Writes()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no frame was written")
		}
		time.Sleep(5 * time.Millisecond)
	}
	want := `{"seq":1,"action":"authentication_challenge","data":{"token":"test-token"}}`
	if got := string(conn.Writes()[0]); got != want {
		t.Errorf("first write = %s, want %s", got, want)
	}
}

const sessionHelloFrame = `{"event":"hello","data":{"server_version":"5.4.0"},"broadcast":{"omit_users":null,"user_id":"U1","channel_id":"","team_id":""},"seq":1}`

const sessionPostedFrame = `{
	"event": "posted",
	"data": {
		"channel_display_name": "Town Square",
		"channel_name": "town-square",
		"channel_type": "O",
		"post": "{\"id\":\"p1\",\"create_at\":1517430000,\"update_at\":1517430000,\"edit_at\":0,\"delete_at\":0,\"is_pinned\":false,\"user_id\":\"U2\",\"channel_id\":\"c1\",\"root_id\":\"\",\"parent_id\":\"\",\"original_id\":\"\",\"message\":\"hey @alice\",\"type\":\"\",\"props\":{},\"hashtags\":\"\",\"pending_post_id\":\"\"}",
		"sender_name": "bob",
		"team_id": "t1",
		"mentions": "[\"U1\"]"
	},
	"broadcast": {"omit_users": null, "user_id": "U2", "channel_id": "c1", "team_id": ""},
	"seq": 2
}`

func TestSessionEndToEndMentionDelivery(t *testing.T) {
	conn := newFakeConn(
		textFrame(`{"status":"OK","seq_reply":1}`),
		textFrame(sessionHelloFrame),
		textFrame(sessionPostedFrame),
	)
	notifier := newMockNotifier()
	var dials atomic.Int64
	dial := func(_ context.Context, _ string) (transportConn, error) {
		if dials.Add(1) > 1 {
			return nil, errors.New("connection refused")
		}
		return conn, nil
	}
	s := newTestSupervisor(t, dial, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	delivery := awaitDelivery(t, notifier)
	if delivery.Destination != "+4915501234567" {
		t.Errorf("Destination = %q", delivery.Destination)
	}
	if !strings.HasPrefix(delivery.Body, "example bob in Town Square:\nhey @alice\n@") {
		t.Errorf("Body = %q", delivery.Body)
	}
}

func TestSessionMalformedFrameIsNotFatal(t *testing.T) {
	conn := newFakeConn(
		textFrame(sessionHelloFrame),
		textFrame(`this is not json`),
		textFrame(sessionPostedFrame),
	)
	notifier := newMockNotifier()
	dial := func(_ context.Context, _ string) (transportConn, error) {
		return conn, nil
	}
	s := newTestSupervisor(t, dial, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	// The bad frame in the middle must not prevent the mention after it
	// from being delivered on the same connection.
	awaitDelivery(t, notifier)
}

func TestSessionReconnectsAfterReadError(t *testing.T) {
	var dials atomic.Int64
	dial := func(_ context.Context, _ string) (transportConn, error) {
		dials.Add(1)
		return newFakeConn(readResult{err: errors.New("broken pipe")}), nil
	}
	s := newTestSupervisor(t, dial, newMockNotifier())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for dials.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d dials before deadline", dials.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
