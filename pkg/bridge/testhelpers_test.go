// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

// testCounter returns an unregistered counter for components that report
// metrics.
func testCounter() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter"})
}

// sentNotification is one captured delivery.
type sentNotification struct {
	Destination string
	Body        string
}

// mockNotifier captures deliveries for assertions. Deliveries also land on
// the Delivered channel so tests can await asynchronous sends.
type mockNotifier struct {
	mu        sync.Mutex
	sent      []sentNotification
	err       error
	Delivered chan sentNotification
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{Delivered: make(chan sentNotification, 16)}
}

func (m *mockNotifier) Send(_ context.Context, destination, body string) error {
	m.mu.Lock()
	delivery := sentNotification{Destination: destination, Body: body}
	m.sent = append(m.sent, delivery)
	err := m.err
	m.mu.Unlock()
	m.Delivered <- delivery
	return err
}

func (m *mockNotifier) Sent() []sentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentNotification(nil), m.sent...)
}

// awaitDelivery blocks until the notifier reports a delivery or the test
// deadline budget runs out.
func awaitDelivery(t *testing.T, n *mockNotifier) sentNotification {
	t.Helper()
	select {
	case delivery := <-n.Delivered:
		return delivery
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a delivery")
		return sentNotification{}
	}
}

// controlCall is one recorded control-frame write.
type controlCall struct {
	MessageType int
	Data        []byte
}

// fakeControl implements controlTransport and records control writes.
type fakeControl struct {
	mu       sync.Mutex
	controls []controlCall

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeControl() *fakeControl {
	return &fakeControl{closed: make(chan struct{})}
}

func (f *fakeControl) WriteControl(messageType int, data []byte, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controls = append(f.controls, controlCall{MessageType: messageType, Data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeControl) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeControl) Controls() []controlCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]controlCall(nil), f.controls...)
}

func (f *fakeControl) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// readResult is one scripted ReadMessage outcome.
type readResult struct {
	messageType int
	data        []byte
	err         error
}

// errConnClosed terminates a scripted connection when its frames run out
// or it is closed from the outside.
var errConnClosed = errors.New("fake connection closed")

// fakeConn implements transportConn with a scripted sequence of inbound
// frames. When the script runs out, ReadMessage blocks until Close.
type fakeConn struct {
	fakeControl
	incoming chan readResult

	writeMu sync.Mutex
	writes  [][]byte

	pongHandler func(string) error
}

func newFakeConn(script ...readResult) *fakeConn {
	incoming := make(chan readResult, len(script))
	for _, r := range script {
		incoming <- r
	}
	c := &fakeConn{incoming: incoming}
	c.closed = make(chan struct{})
	return c
}

func textFrame(raw string) readResult {
	return readResult{messageType: websocket.TextMessage, data: []byte(raw)}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case r := <-c.incoming:
		return r.messageType, r.data, r.err
	case <-c.closed:
		return 0, nil, errConnClosed
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.writes = append(c.writes, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) SetPongHandler(h func(string) error) {
	c.pongHandler = h
}

func (c *fakeConn) Writes() [][]byte {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return append([][]byte(nil), c.writes...)
}

// newTestConfig returns a processed config with short intervals suitable
// for tests.
func newTestConfig(t *testing.T, servers ...ServerConfig) *Config {
	t.Helper()
	if len(servers) == 0 {
		servers = []ServerConfig{{
			BaseURL:    "https://chat.example.com",
			Token:      "test-token",
			ServerName: "example",
		}}
	}
	cfg := &Config{
		SignalPhoneNumber:     "+4915501234567",
		Timezone:              "UTC",
		KeepaliveIntervalStr:  "10ms",
		IdleTimeoutStr:        "75ms",
		ReconnectBackoffStr:   "5ms",
		TokenCheckIntervalStr: "1h",
		Servers:               servers,
	}
	if err := cfg.PostProcess(); err != nil {
		t.Fatalf("PostProcess: %v", err)
	}
	return cfg
}
