// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

// fakeMM serves the user-listing endpoint the token probe hits.
func fakeMM(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/users" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestWatchdog(t *testing.T, baseURL string, notifier *mockNotifier) *TokenWatchdog {
	t.Helper()
	cfg := newTestConfig(t, ServerConfig{
		BaseURL:    baseURL,
		Token:      "test-token",
		ServerName: "example",
	})
	return NewTokenWatchdog(cfg, cfg.Servers[0], notifier, zerolog.Nop())
}

func TestWatchdogAlertsOnRejectedToken(t *testing.T) {
	server := fakeMM(t, http.StatusUnauthorized,
		`{"id":"api.context.session_expired.app_error","message":"Invalid or expired session","status_code":401}`)
	notifier := newMockNotifier()
	w := newTestWatchdog(t, server.URL, notifier)

	w.checkOnce(context.Background())

	delivery := awaitDelivery(t, notifier)
	if delivery.Destination != "+4915501234567" {
		t.Errorf("Destination = %q", delivery.Destination)
	}
	if delivery.Body != "Token for example expired!" {
		t.Errorf("Body = %q", delivery.Body)
	}
}

func TestWatchdogAlertsOnForbidden(t *testing.T) {
	server := fakeMM(t, http.StatusForbidden,
		`{"id":"api.context.permissions.app_error","message":"You do not have the appropriate permissions","status_code":403}`)
	notifier := newMockNotifier()
	w := newTestWatchdog(t, server.URL, notifier)

	w.checkOnce(context.Background())

	if delivery := awaitDelivery(t, notifier); delivery.Body != "Token for example expired!" {
		t.Errorf("Body = %q", delivery.Body)
	}
}

func TestWatchdogValidTokenIsSilent(t *testing.T) {
	server := fakeMM(t, http.StatusOK, `[]`)
	notifier := newMockNotifier()
	w := newTestWatchdog(t, server.URL, notifier)

	w.checkOnce(context.Background())

	if sent := notifier.Sent(); len(sent) != 0 {
		t.Errorf("unexpected deliveries: %v", sent)
	}
}

func TestWatchdogTransientServerErrorIsSilent(t *testing.T) {
	server := fakeMM(t, http.StatusInternalServerError,
		`{"id":"app.user.get_profiles.app_error","message":"internal error","status_code":500}`)
	notifier := newMockNotifier()
	w := newTestWatchdog(t, server.URL, notifier)

	w.checkOnce(context.Background())

	if sent := notifier.Sent(); len(sent) != 0 {
		t.Errorf("unexpected deliveries: %v", sent)
	}
}

func TestWatchdogUnreachableServerIsSilent(t *testing.T) {
	notifier := newMockNotifier()
	// A closed port: dial fails, which must count as transient.
	w := newTestWatchdog(t, "http://127.0.0.1:1", notifier)

	w.checkOnce(context.Background())

	if sent := notifier.Sent(); len(sent) != 0 {
		t.Errorf("unexpected deliveries: %v", sent)
	}
}
