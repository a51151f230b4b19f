// Copyright 2024-2026 Aiku AI

package bridge

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mmsignal_frames_total",
		Help: "Inbound text frames received.",
	}, []string{"server"})
	decodeFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mmsignal_decode_failures_total",
		Help: "Frames dropped because they failed to decode.",
	}, []string{"server"})
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mmsignal_notifications_total",
		Help: "Notification requests produced by the dispatcher.",
	}, []string{"server"})
	deliveryFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mmsignal_delivery_failures_total",
		Help: "Notification deliveries that reported an error.",
	}, []string{"server"})
	reconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mmsignal_reconnects_total",
		Help: "Connection restarts after a termination.",
	}, []string{"server"})
	keepaliveExpiriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mmsignal_keepalive_expiries_total",
		Help: "Connections closed because no liveness signal arrived in time.",
	}, []string{"server"})
	tokenAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mmsignal_token_alerts_total",
		Help: "Credential-expiry alerts raised by the token watchdog.",
	}, []string{"server"})
)

// serverMetrics bundles the per-server counters so components don't carry
// label plumbing around.
type serverMetrics struct {
	frames            prometheus.Counter
	decodeFailures    prometheus.Counter
	notifications     prometheus.Counter
	deliveryFailures  prometheus.Counter
	reconnects        prometheus.Counter
	keepaliveExpiries prometheus.Counter
	tokenAlerts       prometheus.Counter
}

func metricsFor(server string) *serverMetrics {
	return &serverMetrics{
		frames:            framesTotal.WithLabelValues(server),
		decodeFailures:    decodeFailuresTotal.WithLabelValues(server),
		notifications:     notificationsTotal.WithLabelValues(server),
		deliveryFailures:  deliveryFailuresTotal.WithLabelValues(server),
		reconnects:        reconnectsTotal.WithLabelValues(server),
		keepaliveExpiries: keepaliveExpiriesTotal.WithLabelValues(server),
		tokenAlerts:       tokenAlertsTotal.WithLabelValues(server),
	}
}

// MetricsHandler serves the process metrics; main mounts it when a metrics
// listen address is configured.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
