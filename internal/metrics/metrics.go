package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AuthDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teaguard_auth_decisions_total",
			Help: "Authentication decisions by outcome and method",
		},
		[]string{"outcome", "method"},
	)

	AlertDispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teaguard_alert_dispatches_total",
			Help: "Alert dispatches by category",
		},
		[]string{"category"},
	)

	AlertChannelSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teaguard_alert_channel_sends_total",
			Help: "Per-channel alert send outcomes",
		},
		[]string{"channel", "status"}, // status: ok/error
	)

	LiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "teaguard_live_subscribers",
			Help: "Currently connected fire-alarm websocket clients",
		},
	)

	AccessLogWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teaguard_access_log_write_failures_total",
			Help: "Best-effort access log appends that failed",
		},
	)
)
