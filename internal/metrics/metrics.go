// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Messages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brick_messages_total",
			Help: "Messages processed, by whether the bot was addressed",
		},
		[]string{"addressed"},
	)

	Commands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brick_commands_total",
			Help: "Commands handled, by command kind and result code",
		},
		[]string{"command", "code"},
	)

	Responses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brick_responses_total",
			Help: "Messages that produced a response",
		},
	)

	PluginErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brick_plugin_errors_total",
			Help: "Plugin failures, by plugin",
		},
		[]string{"plugin"},
	)

	StoreErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "brick_store_errors_total",
			Help: "Failed knowledge store calls",
		},
	)

	Heartbeats = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brick_heartbeats_total",
			Help: "Heartbeat runs, by what they produced",
		},
		[]string{"result"},
	)

	ProcessDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "brick_process_duration_seconds",
			Help: "Time spent processing one message",
		},
	)
)
