// Package metrics declares the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CommandsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guild_commands_dispatched_total",
			Help: "Chat commands matched by the dispatcher, by outcome",
		},
		[]string{"command", "outcome"},
	)

	EffectsSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guild_effects_settled_total",
			Help: "Best-effort side effects by name and status (ok, failed, skipped)",
		},
		[]string{"effect", "status"},
	)

	StoreWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guild_store_writes_total",
			Help: "Snapshot writes to durable storage",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "guild_http_requests_total",
			Help: "Dashboard requests by route and status code",
		},
		[]string{"route", "code"},
	)
)
