// Package metrics exposes the service's prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesTotal counts inbound transport updates by kind
	// (command, callback, text).
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatstore_updates_total",
		Help: "Inbound chat updates processed, by update kind.",
	}, []string{"kind"})

	// FlowsCompleted counts committed creation flows by flow kind.
	FlowsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatstore_flows_completed_total",
		Help: "Multi-step creation flows committed, by flow kind.",
	}, []string{"kind"})

	// OrdersPlaced counts successfully placed orders.
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatstore_orders_placed_total",
		Help: "Orders successfully placed through the intake pipeline.",
	})
)
