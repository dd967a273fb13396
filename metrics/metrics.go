// Package metrics holds the engine's Prometheus instruments. Registration is
// via promauto on the default registry; the HTTP server exposes /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersAcceptedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kestrel_orders_accepted_total",
			Help: "Orders accepted by the matching engine",
		},
		[]string{"instrument", "side", "type"},
	)

	OrdersRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kestrel_orders_rejected_total",
			Help: "Orders rejected before touching the book",
		},
		[]string{"instrument", "reason"},
	)

	TradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kestrel_trades_total",
			Help: "Trades printed by the matching engine",
		},
		[]string{"instrument"},
	)

	TradedQty = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kestrel_traded_qty_total",
			Help: "Aggregate quantity traded",
		},
		[]string{"instrument"},
	)

	RestingOrders = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kestrel_resting_orders",
			Help: "Orders currently resting in the book",
		},
		[]string{"instrument"},
	)

	BestBid = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kestrel_best_bid",
			Help: "Best bid price (ticks); absent when the side is empty",
		},
		[]string{"instrument"},
	)

	BestAsk = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kestrel_best_ask",
			Help: "Best ask price (ticks); absent when the side is empty",
		},
		[]string{"instrument"},
	)

	CommandLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kestrel_command_latency_seconds",
			Help:    "Wall time per engine command, WAL write included",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 12),
		},
		[]string{"instrument", "command"},
	)
)
