// Package metrics exposes Prometheus counters and gauges for the live
// trading runner: signals generated, orders placed, funding events, and
// liquidations, registered on a dedicated registry so a host binary can
// mount them on its own /metrics endpoint.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry is the collector registry metrics are registered against. A
// dedicated registry (rather than the global default) lets multiple bot
// instances in one process each expose their own /metrics without
// colliding on metric names.
var Registry = prometheus.NewRegistry()

var (
	signalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_signals_generated_total",
			Help: "Trading signals generated, by symbol and action.",
		},
		[]string{"symbol", "action"},
	)

	ordersPlaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_orders_placed_total",
			Help: "Orders placed, by symbol, side, and mode (paper|live).",
		},
		[]string{"symbol", "side", "mode"},
	)

	orderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_order_errors_total",
			Help: "Order placement errors, by symbol.",
		},
		[]string{"symbol"},
	)

	fundingEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_funding_events_total",
			Help: "Funding settlements observed, by symbol.",
		},
		[]string{"symbol"},
	)

	liquidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_liquidations_total",
			Help: "Positions force-closed by the exchange, by symbol.",
		},
		[]string{"symbol"},
	)

	equity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_equity_usd",
			Help: "Current equity snapshot in USD.",
		},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_open_positions",
			Help: "Number of currently open positions.",
		},
	)
)

func init() {
	Registry.MustRegister(
		signalsGenerated,
		ordersPlaced,
		orderErrors,
		fundingEvents,
		liquidations,
		equity,
		openPositions,
	)
}

// SignalGenerated records that a strategy produced a non-hold signal.
func SignalGenerated(symbol, action string) {
	signalsGenerated.WithLabelValues(symbol, action).Inc()
}

// OrderPlaced records a successfully placed order.
func OrderPlaced(symbol, side, mode string) {
	ordersPlaced.WithLabelValues(symbol, side, mode).Inc()
}

// OrderError records an order placement failure.
func OrderError(symbol string) {
	orderErrors.WithLabelValues(symbol).Inc()
}

// FundingEvent records a funding settlement for a symbol.
func FundingEvent(symbol string) {
	fundingEvents.WithLabelValues(symbol).Inc()
}

// Liquidation records a forced position close for a symbol.
func Liquidation(symbol string) {
	liquidations.WithLabelValues(symbol).Inc()
}

// SetEquity updates the current equity gauge.
func SetEquity(v float64) {
	equity.Set(v)
}

// SetOpenPositions updates the open-position-count gauge.
func SetOpenPositions(n int) {
	openPositions.Set(float64(n))
}
