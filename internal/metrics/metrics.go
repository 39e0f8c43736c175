// Package metrics provides Prometheus collectors of the serving engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Request outcomes.
const (
	Routed     = "routed"
	NotFound   = "not_found"
	BadRequest = "bad_request"
)

var (
	// ConnectionsTotal counts all accepted HTTP connections.
	ConnectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ember_connections_total",
			Help: "Accepted connections",
		},
	)

	// ConnectionsActive tracks the number of currently open connections.
	ConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ember_connections_active",
			Help: "Active connections",
		},
	)

	// RequestsTotal counts requests by the outcome of routing.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ember_requests_total",
			Help: "Total requests",
		},
		[]string{"outcome"},
	)

	// FramingErrorsTotal counts messages aborted due to framing errors.
	FramingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ember_framing_errors_total",
			Help: "Framing errors",
		},
	)

	// TunnelUpgradesTotal counts connections switched to the tunnel mode.
	TunnelUpgradesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ember_tunnel_upgrades_total",
			Help: "Tunnel upgrades",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		ConnectionsActive,
		RequestsTotal,
		FramingErrorsTotal,
		TunnelUpgradesTotal,
	)
}
