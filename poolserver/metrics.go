package poolserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serverMetrics bundles the prometheus collectors exposed on the /metrics
// endpoint. Each server instance carries its own registry.
type serverMetrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	claimsTotal        *prometheus.CounterVec
	claimedAmountTotal *prometheus.CounterVec
	wsClients          prometheus.Gauge
}

func newServerMetrics() *serverMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &serverMetrics{
		registry: registry,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incentive",
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Number of JSON-RPC requests received, by method.",
		}, []string{"method"}),
		claimsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incentive",
			Subsystem: "rewards",
			Name:      "claims_total",
			Help:      "Number of successful claim payouts, by category.",
		}, []string{"category"}),
		claimedAmountTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incentive",
			Subsystem: "rewards",
			Name:      "claimed_amount_total",
			Help:      "Total token amount paid out through claims, by category.",
		}, []string{"category"}),
		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "incentive",
			Subsystem: "rpc",
			Name:      "websocket_clients",
			Help:      "Number of connected websocket notification clients.",
		}),
	}
}

func (m *serverMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
