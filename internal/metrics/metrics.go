// Package metrics holds the Prometheus collectors of the energy service
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "energy"

// Payment validation and crediting
var (
	// ValidationsTotal counts payment claim validations by outcome
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Payment claim validations by result",
		},
		[]string{"result"}, // ok, unknown_tier, not_found, sender_mismatch, amount_mismatch, missing_payload, gateway_error
	)

	// CreditsTotal counts applied energy credits
	CreditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credits_total",
			Help:      "Energy credits applied by tier",
		},
		[]string{"tier"},
	)

	// ReplaysTotal counts claims for already credited transactions
	ReplaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replays_total",
			Help:      "Claims rejected because the transaction was already credited",
		},
	)
)

// Ledger gateway
var (
	// GatewayRequestsTotal counts toncenter calls
	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "toncenter JSON-RPC calls by method and status",
		},
		[]string{"method", "status"},
	)

	// GatewayRequestDuration observes toncenter call latency
	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "toncenter JSON-RPC call latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method"},
	)
)

// HTTP surface
var (
	// HTTPRequestsTotal counts HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes HTTP request latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)
