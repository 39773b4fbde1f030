// Package metrics exposes the Prometheus counters/histograms the HTTP
// layer and event sink record, following the same promauto package-level
// variable style the rest of the pack uses for its own metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts every request the router completes.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swissknife_http_requests_total",
		Help: "Total HTTP requests handled, by method, route, and status code.",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration times each request from the router's own
	// middleware, not the network round trip.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swissknife_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds, by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// InvoicesCreatedTotal counts invoices minted, by ledger (lightning vs
	// onchain).
	InvoicesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swissknife_invoices_created_total",
		Help: "Total invoices created, by ledger.",
	}, []string{"ledger"})

	// PaymentsSentTotal counts outgoing payment attempts, by terminal
	// status.
	PaymentsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swissknife_payments_sent_total",
		Help: "Total outgoing payments attempted, by status.",
	}, []string{"status"})

	// ProviderEventsTotal counts Lightning/on-chain events delivered to
	// eventsvc, by kind.
	ProviderEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swissknife_provider_events_total",
		Help: "Total provider events processed, by kind.",
	}, []string{"kind"})
)
