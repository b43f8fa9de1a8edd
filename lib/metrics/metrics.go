// Package metrics exposes the service Prometheus collectors. They register on the default registry, served by promhttp when the service is started with monitoring enabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Reconciles counts synchronizer passes by outcome: committed, unchanged, skipped or error.
	Reconciles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletcore_reconciles_total",
		Help: "Wallet session reconciliation passes by outcome.",
	}, []string{"backend", "outcome"})

	// BalanceFetches counts resolver queries by outcome: ok, unfunded, deduped or error.
	BalanceFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletcore_balance_fetches_total",
		Help: "Ledger balance fetches by outcome.",
	}, []string{"net", "outcome"})

	// Invocations counts contract invocations by terminal state.
	Invocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "walletcore_invocations_total",
		Help: "Contract invocations by terminal state.",
	}, []string{"net", "status"})

	// InvocationDuration observes end-to-end invocation latency in seconds.
	InvocationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "walletcore_invocation_duration_seconds",
		Help:    "End-to-end contract invocation latency.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})
)
