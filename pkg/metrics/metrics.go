package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Coin pipeline counters. Exposed at /metrics by cmd/api.

var (
	MintResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wordmint",
		Subsystem: "coin",
		Name:      "mint_results_total",
		Help:      "Coin creation outcomes by kind (real, simulated) and outcome",
	}, []string{"kind", "outcome"})

	MintDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wordmint",
		Subsystem: "coin",
		Name:      "mint_duration_seconds",
		Help:      "End-to-end coin creation latency",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
	}, []string{"kind"})

	PinResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wordmint",
		Subsystem: "metadata",
		Name:      "pin_results_total",
		Help:      "Metadata pin outcomes (pinned, placeholder_no_credential, placeholder_error, placeholder_breaker_open)",
	}, []string{"outcome"})

	ReadinessResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wordmint",
		Subsystem: "wallet",
		Name:      "readiness_results_total",
		Help:      "Wallet readiness gate results",
	}, []string{"result"})

	TradeResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wordmint",
		Subsystem: "trade",
		Name:      "results_total",
		Help:      "Trade submissions by direction and outcome",
	}, []string{"direction", "outcome"})

	CommitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "wordmint",
		Subsystem: "coin",
		Name:      "commit_failures_total",
		Help:      "Writing commits that failed after the coin was confirmed on chain",
	})

	ReconcileActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wordmint",
		Subsystem: "reconcile",
		Name:      "actions_total",
		Help:      "Reconciliation actions (persisted, retried, orphaned, failed)",
	}, []string{"action"})
)
