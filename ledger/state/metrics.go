package state

import (
	"sync"

	"github.com/lunfardo314/utxobatch/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusAcceptedTransactions prometheus.Counter
	prometheusRejectedTransactions *prometheus.CounterVec
	prometheusBatchSize            prometheus.Histogram
	prometheusHandleTxs            prometheus.Histogram
	prometheusPoolSize             prometheus.Gauge
)

var prometheusMetricsInitOnce sync.Once

func initPrometheusMetrics() {
	prometheusMetricsInitOnce.Do(_initPrometheusMetrics)
}

func _initPrometheusMetrics() {
	prometheusAcceptedTransactions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "utxobatch",
			Subsystem: "handler",
			Name:      "accepted_transactions",
			Help:      "Number of transactions accepted into the pool",
		},
	)

	prometheusRejectedTransactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "utxobatch",
			Subsystem: "handler",
			Name:      "rejected_transactions",
			Help:      "Number of rejected transactions by the first reason of rejection",
		},
		[]string{"reason"},
	)
	for _, r := range ledger.RejectReasons {
		prometheusRejectedTransactions.WithLabelValues(ledger.ReasonLabel(r))
	}

	prometheusBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "utxobatch",
			Subsystem: "handler",
			Name:      "batch_size",
			Help:      "Number of candidate transactions per batch",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 16),
		},
	)

	prometheusHandleTxs = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "utxobatch",
			Subsystem: "handler",
			Name:      "handle_txs_seconds",
			Help:      "Duration of processing of one batch",
			Buckets:   prometheus.DefBuckets,
		},
	)

	prometheusPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "utxobatch",
			Subsystem: "handler",
			Name:      "pool_size",
			Help:      "Number of unspent outputs in the pool after the last batch",
		},
	)
}
