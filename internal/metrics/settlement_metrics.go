package metrics

import "github.com/prometheus/client_golang/prometheus"

// Settlement metrics
var (
	BetsSettledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bets_settled_total",
		Help:      "Total number of settled ledger rows by strategy",
	}, []string{"strategy"})

	StrategyRunningTotal = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "strategy_running_total",
		Help:      "Closing running P&L per strategy at the last settlement",
	}, []string{"strategy"})

	SessionRunningTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "session_running_total",
		Help:      "P&L of the current betting session at the last settlement",
	})

	SettlementDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "settlement_duration_seconds",
		Help:      "Duration of settlement runs in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// RecordBetsSettled records settled rows for a strategy.
func RecordBetsSettled(strategy string, count int) {
	BetsSettledTotal.WithLabelValues(strategy).Add(float64(count))
}

// UpdateStrategyRunningTotal sets the closing total of a strategy.
func UpdateStrategyRunningTotal(strategy string, total float64) {
	StrategyRunningTotal.WithLabelValues(strategy).Set(total)
}

// UpdateSessionRunningTotal sets the current session total.
func UpdateSessionRunningTotal(total float64) {
	SessionRunningTotal.Set(total)
}

// RecordSettlementDuration records a settlement run duration.
func RecordSettlementDuration(durationSeconds float64) {
	SettlementDuration.Observe(durationSeconds)
}
