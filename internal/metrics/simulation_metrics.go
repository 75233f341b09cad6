package metrics

import "github.com/prometheus/client_golang/prometheus"

// Simulation metrics
var (
	SimulationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "simulations_total",
		Help:      "Total number of race simulations by status",
	}, []string{"status"})

	SimulationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "simulation_duration_seconds",
		Help:      "Duration of Monte-Carlo race simulations in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	SimulatedFavouriteWinPct = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "simulated_favourite_win_percentage",
		Help:      "Win percentage of the simulated favourite",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})
)

// RecordSimulation records a simulation run.
func RecordSimulation(status string, durationSeconds, favouriteWinPct float64) {
	SimulationsTotal.WithLabelValues(status).Inc()
	SimulationDuration.Observe(durationSeconds)
	if status == "success" {
		SimulatedFavouriteWinPct.Observe(favouriteWinPct)
	}
}
