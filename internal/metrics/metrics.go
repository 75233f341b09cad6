// Package metrics provides centralized Prometheus metrics registry for the racing form service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "racing_form"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	RaceFormsBuiltTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "race_forms_built_total",
		Help:      "Total number of race form requests by status",
	}, []string{"status"})
	FormRowsProcessedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "form_rows_processed_total",
		Help:      "Total number of performance rows run through the feature pipeline",
	})
	CacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Total number of cache lookups by cache and result",
	}, []string{"cache", "result"})
	SelectionsStoredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "selections_stored_total",
		Help:      "Total number of betting selections stored",
	})
	ScheduledJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduled_jobs_total",
		Help:      "Total number of scheduled job runs by job and status",
	}, []string{"job", "status"})
)

// Histogram metrics
var (
	PipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_duration_seconds",
		Help:      "Duration of the feature pipeline for one race in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(RaceFormsBuiltTotal)
		registry.MustRegister(FormRowsProcessedTotal)
		registry.MustRegister(CacheLookupsTotal)
		registry.MustRegister(SelectionsStoredTotal)
		registry.MustRegister(ScheduledJobsTotal)
		registry.MustRegister(PipelineDuration)

		// Register simulation metrics
		registry.MustRegister(SimulationsTotal)
		registry.MustRegister(SimulationDuration)
		registry.MustRegister(SimulatedFavouriteWinPct)

		// Register settlement metrics
		registry.MustRegister(BetsSettledTotal)
		registry.MustRegister(StrategyRunningTotal)
		registry.MustRegister(SessionRunningTotal)
		registry.MustRegister(SettlementDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordRaceForm records a race form request and its pipeline duration.
func RecordRaceForm(status string, rows int, durationSeconds float64) {
	RaceFormsBuiltTotal.WithLabelValues(status).Inc()
	FormRowsProcessedTotal.Add(float64(rows))
	PipelineDuration.Observe(durationSeconds)
}

// RecordCacheLookup records a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// RecordSelectionsStored records stored betting selections.
func RecordSelectionsStored(count int) {
	SelectionsStoredTotal.Add(float64(count))
}

// RecordScheduledJob records a scheduled job run.
func RecordScheduledJob(job, status string) {
	ScheduledJobsTotal.WithLabelValues(job, status).Inc()
}
