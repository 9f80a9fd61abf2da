package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FeedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_pool_feed_requests_total",
			Help: "Feed requests by competition code and outcome",
		},
		[]string{"code", "outcome"},
	)

	FeedRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prediction_pool_feed_request_duration_seconds",
			Help:    "Duration of feed requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"code"},
	)

	SyncCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_pool_sync_cycles_total",
			Help: "Sync cycles by trigger and status",
		},
		[]string{"trigger", "status"},
	)

	SyncCycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prediction_pool_sync_cycle_duration_seconds",
			Help:    "Duration of sync cycles in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"trigger"},
	)

	MatchUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prediction_pool_match_updates_total",
			Help: "Match diffs persisted by the batched writer",
		},
	)

	ReconcileDiagnosticsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_pool_reconcile_diagnostics_total",
			Help: "Reconciler diagnostics by kind",
		},
		[]string{"kind"},
	)

	PredictionsScoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prediction_pool_predictions_scored_total",
			Help: "Predictions awarded points",
		},
	)

	SyncTicksDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prediction_pool_sync_ticks_dropped_total",
			Help: "Scheduler ticks dropped because a cycle was already running",
		},
	)

	CircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "prediction_pool_circuit_state",
			Help: "Circuit breaker state per dependency: 0 closed, 0.5 half open, 1 open",
		},
		[]string{"dependency"},
	)

	CircuitTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_pool_circuit_transitions_total",
			Help: "Circuit breaker state changes by dependency and target state",
		},
		[]string{"dependency", "to"},
	)

	CircuitRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_pool_circuit_rejections_total",
			Help: "Calls refused by an open circuit breaker",
		},
		[]string{"dependency"},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_pool_cache_lookups_total",
			Help: "Local cache lookups by cache name and result",
		},
		[]string{"cache", "result"},
	)

	LastSuccessfulSync = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "prediction_pool_last_successful_sync_timestamp",
			Help: "Unix timestamp of the last successful sync cycle",
		},
	)
)

func RecordFeedRequest(code, outcome string, duration time.Duration) {
	if code == "" {
		code = "all"
	}
	FeedRequestsTotal.WithLabelValues(code, outcome).Inc()
	FeedRequestDuration.WithLabelValues(code).Observe(duration.Seconds())
}

// RecordSyncCycle records one finished cycle. status is a syncrun status value.
func RecordSyncCycle(trigger, status string, duration time.Duration, finishedAt time.Time) {
	SyncCyclesTotal.WithLabelValues(trigger, status).Inc()
	SyncCycleDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	if status == "succeeded" {
		LastSuccessfulSync.Set(float64(finishedAt.Unix()))
	}
}

func RecordMatchUpdates(n int) {
	if n > 0 {
		MatchUpdatesTotal.Add(float64(n))
	}
}

func RecordDiagnostic(kind string) {
	ReconcileDiagnosticsTotal.WithLabelValues(kind).Inc()
}

func RecordPredictionsScored(n int) {
	if n > 0 {
		PredictionsScoredTotal.Add(float64(n))
	}
}

func RecordDroppedTick() {
	SyncTicksDroppedTotal.Inc()
}

func SetCircuitState(dependency string, value float64) {
	CircuitState.WithLabelValues(dependency).Set(value)
}

func RecordCircuitTransition(dependency, to string, value float64) {
	CircuitTransitionsTotal.WithLabelValues(dependency, to).Inc()
	CircuitState.WithLabelValues(dependency).Set(value)
}

func RecordCircuitRejection(dependency string) {
	CircuitRejectionsTotal.WithLabelValues(dependency).Inc()
}

func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(cache, result).Inc()
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
