package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ancestor",
			Subsystem: "engine",
			Name:      "generations_total",
			Help:      "Total generations by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ancestor",
			Subsystem: "engine",
			Name:      "generation_duration_seconds",
			Help:      "Time spent holding the model resource",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"mode"},
	)

	lockWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ancestor",
			Subsystem: "engine",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for the model resource",
			Buckets:   prometheus.DefBuckets,
		},
	)

	lockWaiters = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ancestor",
			Subsystem: "engine",
			Name:      "lock_waiters",
			Help:      "Callers currently waiting for the model resource",
		},
	)

	sessionInitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ancestor",
			Subsystem: "engine",
			Name:      "session_inits_total",
			Help:      "Model session initializations by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(generationsTotal, generationDuration, lockWaitSeconds, lockWaiters, sessionInitsTotal)
}
