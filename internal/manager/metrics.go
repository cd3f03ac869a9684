package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	lifecycleTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lmrelay",
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Completed lifecycle transitions by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	lifecycleProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lmrelay",
			Subsystem: "lifecycle",
			Name:      "progress",
			Help:      "Progress of the current load (0-100)",
		},
	)

	warmupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lmrelay",
			Subsystem: "lifecycle",
			Name:      "warmup_duration_seconds",
			Help:      "Duration of backend warmup calls",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
)

func init() {
	prometheus.MustRegister(lifecycleTransitions, lifecycleProgress, warmupDuration)
}
