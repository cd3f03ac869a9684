package relay

import "github.com/prometheus/client_golang/prometheus"

var (
	exchangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lmrelay",
			Subsystem: "relay",
			Name:      "exchanges_total",
			Help:      "Relay exchanges by outcome",
		},
		[]string{"outcome"},
	)

	deltasTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lmrelay",
			Subsystem: "relay",
			Name:      "deltas_total",
			Help:      "Content deltas forwarded to clients",
		},
	)

	persistFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lmrelay",
			Subsystem: "relay",
			Name:      "persist_failures_total",
			Help:      "Failed writes of chat turns",
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(exchangesTotal, deltasTotal, persistFailures)
}
