package refresh

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments refresh runs. A nil *Metrics records nothing.
type Metrics struct {
	fetches    *prometheus.CounterVec
	batches    *prometheus.CounterVec
	superseded *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the refresh collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dash",
			Subsystem: "refresh",
			Name:      "fetch_total",
			Help:      "Per-board fetches by target and result.",
		}, []string{"target", "result"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dash",
			Subsystem: "refresh",
			Name:      "batches_total",
			Help:      "Batches started by target.",
		}, []string{"target"}),
		superseded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dash",
			Subsystem: "refresh",
			Name:      "superseded_total",
			Help:      "Runs abandoned because a newer run started.",
		}, []string{"target"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dash",
			Subsystem: "refresh",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of a single board fetch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target"}),
	}
	if reg != nil {
		reg.MustRegister(m.fetches, m.batches, m.superseded, m.duration)
	}
	return m
}

func (m *Metrics) fetched(target, result string, seconds float64) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(target, result).Inc()
	m.duration.WithLabelValues(target).Observe(seconds)
}

func (m *Metrics) batch(target string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(target).Inc()
}

func (m *Metrics) supersede(target string) {
	if m == nil {
		return
	}
	m.superseded.WithLabelValues(target).Inc()
}
