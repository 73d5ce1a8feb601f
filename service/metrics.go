package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type feedMetrics struct {
	published prometheus.Counter
	rejected  prometheus.Counter
	lastSeq   prometheus.Gauge
}

// newFeedMetrics registers on reg; a nil reg leaves them unregistered.
func newFeedMetrics(reg prometheus.Registerer, symbol string) *feedMetrics {
	f := promauto.With(reg)
	labels := prometheus.Labels{"symbol": symbol}
	return &feedMetrics{
		published: f.NewCounter(prometheus.CounterOpts{
			Namespace:   "seqcell",
			Subsystem:   "feed",
			Name:        "published_total",
			Help:        "Quotes written to the cell.",
			ConstLabels: labels,
		}),
		rejected: f.NewCounter(prometheus.CounterOpts{
			Namespace:   "seqcell",
			Subsystem:   "feed",
			Name:        "rejected_total",
			Help:        "Quotes dropped because they failed validation.",
			ConstLabels: labels,
		}),
		lastSeq: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   "seqcell",
			Subsystem:   "feed",
			Name:        "last_sequence",
			Help:        "Sequence of the most recently published quote.",
			ConstLabels: labels,
		}),
	}
}
