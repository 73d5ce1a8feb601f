package broadcaster

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	sampled prometheus.Counter
	sent    prometheus.Counter
	failed  prometheus.Counter
	parked  prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		sampled: f.NewCounter(prometheus.CounterOpts{
			Namespace: "seqcell",
			Subsystem: "broadcaster",
			Name:      "sampled_total",
			Help:      "New quote versions staged in the outbox.",
		}),
		sent: f.NewCounter(prometheus.CounterOpts{
			Namespace: "seqcell",
			Subsystem: "broadcaster",
			Name:      "sent_total",
			Help:      "Quotes acknowledged by the sink.",
		}),
		failed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "seqcell",
			Subsystem: "broadcaster",
			Name:      "send_failures_total",
			Help:      "Failed sink sends; each is retried on a later tick.",
		}),
		parked: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "seqcell",
			Subsystem: "broadcaster",
			Name:      "parked_records",
			Help:      "FAILED records past the retry limit, no longer sent.",
		}),
	}
}
