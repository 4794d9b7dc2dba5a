package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stressBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kiln",
		Subsystem: "stress",
		Name:      "batches_total",
		Help:      "Count of batches submitted by the load generator.",
	}, []string{"status"})
	stressBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kiln",
		Subsystem: "stress",
		Name:      "batch_duration_seconds",
		Help:      "Latency of load generator batches.",
		Buckets:   prometheus.DefBuckets,
	})
	stressInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "kiln",
		Subsystem: "stress",
		Name:      "in_flight",
		Help:      "Batches currently being processed by the load generator.",
	})
)

// Stress tracks metrics for the load generator.
type Stress struct{}

// NewStress creates a Stress metrics collector.
func NewStress() *Stress {
	return &Stress{}
}

// Begin marks a batch as in flight and returns the function that completes it.
func (m Stress) Begin() func(err error) {
	started := time.Now()
	stressInFlight.Inc()
	return func(err error) {
		stressInFlight.Dec()
		status, _ := classify(err)
		stressBatchesTotal.WithLabelValues(status).Inc()
		stressBatchDuration.Observe(time.Since(started).Seconds())
	}
}
