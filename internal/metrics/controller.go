package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/kiln/internal/furnace"
)

var (
	controllerOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kiln",
		Subsystem: "controller",
		Name:      "operations_total",
		Help:      "Count of furnace controller operations.",
	}, []string{"operation", "status", "code"})
	controllerOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kiln",
		Subsystem: "controller",
		Name:      "operation_duration_seconds",
		Help:      "Duration of furnace controller operations.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"operation", "status"})
	controllerBlocksSinteredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kiln",
		Subsystem: "controller",
		Name:      "blocks_sintered_total",
		Help:      "Count of blocks committed to the ledger.",
	})
	controllerSinterPressure = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kiln",
		Subsystem: "controller",
		Name:      "sinter_pressure_psi",
		Help:      "Pressure applied by accepted sinters.",
		Buckets:   []float64{90, 100, 120, 150, 180, 210, 255},
	})
)

// Controller tracks metrics for furnace controller operations.
// It implements furnace.Metrics.
type Controller struct{}

var _ furnace.Metrics = Controller{}

// NewController creates a Controller metrics collector.
func NewController() *Controller {
	return &Controller{}
}

// ObserveOperation records the outcome and duration of one operation.
//
// Status is "success", "rejected" for typed rejections or "error" for
// infrastructure failures. Code carries the rejection code, "none" otherwise.
func (m Controller) ObserveOperation(op string, err error, started time.Time) {
	status, code := classify(err)

	controllerOperationsTotal.WithLabelValues(op, status, code).Inc()
	controllerOperationDuration.WithLabelValues(op, status).Observe(time.Since(started).Seconds())
}

// ObserveSintered records an accepted sinter.
func (m Controller) ObserveSintered(pressure uint64) {
	controllerBlocksSinteredTotal.Inc()
	controllerSinterPressure.Observe(float64(pressure))
}

func classify(err error) (status, code string) {
	switch {
	case err == nil:
		return "success", "none"
	case furnace.IsRejection(err):
		return "rejected", string(furnace.CodeOf(err))
	default:
		return "error", "none"
	}
}
