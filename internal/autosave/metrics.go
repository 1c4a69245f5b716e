package autosave

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is shared by every coordinator in the process. A nil *Metrics
// records nothing.
type Metrics struct {
	saves    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		saves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "universe",
			Subsystem: "autosave",
			Name:      "saves_total",
			Help:      "Autosave attempts by outcome.",
		}, []string{"outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "universe",
			Subsystem: "autosave",
			Name:      "save_duration_seconds",
			Help:      "Latency of draft service calls made by autosave.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"op"}),
	}
}

func (m *Metrics) countOutcome(outcome Outcome) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) observeCall(op string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}
