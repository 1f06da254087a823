// Package metrics exports engine counters through Prometheus.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CycleDurationKey is the gauge key the engine stores each cycle's duration
// under, in microseconds.
const CycleDurationKey = "last_cycle_micros"

// Prometheus records engine metric keys as labelled series. Add feeds a
// counter vec, Store a gauge vec, and the cycle duration is also observed in
// a histogram.
type Prometheus struct {
	events    *prometheus.CounterVec
	gauges    *prometheus.GaugeVec
	durations prometheus.Histogram
}

// NewPrometheus registers the rover collectors with reg. A nil reg uses the
// default registerer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Prometheus{
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "rover",
				Name:      "events_total",
				Help:      "Movement engine events by key",
			},
			[]string{"key"},
		),
		gauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "rover",
				Name:      "gauge",
				Help:      "Last stored value of a movement engine gauge by key",
			},
			[]string{"key"},
		),
		durations: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "rover",
				Name:      "cycle_duration_seconds",
				Help:      "Duration of movement cycles in seconds",
				Buckets:   []float64{.0001, .0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
		),
	}
}

func (p *Prometheus) Add(key string, delta uint64) {
	if p == nil {
		return
	}
	p.events.WithLabelValues(sanitize(key)).Add(float64(delta))
}

func (p *Prometheus) Store(key string, value uint64) {
	if p == nil {
		return
	}
	p.gauges.WithLabelValues(sanitize(key)).Set(float64(value))
	if key == CycleDurationKey {
		p.durations.Observe((time.Duration(value) * time.Microsecond).Seconds())
	}
}

func sanitize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
