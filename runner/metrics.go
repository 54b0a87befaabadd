package runner

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

//Unit kinds, for the metric labels.
const (
	kindMonopole = "monopole"
	kindScan     = "scan"
)

type metrics struct {
	reg      *prometheus.Registry
	units    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics() *metrics {
	m := &metrics{
		reg: prometheus.NewRegistry(),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "disloc_units_total",
			Help: "Calculation units run, by kind and final status.",
		}, []string{"kind", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "disloc_unit_seconds",
			Help:    "Wall time of the calculation units.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"kind"}),
	}
	m.reg.MustRegister(m.units, m.duration)
	return m
}

func (m *metrics) observe(kind, status string, start time.Time) {
	m.units.WithLabelValues(kind, status).Inc()
	m.duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

//write writes the metrics in the text exposition format, for the node exporter
//textfile collector.
func (m *metrics) write(name string) error {
	if name == "" {
		return nil
	}
	return prometheus.WriteToTextfile(name, m.reg)
}
