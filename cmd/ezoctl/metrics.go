package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/go-ezo/ezo"
)

const metricsNamespace = "ezo"

// watchMetrics are the Prometheus collectors exported by "watch".
type watchMetrics struct {
	value      prometheus.Gauge
	readErrors prometheus.Counter
}

// newWatchMetrics registers the reading collectors and the session counters of
// sm with reg.
func newWatchMetrics(reg prometheus.Registerer, sm *ezo.SessionMetrics, labels prometheus.Labels) (*watchMetrics, error) {
	m := &watchMetrics{
		value: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "reading_value",
			Help:        "Last value reported by the circuit",
			ConstLabels: labels,
		}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Name:        "reading_errors_total",
			Help:        "Total number of failed readings",
			ConstLabels: labels,
		}),
	}

	counter := func(name, help string, fn func() float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   "session",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, fn)
	}

	collectors := []prometheus.Collector{
		m.value,
		m.readErrors,
		counter("commands_total", "Total number of commands written", func() float64 {
			return float64(sm.CommandCount.Load())
		}),
		counter("responses_total", "Total number of response frames decoded", func() float64 {
			return float64(sm.ResponseCount.Load())
		}),
		counter("rejected_total", "Total number of responses with a non-success status", func() float64 {
			return float64(sm.RejectedCount.Load())
		}),
		counter("decode_errors_total", "Total number of frames that failed to decode", func() float64 {
			return float64(sm.DecodeErrCount.Load())
		}),
		counter("transport_errors_total", "Total number of failed transport reads and writes", func() float64 {
			return float64(sm.TransportErrCount.Load())
		}),
		counter("settle_seconds_total", "Total time spent waiting for the circuit to process commands", func() float64 {
			return sm.SettleTime().Seconds()
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Subsystem:   "session",
			Name:        "inflight",
			Help:        "1 while a command is being processed",
			ConstLabels: labels,
		}, func() float64 {
			return float64(sm.InflightGauge.Load())
		}),
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *watchMetrics) observe(v float64, err error) {
	if err != nil {
		m.readErrors.Inc()
		return
	}
	m.value.Set(v)
}
