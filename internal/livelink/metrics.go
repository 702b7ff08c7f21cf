package livelink

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "facecap_livelink"

// Metrics is a prometheus.Collector for receiver activity. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	datagrams    prometheus.Counter
	datagramSize prometheus.Histogram
	decodeErrors *prometheus.CounterVec
	readErrors   prometheus.Counter
	listening    prometheus.Gauge
}

// NewMetrics returns a new Metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		datagrams: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "datagrams_total",
				Help:      "Datagrams read from the UDP socket.",
			},
		),
		datagramSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "datagram_bytes",
				Help:      "Size of datagrams read from the UDP socket.",
				Buckets:   []float64{64, 128, 256, 512, 1024, 4096},
			},
		),
		decodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "decode_errors_total",
				Help:      "Datagrams dropped because they could not be decoded.",
			}, []string{"reason"},
		),
		readErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "read_errors_total",
				Help:      "Non-timeout socket read errors.",
			},
		),
		listening: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "listening",
				Help:      "1 while a receiver is listening.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.datagrams.Describe(ch)
	m.datagramSize.Describe(ch)
	m.decodeErrors.Describe(ch)
	m.readErrors.Describe(ch)
	m.listening.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.datagrams.Collect(ch)
	m.datagramSize.Collect(ch)
	m.decodeErrors.Collect(ch)
	m.readErrors.Collect(ch)
	m.listening.Collect(ch)
}

func (m *Metrics) datagram(n int) {
	if m == nil {
		return
	}
	m.datagrams.Inc()
	m.datagramSize.Observe(float64(n))
}

func (m *Metrics) decodeError(reason string) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(reason).Inc()
}

func (m *Metrics) readError() {
	if m == nil {
		return
	}
	m.readErrors.Inc()
}

func (m *Metrics) setListening(on bool) {
	if m == nil {
		return
	}
	if on {
		m.listening.Set(1)
	} else {
		m.listening.Set(0)
	}
}
