package capture

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "facecap_capture"

// Metrics is a prometheus.Collector for the consumer loop and recording.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ticks            prometheus.Counter
	framesApplied    prometheus.Counter
	channelsSet      prometheus.Counter
	keyframes        *prometheus.CounterVec
	keyframesRemoved prometheus.Counter
	running          prometheus.Gauge
	targets          prometheus.Gauge
}

// NewMetrics returns a new Metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ticks_total",
			Help:      "Consumer loop invocations.",
		}),
		framesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_applied_total",
			Help:      "Ticks that applied a newly received frame.",
		}),
		channelsSet: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "channels_applied_total",
			Help:      "Channel values written to targets.",
		}),
		keyframes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "keyframes_inserted_total",
			Help:      "Keyframes inserted, by recording mode.",
		}, []string{"mode"}),
		keyframesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "keyframes_removed_total",
			Help:      "Keyframes removed by cleanup and delete operations.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "running",
			Help:      "1 while the session is capturing.",
		}),
		targets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "targets",
			Help:      "Bound targets.",
		}),
	}
}

// Describe is part of the prometheus.Collector interface.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.ticks.Describe(ch)
	m.framesApplied.Describe(ch)
	m.channelsSet.Describe(ch)
	m.keyframes.Describe(ch)
	m.keyframesRemoved.Describe(ch)
	m.running.Describe(ch)
	m.targets.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.ticks.Collect(ch)
	m.framesApplied.Collect(ch)
	m.channelsSet.Collect(ch)
	m.keyframes.Collect(ch)
	m.keyframesRemoved.Collect(ch)
	m.running.Collect(ch)
	m.targets.Collect(ch)
}

func (m *Metrics) tick(fresh bool, applied int) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	if fresh {
		m.framesApplied.Inc()
	}
	m.channelsSet.Add(float64(applied))
}

func (m *Metrics) inserted(mode string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.keyframes.WithLabelValues(mode).Add(float64(n))
}

func (m *Metrics) removed(n int) {
	if m == nil || n == 0 {
		return
	}
	m.keyframesRemoved.Add(float64(n))
}

func (m *Metrics) setRunning(on bool) {
	if m == nil {
		return
	}
	if on {
		m.running.Set(1)
	} else {
		m.running.Set(0)
	}
}

func (m *Metrics) setTargets(n int) {
	if m == nil {
		return
	}
	m.targets.Set(float64(n))
}
