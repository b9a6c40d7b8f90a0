package rowform

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder receives edit lifecycle measurements from an [Orchestrator].
type MetricsRecorder interface {
	Transition(from, to State)
	ValidationFailed(fields int)
	SaveFinished(ok bool, elapsed time.Duration)
	PolicyRejected(p Policy)
	ActiveSessions(n int)
}

type noopMetrics struct{}

func (noopMetrics) Transition(State, State)          {}
func (noopMetrics) ValidationFailed(int)             {}
func (noopMetrics) SaveFinished(bool, time.Duration) {}
func (noopMetrics) PolicyRejected(Policy)            {}
func (noopMetrics) ActiveSessions(int)               {}

// PrometheusMetrics records orchestrator activity as Prometheus collectors.
type PrometheusMetrics struct {
	transitions *prometheus.CounterVec
	validation  prometheus.Counter
	saves       *prometheus.CounterVec
	saveTime    prometheus.Histogram
	rejections  *prometheus.CounterVec
	active      prometheus.Gauge
}

// NewPrometheusMetrics creates the collectors under namespace and registers
// them with reg.
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rowform_transitions_total",
			Help:      "Row lifecycle transitions.",
		}, []string{"from", "to"}),
		validation: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rowform_validation_failures_total",
			Help:      "Save attempts rejected by field validation.",
		}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rowform_saves_total",
			Help:      "Completed save calls by result.",
		}, []string{"result"}),
		saveTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rowform_save_duration_seconds",
			Help:      "Time spent in the save function.",
			Buckets:   prometheus.DefBuckets,
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rowform_policy_rejections_total",
			Help:      "Edit requests refused by the concurrency policy.",
		}, []string{"policy"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rowform_active_sessions",
			Help:      "Rows currently open for editing.",
		}),
	}
	for _, c := range []prometheus.Collector{m.transitions, m.validation, m.saves, m.saveTime, m.rejections, m.active} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register rowform metrics: %w", err)
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) Transition(from, to State) {
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (m *PrometheusMetrics) ValidationFailed(int) { m.validation.Inc() }

func (m *PrometheusMetrics) SaveFinished(ok bool, elapsed time.Duration) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.saves.WithLabelValues(result).Inc()
	m.saveTime.Observe(elapsed.Seconds())
}

func (m *PrometheusMetrics) PolicyRejected(p Policy) {
	m.rejections.WithLabelValues(p.String()).Inc()
}

func (m *PrometheusMetrics) ActiveSessions(n int) { m.active.Set(float64(n)) }
