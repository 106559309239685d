// internal/platform/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/danishahmed448/berry-coin/internal/application/provision"
	mintdom "github.com/danishahmed448/berry-coin/internal/domain/mint"
)

// Metrics tracks provisioning outcomes per step and per run.
type Metrics struct {
	Registry *prometheus.Registry

	StepsTotal  *prometheus.CounterVec
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
}

var _ provision.Observer = (*Metrics)(nil)

// New registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		StepsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "berry_provision_steps_total",
			Help: "Provisioning steps by step and outcome (ok or error kind)",
		}, []string{"step", "outcome"}),
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "berry_provision_runs_total",
			Help: "Provisioning requests by host and outcome",
		}, []string{"host", "outcome"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "berry_provision_duration_seconds",
			Help:    "Duration of provisioning requests including commit",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"host"}),
	}
}

func (m *Metrics) ObserveStep(step mintdom.Step, err error) {
	m.StepsTotal.WithLabelValues(string(step), outcome(err)).Inc()
}

func (m *Metrics) ObserveResult(host string, err error, seconds float64) {
	m.RunsTotal.WithLabelValues(host, outcome(err)).Inc()
	m.RunDuration.WithLabelValues(host).Observe(seconds)
}

// Push sends the registry to a Prometheus Pushgateway under job.
func (m *Metrics) Push(url, job string) error {
	return push.New(url, job).Gatherer(m.Registry).Push()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(mintdom.KindOf(err))
}
