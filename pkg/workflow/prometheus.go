package workflow

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusObserver exports run and step metrics to a Prometheus
// registry. Combine it with other observers via NewCompositeObserver.
type PrometheusObserver struct {
	runsStarted  prometheus.Counter
	runsFinished *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	stepFailures *prometheus.CounterVec
}

// NewPrometheusObserver registers the engine's metrics with reg. Pass
// prometheus.DefaultRegisterer to use the process-global registry. It
// panics when a metric with the same name is already registered, as
// promauto does.
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	factory := promauto.With(reg)
	return &PrometheusObserver{
		runsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "stepflow_runs_started_total",
			Help: "Total workflow runs started.",
		}),
		runsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stepflow_runs_finished_total",
			Help: "Total workflow runs finished, by terminal status.",
		}, []string{"workflow", "status"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stepflow_step_duration_seconds",
			Help:    "Leaf step execution time in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
		stepFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "stepflow_step_failures_total",
			Help: "Total leaf step soft failures.",
		}, []string{"step"}),
	}
}

func (p *PrometheusObserver) OnRunStarted(ctx context.Context, runID, workflowName string) {
	p.runsStarted.Inc()
}

func (p *PrometheusObserver) OnRunCompleted(ctx context.Context, runID, workflowName string, status RunStatus, d time.Duration) {
	p.runsFinished.WithLabelValues(workflowName, string(status)).Inc()
}

func (p *PrometheusObserver) OnStepStarted(ctx context.Context, runID, stepName string, idx StepIndex) {
}

func (p *PrometheusObserver) OnStepCompleted(ctx context.Context, runID, stepName string, idx StepIndex, out StepOutput, d time.Duration) {
	p.stepDuration.WithLabelValues(stepName).Observe(d.Seconds())
	if !out.Success {
		p.stepFailures.WithLabelValues(stepName).Inc()
	}
}
