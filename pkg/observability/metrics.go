package observability

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for arbor_task_executions_total.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Metrics holds the executor collectors.
type Metrics struct {
	Executions *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Forks      prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_task_executions_total",
				Help: "Total number of task executions by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arbor_task_duration_seconds",
				Help:    "Duration of task executions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action"},
		),
		Forks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "arbor_forks_total",
				Help: "Total number of state clones handed to child tasks",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.Executions, m.Duration, m.Forks} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTaskLeave: func(ctx context.Context, e *domain.TaskEvent) {
			m.Executions.WithLabelValues(e.Action, OutcomeSuccess).Inc()
			m.Duration.WithLabelValues(e.Action).Observe(e.Duration.Seconds())
		},
		OnTaskError: func(ctx context.Context, e *domain.TaskEvent) {
			m.Executions.WithLabelValues(e.Action, OutcomeError).Inc()
			m.Duration.WithLabelValues(e.Action).Observe(e.Duration.Seconds())
		},
		OnTaskSkip: func(ctx context.Context, e *domain.TaskEvent) {
			m.Executions.WithLabelValues(e.Action, OutcomeSkipped).Inc()
		},
		OnFork: func(ctx context.Context, e *domain.ForkEvent) {
			m.Forks.Inc()
		},
	}
}
