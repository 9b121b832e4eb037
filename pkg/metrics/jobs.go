package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var jobRuns = &Metric{
	ID:          "jobRuns",
	Name:        "job_runs_total",
	Description: "Scheduled processor runs, partitioned by job and outcome (ok, error, skipped).",
	Type:        "counter_vec",
	Args:        []string{"job", "outcome"},
}

var jobDur = &Metric{
	ID:          "jobDur",
	Name:        "job_run_dur_ms",
	Description: "Processor run latency in milliseconds.",
	Type:        "histogram_vec",
	Args:        []string{"job"},
}

var jobItems = &Metric{
	ID:          "jobItems",
	Name:        "job_items_total",
	Description: "Items handled by processor runs, partitioned by job and result counter.",
	Type:        "counter_vec",
	Args:        []string{"job", "result"},
}

var healthGauge = &Metric{
	ID:          "healthGauge",
	Name:        "health_gauge",
	Description: "Latest value of each consistency metric reported by the health monitor.",
	Type:        "gauge_vec",
	Args:        []string{"metric"},
}

// JobMetrics exports processor runs and health monitor values. A nil
// *JobMetrics is valid and records nothing.
type JobMetrics struct {
	runs   *prometheus.CounterVec
	dur    *prometheus.HistogramVec
	items  *prometheus.CounterVec
	health *prometheus.GaugeVec
}

func NewJobMetrics(reg *prometheus.Registry) (*JobMetrics, error) {
	m := &JobMetrics{}
	for _, def := range []*Metric{jobRuns, jobDur, jobItems, healthGauge} {
		c := NewMetric(def, Subsystem)
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register %s: %w", def.Name, err)
		}
		switch def {
		case jobRuns:
			m.runs = c.(*prometheus.CounterVec)
		case jobDur:
			m.dur = c.(*prometheus.HistogramVec)
		case jobItems:
			m.items = c.(*prometheus.CounterVec)
		case healthGauge:
			m.health = c.(*prometheus.GaugeVec)
		}
	}
	return m, nil
}

// ObserveRun records one finished run and adds its counters.
func (m *JobMetrics) ObserveRun(job, outcome string, start time.Time, counts map[string]int64) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job, outcome).Inc()
	m.dur.WithLabelValues(job).Observe(MillisecondsSince(start))
	for k, v := range counts {
		if v > 0 {
			m.items.WithLabelValues(job, k).Add(float64(v))
		}
	}
}

// SetHealth overwrites the gauges with the latest report values.
func (m *JobMetrics) SetHealth(values map[string]float64) {
	if m == nil {
		return
	}
	for k, v := range values {
		m.health.WithLabelValues(k).Set(v)
	}
}
