// Package prompush adapts the metrics.Backend interface to a Prometheus
// Pushgateway. Batch jobs have no scrape endpoint to expose, so collected
// metrics are pushed once per run (on Flush) instead.
//
// All Prometheus-specific dependencies live here; the rest of the project
// sees only metrics.Backend and can swap to another system without changes.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"giftetl/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stageCounter  *prometheus.CounterVec // pipeline_stage_total
	stageDuration *prometheus.SummaryVec // pipeline_stage_duration_seconds
	rowCounter    *prometheus.CounterVec // pipeline_rows_total
	validCounter  *prometheus.CounterVec // pipeline_validations_total
}

// NewBackend constructs a backend pushing under the given Pushgateway job.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "giftetl"
	}

	reg := prometheus.NewRegistry()
	stageCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_total",
			Help: "Pipeline stage executions, partitioned by stage and status.",
		},
		[]string{"stage", "status"},
	)
	stageDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "pipeline_stage_duration_seconds",
			Help:       "Pipeline stage durations in seconds, partitioned by stage and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"stage", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_rows_total",
			Help: "Row counts per kind (extracted, cleaned, merged, loaded, dropped).",
		},
		[]string{"kind"},
	)
	validCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_validations_total",
			Help: "Validation gate outcomes, partitioned by validator and status.",
		},
		[]string{"validator", "status"},
	)

	for _, c := range []prometheus.Collector{stageCounter, stageDuration, rowCounter, validCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register: %w", err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		stageCounter:  stageCounter,
		stageDuration: stageDuration,
		rowCounter:    rowCounter,
		validCounter:  validCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "pipeline_stage_total":
		b.stageCounter.WithLabelValues(labels["stage"], labels["status"]).Add(delta)
	case "pipeline_rows_total":
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)
	case "pipeline_validations_total":
		b.validCounter.WithLabelValues(labels["validator"], labels["status"]).Add(delta)
	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "pipeline_stage_duration_seconds" {
		return
	}
	b.stageDuration.WithLabelValues(labels["stage"], labels["status"]).Observe(value)
}

// Flush pushes the registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
