// Package metrics is a small, backend-agnostic layer for recording
// operational metrics from pipeline runs.
//
// The pipeline depends only on Recorder; concrete systems (Prometheus
// Pushgateway, Datadog) live in subpackages behind the Backend interface. A
// Recorder with a nil backend is valid and records nothing, so
// instrumentation is always safe to call.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface a metrics system must provide.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a duration-style observation.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics if the backend needs it.
	Flush() error
}

// Recorder is the handle passed through the pipeline. It is explicitly
// constructed per run, never ambient state.
type Recorder struct {
	job     string
	backend Backend
}

// NewRecorder binds a backend to a job label. backend may be nil.
func NewRecorder(job string, backend Backend) *Recorder {
	return &Recorder{job: job, backend: backend}
}

// Nop returns a recorder that records nothing.
func Nop() *Recorder { return &Recorder{} }

// Stage records one pipeline stage execution: a counter partitioned by
// stage and status plus its duration.
func (r *Recorder) Stage(stage string, err error, d time.Duration) {
	if r == nil || r.backend == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": r.job, "stage": stage, "status": status}
	r.backend.IncCounter("pipeline_stage_total", 1, lbls)
	r.backend.ObserveHistogram("pipeline_stage_duration_seconds", d.Seconds(), lbls)
}

// Rows records a row-level count for the given kind, e.g. "extracted",
// "cleaned", "merged", "loaded", "dropped".
func (r *Recorder) Rows(kind string, n int64) {
	if r == nil || r.backend == nil || n <= 0 {
		return
	}
	r.backend.IncCounter("pipeline_rows_total", float64(n), Labels{"job": r.job, "kind": kind})
}

// Validation records a validation gate outcome.
func (r *Recorder) Validation(validator string, passed bool) {
	if r == nil || r.backend == nil {
		return
	}
	status := "pass"
	if !passed {
		status = "fail"
	}
	r.backend.IncCounter("pipeline_validations_total", 1,
		Labels{"job": r.job, "validator": validator, "status": status})
}

// Flush delegates to the backend.
func (r *Recorder) Flush() error {
	if r == nil || r.backend == nil {
		return nil
	}
	return r.backend.Flush()
}
