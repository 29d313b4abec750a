// Package metrics records operational metrics for an orderdocs run behind a
// pluggable Backend. The default backend discards everything, so call sites
// never need to check whether metrics are configured. Concrete backends live
// in prompush (Prometheus Pushgateway) and datadog (DogStatsD).
package metrics

import "time"

// Metric names shared by every backend.
const (
	StepTotal           = "orderdocs_step_total"
	StepDurationSeconds = "orderdocs_step_duration_seconds"
	RecordsTotal        = "orderdocs_records_total"
	BatchesTotal        = "orderdocs_batches_total"
	KPIValue            = "orderdocs_kpi_value"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// SetGauge sets a point-in-time value.
	SetGauge(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) SetGauge(string, float64, Labels)         {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a run step (extract, denormalize,
// build, reset, insert, kpi:<name>) and its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRow increments a record-level counter. Kinds used by the run:
//   - "input_<table>" rows read per input table
//   - "documents"     documents built
//   - "inserted", "insert_failed"
//   - "duplicate_orders", "orphan_items", "orphan_payments"
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RecordsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments the insert batch counter for the given job.
func RecordBatches(job string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}

// RecordKPI publishes a scalar KPI result, e.g. the repeat customer rate.
func RecordKPI(job, kpi string, value float64) {
	backend.SetGauge(KPIValue, value, Labels{
		"job": job,
		"kpi": kpi,
	})
}
