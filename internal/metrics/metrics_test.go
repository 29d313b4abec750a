package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	counters   []call
	histograms []call
	gauges     []call
	flushCount int
}

type call struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters = append(f.counters, call{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histograms = append(f.histograms, call{name, value, labels})
}

func (f *fakeBackend) SetGauge(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gauges = append(f.gauges, call{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func swap(t *testing.T) *fakeBackend {
	t.Helper()
	orig := backend
	t.Cleanup(func() { backend = orig })
	fb := &fakeBackend{}
	backend = fb
	return fb
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	fb := swap(t)

	RecordStep("olist", "extract", nil, 2*time.Second)
	RecordStep("olist", "insert", errors.New("boom"), 1500*time.Millisecond)

	if len(fb.counters) != 2 || len(fb.histograms) != 2 {
		t.Fatalf("calls: counters=%d histograms=%d, want 2/2", len(fb.counters), len(fb.histograms))
	}
	c0 := fb.counters[0]
	if c0.name != StepTotal || c0.value != 1 || c0.labels["step"] != "extract" || c0.labels["status"] != "success" {
		t.Fatalf("counter[0] = %#v", c0)
	}
	if h := fb.histograms[0]; h.name != StepDurationSeconds || h.value < 1.999 || h.value > 2.001 {
		t.Fatalf("hist[0] = %#v; want ~2s", h)
	}
	if got := fb.counters[1].labels["status"]; got != "failure" {
		t.Fatalf("counter[1] status = %q, want failure", got)
	}
}

func TestRecordRowBatchesAndKPI(t *testing.T) {
	fb := swap(t)

	RecordRow("olist", "inserted", 3)
	RecordRow("olist", "inserted", 0) // ignored
	RecordBatches("olist", 2)
	RecordBatches("olist", -1) // ignored
	RecordKPI("olist", "repeat_customer_rate_pct", 3.1)

	if len(fb.counters) != 2 {
		t.Fatalf("counter calls = %d, want 2", len(fb.counters))
	}
	if c := fb.counters[0]; c.name != RecordsTotal || c.value != 3 || c.labels["kind"] != "inserted" {
		t.Fatalf("counter[0] = %#v", c)
	}
	if c := fb.counters[1]; c.name != BatchesTotal || c.value != 2 || c.labels["job"] != "olist" {
		t.Fatalf("counter[1] = %#v", c)
	}
	if len(fb.gauges) != 1 || fb.gauges[0].name != KPIValue || fb.gauges[0].labels["kpi"] != "repeat_customer_rate_pct" {
		t.Fatalf("gauges = %#v", fb.gauges)
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)
	if backend != fb {
		t.Fatal("SetBackend did not replace global backend")
	}
	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("flushCount = %d, want 1", fb.flushCount)
	}

	SetBackend(nil)
	if backend != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}
