package prompush

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"orderdocs/internal/metrics"
)

func TestNewBackend(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend("job", ""); err == nil {
		t.Fatalf("NewBackend without URL: want error")
	}
	b, err := NewBackend("", "http://localhost:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.jobName != "orderdocs" {
		t.Fatalf("jobName = %q, want default orderdocs", b.jobName)
	}
}

func TestBackendCollectors(t *testing.T) {
	t.Parallel()

	b, err := NewBackend("olist", "http://localhost:9091")
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}

	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "extract", "status": "success"})
	b.IncCounter(metrics.StepTotal, 2, metrics.Labels{"step": "extract", "status": "success"})
	b.IncCounter(metrics.RecordsTotal, 7, metrics.Labels{"kind": "inserted"})
	b.IncCounter(metrics.BatchesTotal, 3, nil)
	b.IncCounter("unknown_metric", 100, nil)
	b.ObserveHistogram(metrics.StepDurationSeconds, 0.5, metrics.Labels{"step": "insert", "status": "success"})
	b.SetGauge(metrics.KPIValue, 3.1, metrics.Labels{"kpi": "repeat_customer_rate_pct"})

	if got := testutil.ToFloat64(b.stepCounter.WithLabelValues("extract", "success")); got != 3 {
		t.Fatalf("step counter = %v, want 3", got)
	}
	if got := testutil.ToFloat64(b.recordCounter.WithLabelValues("inserted")); got != 7 {
		t.Fatalf("record counter = %v, want 7", got)
	}
	if got := testutil.ToFloat64(b.batchCounter); got != 3 {
		t.Fatalf("batch counter = %v, want 3", got)
	}
	if got := testutil.ToFloat64(b.kpiGauge.WithLabelValues("repeat_customer_rate_pct")); got != 3.1 {
		t.Fatalf("kpi gauge = %v, want 3.1", got)
	}
	if n := testutil.CollectAndCount(b.stepDuration); n != 1 {
		t.Fatalf("summary series = %d, want 1", n)
	}
}

func TestFlushPushesToGateway(t *testing.T) {
	t.Parallel()

	var hits int32
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		path.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("olist", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	b.IncCounter(metrics.BatchesTotal, 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("gateway hits = %d, want 1", hits)
	}
	if p, _ := path.Load().(string); !strings.Contains(p, "/job/olist") {
		t.Fatalf("push path = %q, want /metrics/job/olist", p)
	}
}

func TestFlushWrapsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("olist", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if err := b.Flush(); err == nil || !strings.Contains(err.Error(), "prompush") {
		t.Fatalf("Flush err = %v, want prompush error", err)
	}
}
