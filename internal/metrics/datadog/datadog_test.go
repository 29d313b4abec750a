package datadog

import (
	"reflect"
	"testing"

	"github.com/DataDog/datadog-go/v5/statsd"

	"orderdocs/internal/metrics"
)

type sent struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	*statsd.NoOpClient
	sent   []sent
	closed bool
}

func (f *fakeClient) Count(name string, value int64, tags []string, _ float64) error {
	f.sent = append(f.sent, sent{"count", name, float64(value), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, _ float64) error {
	f.sent = append(f.sent, sent{"histogram", name, value, tags})
	return nil
}

func (f *fakeClient) Gauge(name string, value float64, tags []string, _ float64) error {
	f.sent = append(f.sent, sent{"gauge", name, value, tags})
	return nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestNewBackendRequiresAddr(t *testing.T) {
	if _, err := NewBackend(Config{}); err == nil {
		t.Fatalf("NewBackend without Addr: want error")
	}
}

func TestBackendForwardsWithTags(t *testing.T) {
	fc := &fakeClient{NoOpClient: &statsd.NoOpClient{}}
	b := &Backend{client: fc}

	b.IncCounter(metrics.RecordsTotal, 4.9, metrics.Labels{"kind": "inserted", "job": "olist"})
	b.ObserveHistogram(metrics.StepDurationSeconds, 1.5, metrics.Labels{"step": "kpi"})
	b.SetGauge(metrics.KPIValue, 12.5, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := []sent{
		{"count", metrics.RecordsTotal, 4, []string{"job:olist", "kind:inserted"}},
		{"histogram", metrics.StepDurationSeconds, 1.5, []string{"step:kpi"}},
		{"gauge", metrics.KPIValue, 12.5, nil},
	}
	if !reflect.DeepEqual(fc.sent, want) {
		t.Fatalf("sent = %#v\nwant %#v", fc.sent, want)
	}
	if !fc.closed {
		t.Fatalf("Flush did not close the client")
	}
}
