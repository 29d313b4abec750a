package kpi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"orderdocs/internal/document"
	"orderdocs/internal/metrics"
	"orderdocs/internal/pipeline"
)

// ErrUnknownKPI is returned by Engine.ByName.
var ErrUnknownKPI = errors.New("unknown kpi")

// Source yields every stored document. Implementations must not mutate the
// collection.
type Source interface {
	Scan(ctx context.Context, fn func(document.Document) error) error
}

// CategoryRevenue is one row of revenue_by_category.
type CategoryRevenue struct {
	Category     string  `json:"category"`
	TotalRevenue float64 `json:"total_revenue"`
	ItemsCount   int64   `json:"items_count"`
}

// StateRevenue is one row of revenue_by_state. State is nil for customers
// without a known state.
type StateRevenue struct {
	State        *string `json:"state"`
	TotalRevenue float64 `json:"total_revenue"`
	ItemsCount   int64   `json:"items_count"`
}

// DeliveryDelay is the average of delivered minus estimated date, in days.
type DeliveryDelay struct {
	AvgDelayDays float64 `json:"avg_delay"`
	Orders       int64   `json:"orders"`
}

// RepeatCustomerRate is the percentage of customer ids with 2+ orders.
type RepeatCustomerRate struct {
	RatePct         float64 `json:"repeat_customer_rate_pct"`
	TotalCustomers  int64   `json:"total_customers"`
	RepeatCustomers int64   `json:"repeat_customers"`
}

// PaymentShare is one row of payment_mix.
type PaymentShare struct {
	PaymentType *string `json:"payment_type"`
	Count       int64   `json:"count"`
	TotalValue  float64 `json:"total_value"`
	Percentage  float64 `json:"percentage"`
}

// Report holds every KPI of one run.
type Report struct {
	RunID              string              `json:"run_id"`
	GeneratedAt        time.Time           `json:"generated_at"`
	RevenueByCategory  []CategoryRevenue   `json:"revenue_by_category"`
	RevenueByState     []StateRevenue      `json:"revenue_by_state"`
	AvgDeliveryDelay   *DeliveryDelay      `json:"avg_delivery_delay"`
	RepeatCustomerRate *RepeatCustomerRate `json:"repeat_customer_rate"`
	PaymentMix         []PaymentShare      `json:"payment_mix"`
}

// Options tunes Engine.All.
type Options struct {
	// Limit caps both revenue rankings; 0 means DefaultLimit.
	Limit int
	// Workers bounds how many KPIs run at once; 0 or 1 runs them in order.
	Workers int
	RunID   string
}

// Engine evaluates KPI pipelines against a Source.
type Engine struct {
	src Source

	// Job labels metrics.
	Job string
	// Verbose logs per-stage counts.
	Verbose bool

	now func() time.Time
}

// NewEngine returns an Engine reading from src.
func NewEngine(src Source) *Engine {
	return &Engine{src: src, now: time.Now}
}

// Run executes p over a fresh snapshot of the collection.
func (e *Engine) Run(ctx context.Context, p pipeline.Pipeline) ([]pipeline.Doc, error) {
	start := time.Now()
	out, err := e.run(ctx, p)
	metrics.RecordStep(e.Job, "kpi:"+p.Name, err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("kpi %s: %w", p.Name, err)
	}
	if e.Verbose {
		log.Printf("kpi: name=%s rows=%d elapsed=%s", p.Name, len(out), time.Since(start).Truncate(time.Millisecond))
	}
	return out, nil
}

func (e *Engine) run(ctx context.Context, p pipeline.Pipeline) ([]pipeline.Doc, error) {
	var docs []pipeline.Doc
	err := e.src.Scan(ctx, func(d document.Document) error {
		docs = append(docs, d.Fields())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	ex := pipeline.Executor{Verbose: e.Verbose}
	return ex.Run(ctx, p.Stages, docs)
}

// RevenueByCategory returns the top categories by revenue.
func (e *Engine) RevenueByCategory(ctx context.Context, limit int) ([]CategoryRevenue, error) {
	out, err := e.Run(ctx, RevenueByCategoryPipeline(orDefault(limit)))
	if err != nil {
		return nil, err
	}
	res := make([]CategoryRevenue, 0, len(out))
	for _, d := range out {
		res = append(res, CategoryRevenue{
			Category:     str(d["_id"]),
			TotalRevenue: num(d["total_revenue"]),
			ItemsCount:   count(d["items_count"]),
		})
	}
	return res, nil
}

// RevenueByState returns the top customer states by revenue.
func (e *Engine) RevenueByState(ctx context.Context, limit int) ([]StateRevenue, error) {
	out, err := e.Run(ctx, RevenueByStatePipeline(orDefault(limit)))
	if err != nil {
		return nil, err
	}
	res := make([]StateRevenue, 0, len(out))
	for _, d := range out {
		row := StateRevenue{
			TotalRevenue: num(d["total_revenue"]),
			ItemsCount:   count(d["items_count"]),
		}
		row.State = strPtr(d["_id"])
		res = append(res, row)
	}
	return res, nil
}

// AvgDeliveryDelay returns nil when no order has both delivery dates.
func (e *Engine) AvgDeliveryDelay(ctx context.Context) (*DeliveryDelay, error) {
	out, err := e.Run(ctx, AvgDeliveryDelayPipeline())
	if err != nil || len(out) == 0 || out[0]["avg_delay"] == nil {
		return nil, err
	}
	return &DeliveryDelay{AvgDelayDays: num(out[0]["avg_delay"]), Orders: count(out[0]["orders"])}, nil
}

// RepeatCustomerRate returns nil when there are no customers.
func (e *Engine) RepeatCustomerRate(ctx context.Context) (*RepeatCustomerRate, error) {
	out, err := e.Run(ctx, RepeatCustomerRatePipeline())
	if err != nil || len(out) == 0 || out[0]["repeat_customer_rate_pct"] == nil {
		return nil, err
	}
	return &RepeatCustomerRate{
		RatePct:         num(out[0]["repeat_customer_rate_pct"]),
		TotalCustomers:  count(out[0]["total_customers"]),
		RepeatCustomers: count(out[0]["repeat_customers"]),
	}, nil
}

// PaymentMix returns the payment types by share of payment count. The
// result is empty, not nil, when there are no payments.
func (e *Engine) PaymentMix(ctx context.Context) ([]PaymentShare, error) {
	out, err := e.Run(ctx, PaymentMixPipeline())
	if err != nil {
		return nil, err
	}
	res := make([]PaymentShare, 0, len(out))
	for _, d := range out {
		res = append(res, PaymentShare{
			PaymentType: strPtr(d["payment_type"]),
			Count:       count(d["count"]),
			TotalValue:  num(d["total_value"]),
			Percentage:  num(d["percentage"]),
		})
	}
	return res, nil
}

// ByName runs one KPI and returns its typed result.
func (e *Engine) ByName(ctx context.Context, name string, limit int) (any, error) {
	switch name {
	case RevenueByCategoryName:
		return e.RevenueByCategory(ctx, limit)
	case RevenueByStateName:
		return e.RevenueByState(ctx, limit)
	case AvgDeliveryDelayName:
		return e.AvgDeliveryDelay(ctx)
	case RepeatCustomerRateName:
		return e.RepeatCustomerRate(ctx)
	case PaymentMixName:
		return e.PaymentMix(ctx)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKPI, name)
}

// All runs the five KPIs, at most opts.Workers at a time, and records the
// scalar results as metrics.
func (e *Engine) All(ctx context.Context, opts Options) (Report, error) {
	rep := Report{RunID: opts.RunID, GeneratedAt: e.now().UTC()}
	limit := orDefault(opts.Limit)

	g, gctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	// Each task writes a distinct field of rep.
	g.Go(func() (err error) {
		rep.RevenueByCategory, err = e.RevenueByCategory(gctx, limit)
		return err
	})
	g.Go(func() (err error) {
		rep.RevenueByState, err = e.RevenueByState(gctx, limit)
		return err
	})
	g.Go(func() (err error) {
		rep.AvgDeliveryDelay, err = e.AvgDeliveryDelay(gctx)
		return err
	})
	g.Go(func() (err error) {
		rep.RepeatCustomerRate, err = e.RepeatCustomerRate(gctx)
		return err
	})
	g.Go(func() (err error) {
		rep.PaymentMix, err = e.PaymentMix(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	if d := rep.AvgDeliveryDelay; d != nil {
		metrics.RecordKPI(e.Job, AvgDeliveryDelayName, d.AvgDelayDays)
	}
	if r := rep.RepeatCustomerRate; r != nil {
		metrics.RecordKPI(e.Job, RepeatCustomerRateName, r.RatePct)
	}
	var revenue float64
	for _, c := range rep.RevenueByCategory {
		revenue += c.TotalRevenue
	}
	metrics.RecordKPI(e.Job, "top_categories_revenue", revenue)
	log.Printf("kpi: run_id=%s categories=%d states=%d payment_types=%d workers=%d",
		rep.RunID, len(rep.RevenueByCategory), len(rep.RevenueByState), len(rep.PaymentMix), workers)
	return rep, nil
}

func orDefault(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

func num(v any) float64 {
	n, _ := pipeline.Number(v)
	return n
}

func count(v any) int64 {
	n, _ := pipeline.Number(v)
	return int64(n)
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// strPtr keeps a null group key null.
func strPtr(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}
