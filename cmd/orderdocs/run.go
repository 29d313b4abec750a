package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"orderdocs/internal/api"
	"orderdocs/internal/config"
	"orderdocs/internal/denorm"
	"orderdocs/internal/document"
	"orderdocs/internal/extract"
	"orderdocs/internal/kpi"
	"orderdocs/internal/metrics"
	"orderdocs/internal/report"
	"orderdocs/internal/storage"
)

// Test hooks.
var (
	loadTablesFn    = extract.Load
	newRepositoryFn = storage.New
	serveFn         = api.Serve
)

// runOptions are the flag-level switches of one invocation.
type runOptions struct {
	RunID   string
	Verbose bool

	// KPIOnly skips the ETL phase and reports on what is already stored.
	KPIOnly bool
	// ReportPath, when set, also writes the report as an XLSX workbook.
	ReportPath string
	// ServeAddr, when set, serves the KPIs over HTTP after the run until
	// ctx is cancelled.
	ServeAddr string

	Out io.Writer
}

// etlSummary is what the ETL phase did.
type etlSummary struct {
	Stats     denorm.Stats
	Documents int
	Insert    storage.InsertResult
}

// run executes one orderdocs invocation: ETL (unless KPIOnly), the KPI pass,
// the printed report and the optional workbook and HTTP server.
func run(ctx context.Context, p config.Pipeline, o runOptions) (kpi.Report, error) {
	if o.Out == nil {
		o.Out = os.Stdout
	}

	// Everything that can fail on bad input happens before the store is
	// touched.
	var docs []document.Document
	var sum etlSummary
	if !o.KPIOnly {
		var err error
		docs, sum, err = buildDocuments(ctx, p)
		if err != nil {
			return kpi.Report{}, err
		}
	}

	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:       p.Storage.Kind,
		DSN:        p.Storage.DB.DSN,
		Database:   p.Storage.DB.Database,
		Collection: p.Storage.DB.Collection,
	})
	if err != nil {
		return kpi.Report{}, fmt.Errorf("open storage: %w", err)
	}
	defer repo.Close()

	if !o.KPIOnly {
		if err := load(ctx, p, repo, docs, &sum); err != nil {
			return kpi.Report{}, err
		}
		log.Printf("etl: run_id=%s orders=%d documents=%d inserted=%d failed=%d duplicate_orders=%d orphan_items=%d orphan_payments=%d unmatched_customers=%d",
			o.RunID, sum.Stats.Orders, sum.Documents, sum.Insert.Inserted, sum.Insert.Failed,
			sum.Stats.DuplicateOrders, sum.Stats.OrphanItems, sum.Stats.OrphanPayments, sum.Stats.UnmatchedCustomers)
		for _, e := range sum.Insert.Errors {
			log.Printf("etl: insert error: %v", e)
		}
	}

	eng := kpi.NewEngine(repo)
	eng.Job = p.Job
	eng.Verbose = o.Verbose
	rep, err := eng.All(ctx, kpi.Options{
		Limit:   p.Analytics.TopN,
		Workers: p.Analytics.Workers,
		RunID:   o.RunID,
	})
	if err != nil {
		return kpi.Report{}, fmt.Errorf("kpi: %w", err)
	}
	if err := report.WriteText(o.Out, rep); err != nil {
		return rep, fmt.Errorf("print report: %w", err)
	}
	if o.ReportPath != "" {
		if err := writeWorkbook(o.ReportPath, rep); err != nil {
			return rep, err
		}
		log.Printf("report: wrote %s", o.ReportPath)
	}

	if o.ServeAddr != "" {
		h := api.NewHandler(eng, p.Analytics.Workers, newRunID)
		log.Printf("api: listening on %s", o.ServeAddr)
		if err := serveFn(ctx, o.ServeAddr, api.NewRouter(h)); err != nil {
			return rep, fmt.Errorf("serve: %w", err)
		}
	}
	return rep, nil
}

// buildDocuments reads, joins and builds every document in memory.
func buildDocuments(ctx context.Context, p config.Pipeline) ([]document.Document, etlSummary, error) {
	var sum etlSummary

	tables, err := loadTablesFn(ctx, p)
	if err != nil {
		return nil, sum, err
	}

	start := time.Now()
	res, err := denorm.Denormalize(tables)
	metrics.RecordStep(p.Job, "denormalize", err, time.Since(start))
	if err != nil {
		return nil, sum, fmt.Errorf("denormalize: %w", err)
	}
	sum.Stats = res.Stats
	metrics.RecordRow(p.Job, "duplicate_orders", int64(res.Stats.DuplicateOrders))
	metrics.RecordRow(p.Job, "orphan_items", int64(res.Stats.OrphanItems))
	metrics.RecordRow(p.Job, "orphan_payments", int64(res.Stats.OrphanPayments))

	start = time.Now()
	docs, err := document.BuildAll(res.Rows)
	metrics.RecordStep(p.Job, "build", err, time.Since(start))
	if err != nil {
		return nil, sum, fmt.Errorf("build: %w", err)
	}
	sum.Documents = len(docs)
	metrics.RecordRow(p.Job, "documents", int64(len(docs)))
	return docs, sum, nil
}

// load replaces the collection contents with docs.
func load(ctx context.Context, p config.Pipeline, repo storage.Repository, docs []document.Document, sum *etlSummary) error {
	start := time.Now()
	err := repo.Reset(ctx)
	metrics.RecordStep(p.Job, "reset", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	start = time.Now()
	res, err := storage.InsertBatches(ctx, p.Job, repo, docs, p.Runtime.BatchSize)
	metrics.RecordStep(p.Job, "insert", err, time.Since(start))
	sum.Insert = res
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

func writeWorkbook(path string, rep kpi.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := report.WriteXLSX(f, rep); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
