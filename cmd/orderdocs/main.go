package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"orderdocs/internal/config"
	"orderdocs/internal/metrics"
	"orderdocs/internal/metrics/datadog"
	"orderdocs/internal/metrics/prompush"

	// register all backends with the storage factory.
	// config picks one but the binary supports all of them.
	_ "orderdocs/internal/storage/all"
)

var newRunID = uuid.NewString

// main loads the pipeline config, sets up metrics, runs the ETL and KPI
// pass and prints the report.
func main() {
	var (
		cfgPath           string
		envPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		datadogAddrFlg    string
		reportPath        string
		serveAddr         string
		validate          bool
		kpiOnly           bool
	)

	flag.StringVar(&cfgPath, "config", "", "pipeline config path (.json, .yaml); empty uses built-in defaults")
	flag.StringVar(&envPath, "env", ".env", "dotenv file loaded before the config; missing is fine")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend: pushgateway, datadog, none (overrides env METRICS_BACKEND)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&datadogAddrFlg, "datadog-addr", "", "DogStatsD address (overrides env DD_AGENT_ADDR)")
	flag.StringVar(&reportPath, "report", "", "also write the KPI report to this .xlsx path")
	flag.StringVar(&serveAddr, "serve", "", "serve KPIs over HTTP on this address after the run, e.g. :8080")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&kpiOnly, "kpi-only", false, "skip the ETL and compute KPIs over the stored collection")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fatalf("load %s: %v", envPath, err)
	}

	p, err := loadPipeline(cfgPath, os.Getenv)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	flush := setupMetrics(
		pick(metricsBackendFlg, os.Getenv("METRICS_BACKEND")),
		pick(pushGatewayURLFlg, os.Getenv("PUSHGATEWAY_URL")),
		pick(datadogAddrFlg, os.Getenv("DD_AGENT_ADDR")),
		p.Job, *verbose,
	)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	start := time.Now()

	runID := newRunID()
	if *verbose {
		log.Printf("pipeline: run_id=%s source=%s parser=%s storage=%s collection=%s",
			runID, p.Source.Kind, p.Parser.Kind, p.Storage.Kind, p.Storage.DB.Collection)
	}

	_, err = run(ctx, p, runOptions{
		RunID:      runID,
		Verbose:    *verbose,
		KPIOnly:    kpiOnly,
		ReportPath: reportPath,
		ServeAddr:  serveAddr,
		Out:        os.Stdout,
	})
	if err != nil {
		flush()
		log.Fatalf("%v", err)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// loadPipeline reads path (or starts from a zero Pipeline when path is
// empty), then applies defaults and environment overrides.
func loadPipeline(path string, getenv func(string) string) (config.Pipeline, error) {
	var p config.Pipeline
	if path != "" {
		var err error
		if p, err = config.Load(path); err != nil {
			return p, err
		}
	}
	config.ApplyDefaults(&p)
	if err := config.ApplyEnv(&p, getenv); err != nil {
		return p, err
	}
	return p, nil
}

// setupMetrics installs the chosen backend and returns its flush func.
// Init failures fall back to the nop backend.
func setupMetrics(backendName, gwURL, ddAddr, jobName string, verbose bool) func() {
	nop := func() {}
	if jobName == "" {
		jobName = config.DefaultJob
	}

	switch backendName {
	case "pushgateway":
		gwURL = pick(gwURL, "http://localhost:9091")
		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return nop
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, jobName)
		metrics.SetBackend(b)

	case "datadog":
		ddAddr = pick(ddAddr, "127.0.0.1:8125")
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       ddAddr,
			GlobalTags: []string{"job:" + jobName},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return nop
		}
		log.Printf("metrics: addr=%v, backend=%v, job_name=%v", ddAddr, backendName, jobName)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}
		return nop

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
		return nop
	}

	flushed := false
	return func() {
		if flushed {
			return
		}
		flushed = true
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

// pick returns the first non-empty value.
func pick(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
