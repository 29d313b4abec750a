package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single finding of ValidatePipeline. Path is a dotted path into
// the config, e.g. "storage.db.dsn".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline lints p without mutating it. Callers decide whether
// warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics and log lines",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateAnalytics(p.Analytics)...)
	issues = append(issues, validateRuntime(p.Runtime)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	switch s.Kind {
	case "":
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
	case "file":
		if strings.TrimSpace(s.File.Dir) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.file.dir",
				Message:  "file source requires a non-empty dir",
			})
		}
	case "s3":
		if strings.TrimSpace(s.S3.Bucket) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.s3.bucket",
				Message:  "s3 source requires a bucket",
			})
		}
		if s.S3.Region == "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.s3.region",
				Message:  "no region set; the AWS default chain decides",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q (want file or s3)", s.Kind),
		})
	}

	for name := range s.Tables {
		if _, ok := DefaultTableFiles[name]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.tables." + name,
				Message:  fmt.Sprintf("unknown table %q is ignored", name),
			})
		}
	}

	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue

	switch p.Kind {
	case "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  "parser.kind must not be empty",
		})
	case "csv":
		if s := p.Options.String("comma", ","); len([]rune(s)) != 1 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "parser.options.comma",
				Message:  fmt.Sprintf("comma must be a single character, got %q", s),
			})
		}
	case "xlsx":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unknown parser kind %q (want csv or xlsx)", p.Kind),
		})
	}

	return issues
}

// knownStorage lists the backends shipped in internal/storage/all.
var knownStorage = map[string]struct{}{
	"mongo":    {},
	"postgres": {},
	"sqlite":   {},
	"memory":   {},
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
	}
	if _, ok := knownStorage[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	if s.Kind != "memory" && strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}
	if s.Kind == "mongo" && strings.TrimSpace(s.DB.Database) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.database",
			Message:  "mongo storage requires a database name",
		})
	}
	if strings.TrimSpace(s.DB.Collection) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.collection",
			Message:  "storage.db.collection must not be empty",
		})
	}

	return issues
}

func validateAnalytics(a Analytics) []Issue {
	var issues []Issue
	if a.TopN < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "analytics.top_n",
			Message:  "top_n must not be negative",
		})
	}
	if a.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "analytics.workers",
			Message:  "workers must not be negative",
		})
	}
	if a.Workers > 5 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "analytics.workers",
			Message:  fmt.Sprintf("workers=%d exceeds the number of KPI pipelines (5)", a.Workers),
		})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	if r.BatchSize <= 0 {
		return []Issue{{
			Severity: SeverityError,
			Path:     "runtime.batch_size",
			Message:  fmt.Sprintf("batch_size=%d; must be positive", r.BatchSize),
		}}
	}
	return nil
}
