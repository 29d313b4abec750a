package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultJob        = "orderdocs"
	DefaultDataDir    = "data/raw"
	DefaultDSN        = "mongodb://localhost:27017"
	DefaultDatabase   = "olist_ecommerce"
	DefaultCollection = "orders"
	DefaultTopN       = 10
	DefaultBatchSize  = 1000
)

// DefaultTableFiles are the Olist extract names per logical table.
var DefaultTableFiles = map[string]string{
	"orders":      "olist_orders_dataset.csv",
	"order_items": "olist_order_items_dataset.csv",
	"customers":   "olist_customers_dataset.csv",
	"products":    "olist_products_dataset.csv",
	"payments":    "olist_order_payments_dataset.csv",
}

// Load reads a pipeline file. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON. Unknown JSON fields are rejected.
func Load(path string) (Pipeline, error) {
	var p Pipeline
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &p); err != nil {
			return p, fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return p, fmt.Errorf("parse json config %s: %w", path, err)
		}
	}
	return p, nil
}

// ApplyDefaults fills unset fields. A zero Pipeline becomes a local CSV run
// into MongoDB on localhost.
func ApplyDefaults(p *Pipeline) {
	if strings.TrimSpace(p.Job) == "" {
		p.Job = DefaultJob
	}
	if p.Source.Kind == "" {
		p.Source.Kind = "file"
	}
	if p.Source.Kind == "file" && p.Source.File.Dir == "" {
		p.Source.File.Dir = DefaultDataDir
	}
	if p.Source.Tables == nil {
		p.Source.Tables = map[string]string{}
	}
	for name, file := range DefaultTableFiles {
		if p.Source.Tables[name] == "" {
			p.Source.Tables[name] = file
		}
	}
	if p.Parser.Kind == "" {
		p.Parser.Kind = "csv"
	}
	if p.Parser.Options == nil {
		p.Parser.Options = Options{}
	}
	if p.Storage.Kind == "" {
		p.Storage.Kind = "mongo"
	}
	if p.Storage.Kind == "mongo" {
		if p.Storage.DB.DSN == "" {
			p.Storage.DB.DSN = DefaultDSN
		}
		if p.Storage.DB.Database == "" {
			p.Storage.DB.Database = DefaultDatabase
		}
	}
	if p.Storage.DB.Collection == "" {
		p.Storage.DB.Collection = DefaultCollection
	}
	if p.Analytics.TopN == 0 {
		p.Analytics.TopN = DefaultTopN
	}
	if p.Analytics.Workers == 0 {
		p.Analytics.Workers = 1
	}
	if p.Runtime.BatchSize == 0 {
		p.Runtime.BatchSize = DefaultBatchSize
	}
}

// ApplyEnv overrides p from environment variables read through getenv:
//
//	ORDERDOCS_STORAGE_DSN  storage.db.dsn
//	ORDERDOCS_DATA_DIR     source.file.dir
//	ORDERDOCS_BATCH_SIZE   runtime.batch_size
//
// A malformed batch size is an error.
func ApplyEnv(p *Pipeline, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv("ORDERDOCS_STORAGE_DSN")); v != "" {
		p.Storage.DB.DSN = v
	}
	if v := strings.TrimSpace(getenv("ORDERDOCS_DATA_DIR")); v != "" {
		p.Source.File.Dir = v
	}
	if v := strings.TrimSpace(getenv("ORDERDOCS_BATCH_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ORDERDOCS_BATCH_SIZE=%q: %w", v, err)
		}
		p.Runtime.BatchSize = n
	}
	return nil
}
