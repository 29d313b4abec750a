// Package config defines the configuration model for an orderdocs run.
//
// A pipeline file (JSON, or YAML when the extension is .yaml/.yml) names where
// the five input tables come from, how they are parsed, which document store
// receives the denormalized orders and how the KPI pass is tuned.
//
// Example (trimmed):
//
//	{
//	  "job":      "olist",
//	  "source":   { "kind": "file", "file": { "dir": "data/raw" } },
//	  "parser":   { "kind": "csv", "options": { "trim_space": true } },
//	  "storage":  { "kind": "mongo", "db": { "dsn": "mongodb://localhost:27017",
//	                "database": "olist_ecommerce", "collection": "orders" } },
//	  "analytics":{ "top_n": 10, "workers": 1 },
//	  "runtime":  { "batch_size": 1000 }
//	}
package config

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job labels metrics and log lines for this run.
	Job string `json:"job" yaml:"job"`

	Source    Source        `json:"source" yaml:"source"`
	Parser    Parser        `json:"parser" yaml:"parser"`
	Storage   Storage       `json:"storage" yaml:"storage"`
	Analytics Analytics     `json:"analytics" yaml:"analytics"`
	Runtime   RuntimeConfig `json:"runtime" yaml:"runtime"`
}

// RuntimeConfig controls batching of the document load.
type RuntimeConfig struct {
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// Analytics tunes the KPI pass.
type Analytics struct {
	// TopN limits the revenue rankings. Zero means DefaultTopN.
	TopN int `json:"top_n" yaml:"top_n"`

	// Workers bounds how many KPI pipelines run at once. Zero or one runs
	// them sequentially.
	Workers int `json:"workers" yaml:"workers"`
}

// Source identifies where the input tables live. Kind is "file" or "s3".
type Source struct {
	Kind string     `json:"kind" yaml:"kind"`
	File SourceFile `json:"file" yaml:"file"`
	S3   SourceS3   `json:"s3" yaml:"s3"`

	// Tables maps a logical table name (orders, order_items, customers,
	// products, payments) to a file or object name relative to the source
	// root. Missing entries fall back to DefaultTableFiles.
	Tables map[string]string `json:"tables" yaml:"tables"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Dir is the directory holding the extracts.
	Dir string `json:"dir" yaml:"dir"`
}

// SourceS3 holds configuration for the "s3" source kind.
type SourceS3 struct {
	Bucket string `json:"bucket" yaml:"bucket"`
	Prefix string `json:"prefix" yaml:"prefix"`
	Region string `json:"region" yaml:"region"`

	// Endpoint overrides the service endpoint (MinIO, localstack).
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// Parser selects how raw bytes become tables. Kind is "csv" or "xlsx".
type Parser struct {
	Kind string `json:"kind" yaml:"kind"`

	// Options is interpreted by the parser. For CSV:
	//   comma (string), trim_space (bool), lazy_quotes (bool), header_map (object)
	// For XLSX:
	//   sheet (string; default first sheet)
	Options Options `json:"options" yaml:"options"`
}

// Storage selects the document store.
type Storage struct {
	// Kind is one of "mongo", "postgres", "sqlite", "memory".
	Kind string   `json:"kind" yaml:"kind"`
	DB   DBConfig `json:"db" yaml:"db"`
}

// DBConfig configures the document store connection.
type DBConfig struct {
	// DSN is the backend connection string (mongodb://..., postgresql://...,
	// or a SQLite path).
	DSN string `json:"dsn" yaml:"dsn"`

	// Database is used by the mongo backend only.
	Database string `json:"database" yaml:"database"`

	// Collection names the target collection (mongo) or table (SQL backends).
	Collection string `json:"collection" yaml:"collection"`
}

// Options fetches typed values from free-form config maps, returning the
// given default when a key is absent or has an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers arrive as float64,
// YAML integers as int.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of the string value for key, or def.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns the string-valued entries of the object at key. It never
// returns nil.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if m, ok := o[key].(map[string]any); ok {
		for k, vv := range m {
			if s, ok := vv.(string); ok {
				res[k] = s
			}
		}
	}
	return res
}

// UnmarshalJSON makes a missing or null "options" object decode to an empty,
// non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	var tmp map[string]any
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

// UnmarshalYAML is the YAML counterpart of UnmarshalJSON.
func (o *Options) UnmarshalYAML(n *yaml.Node) error {
	var tmp map[string]any
	if err := n.Decode(&tmp); err != nil {
		return err
	}
	if tmp == nil {
		tmp = map[string]any{}
	}
	*o = Options(tmp)
	return nil
}
