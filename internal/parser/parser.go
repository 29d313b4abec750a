// Package parser turns raw input streams into schema.Tables.
package parser

import (
	"fmt"
	"io"

	"orderdocs/internal/config"
	"orderdocs/internal/parser/csv"
	"orderdocs/internal/parser/xlsx"
	"orderdocs/internal/schema"
)

// Parser materializes one input table. name labels errors and the table.
type Parser interface {
	Parse(name string, r io.Reader) (*schema.Table, error)
}

// New returns the parser selected by cfg.Kind.
func New(cfg config.Parser) (Parser, error) {
	switch cfg.Kind {
	case "csv", "":
		return csv.NewParser(csv.OptionsFrom(cfg.Options)), nil
	case "xlsx":
		return xlsx.NewParser(xlsx.OptionsFrom(cfg.Options)), nil
	}
	return nil, fmt.Errorf("unknown parser kind %q", cfg.Kind)
}
