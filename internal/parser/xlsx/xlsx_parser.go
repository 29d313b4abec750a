// Package xlsx reads one worksheet of an Excel workbook into a schema.Table.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"orderdocs/internal/config"
	"orderdocs/internal/schema"
)

// Options configures the XLSX parser.
type Options struct {
	// Sheet selects the worksheet; empty means the first one.
	Sheet string

	// HeaderMap maps source header names to canonical keys.
	HeaderMap map[string]string
}

// OptionsFrom reads sheet (string) and header_map (object) from a config bag.
func OptionsFrom(o config.Options) Options {
	return Options{
		Sheet:     o.String("sheet", ""),
		HeaderMap: o.StringMap("header_map"),
	}
}

// ErrNoSheets is returned for a workbook without worksheets.
var ErrNoSheets = errors.New("xlsx: workbook has no sheets")

// Parser reads workbooks.
type Parser struct{ opt Options }

// NewParser constructs a Parser.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// Parse treats the first non-blank row as the header. Blank rows are skipped
// and blank cells become nil. Excel drops trailing empty cells, so rows may be
// shorter than the header; schema.Table reads the missing cells as nil.
func (p *Parser) Parse(name string, r io.Reader) (*schema.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: open xlsx: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	sheet := p.opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s: %w", name, ErrNoSheets)
		}
		sheet = sheets[0]
	}
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s: read sheet %q: %w", name, sheet, err)
	}

	var (
		headers []string
		rows    [][]*string
	)
	for _, rec := range raw {
		if blank(rec) {
			continue
		}
		if headers == nil {
			headers = schema.NormalizeHeaders(rec, p.opt.HeaderMap)
			continue
		}
		row := make([]*string, len(rec))
		for i, val := range rec {
			val = strings.TrimSpace(val)
			if val == "" {
				continue
			}
			v := val
			row[i] = &v
		}
		rows = append(rows, row)
	}
	if headers == nil {
		return nil, fmt.Errorf("%s: sheet %q has no header row", name, sheet)
	}
	return schema.NewTable(name, headers, rows), nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
