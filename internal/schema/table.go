package schema

import "strings"

// Table is a fully materialized input: a header plus rows of nullable cells.
// A nil cell means the source value was empty or absent.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]*string

	index map[string]int
}

// NewTable builds a Table and its column index. Later duplicates of a column
// name are shadowed by the first occurrence.
func NewTable(name string, columns []string, rows [][]*string) *Table {
	t := &Table{Name: name, Columns: columns, Rows: rows}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, dup := t.index[c]; !dup {
			t.index[c] = i
		}
	}
}

// Has reports whether the table carries column col.
func (t *Table) Has(col string) bool {
	if t.index == nil {
		t.reindex()
	}
	_, ok := t.index[col]
	return ok
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Col returns an accessor for column col. The accessor returns nil for a
// missing column or a short row.
func (t *Table) Col(col string) func(row int) *string {
	if t.index == nil {
		t.reindex()
	}
	ix, ok := t.index[col]
	if !ok {
		return func(int) *string { return nil }
	}
	return func(row int) *string {
		r := t.Rows[row]
		if ix >= len(r) {
			return nil
		}
		return r[ix]
	}
}

// Str dereferences a cell, returning "" for nil.
func Str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

const utf8BOM = "\uFEFF"

// NormalizeHeaders produces canonical column keys: surrounding space and a
// leading UTF-8 BOM are dropped, headerMap renames source names, everything
// else is lower-cased with spaces turned into underscores.
func NormalizeHeaders(h []string, headerMap map[string]string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimSpace(strings.TrimPrefix(c, utf8BOM))
		}
		if m, ok := headerMap[c]; ok {
			res[i] = m
			continue
		}
		res[i] = strings.ReplaceAll(strings.ToLower(c), " ", "_")
	}
	return res
}
