package csv

import (
	stdcsv "encoding/csv"
	"errors"
	"strings"
	"testing"

	"orderdocs/internal/config"
	"orderdocs/internal/schema"
)

func TestParse_HeaderAndNulls(t *testing.T) {
	in := "\uFEFFOrder ID, customer_id ,order_status\n" +
		"o1,c1,delivered\n" +
		"o2, ,\n"
	tbl, err := NewParser(OptionsFrom(config.Options{})).Parse("orders", strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"order_id", "customer_id", "order_status"}
	for i, c := range want {
		if tbl.Columns[i] != c {
			t.Fatalf("Columns = %v, want %v", tbl.Columns, want)
		}
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
	status := tbl.Col("order_status")
	if got := schema.Str(status(0)); got != "delivered" {
		t.Fatalf("row 0 status = %q", got)
	}
	if status(1) != nil || tbl.Col("customer_id")(1) != nil {
		t.Fatalf("blank cells should be nil")
	}
}

func TestParse_OptionsFromConfig(t *testing.T) {
	opt := OptionsFrom(config.Options{
		"comma":      ";",
		"trim_space": false,
		"header_map": map[string]any{"ID": "order_id"},
	})
	tbl, err := NewParser(opt).Parse("orders", strings.NewReader("ID;price\no1; 10.5\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tbl.Columns[0] != "order_id" {
		t.Fatalf("header_map not applied: %v", tbl.Columns)
	}
	if got := schema.Str(tbl.Col("price")(0)); got != " 10.5" {
		t.Fatalf("price = %q, want untrimmed", got)
	}
}

func TestParse_WrongFieldCountIsFatal(t *testing.T) {
	_, err := NewParser(Options{}).Parse("order_items", strings.NewReader("a,b\n1,2\n3\n"))
	var pe *stdcsv.ParseError
	if !errors.As(err, &pe) || !errors.Is(err, stdcsv.ErrFieldCount) {
		t.Fatalf("err = %v, want csv.ErrFieldCount", err)
	}
	if !strings.Contains(err.Error(), "order_items") {
		t.Fatalf("error should name the table: %v", err)
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := NewParser(Options{}).Parse("x", strings.NewReader("")); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v, want ErrEmpty", err)
	}
}
