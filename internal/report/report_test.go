package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"orderdocs/internal/kpi"
)

func sampleReport() kpi.Report {
	sp, card, boleto := "SP", "credit_card", "boleto"
	return kpi.Report{
		RunID:       "3f1c",
		GeneratedAt: time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC),
		RevenueByCategory: []kpi.CategoryRevenue{
			{Category: "toys", TotalRevenue: 12, ItemsCount: 1},
		},
		RevenueByState: []kpi.StateRevenue{
			{State: &sp, TotalRevenue: 10, ItemsCount: 1},
			{State: nil, TotalRevenue: 2, ItemsCount: 1},
		},
		RepeatCustomerRate: &kpi.RepeatCustomerRate{RatePct: 50, TotalCustomers: 2, RepeatCustomers: 1},
		PaymentMix: []kpi.PaymentShare{
			{PaymentType: &card, Count: 3, TotalValue: 30, Percentage: 75},
			{PaymentType: &boleto, Count: 1, TotalValue: 5, Percentage: 25},
		},
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, sampleReport()); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"run_id=3f1c",
		"revenue_by_category:",
		"toys",
		"12.00",
		"null",
		"avg_delivery_delay:\nn/a",
		"repeat_customer_rate_pct  50.00",
		"credit_card",
		"75.00",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, rule+"\n"); n != len(kpi.Names()) {
		t.Fatalf("rules = %d, want %d", n, len(kpi.Names()))
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteText_PropagatesWriteError(t *testing.T) {
	if err := WriteText(failWriter{}, sampleReport()); err == nil {
		t.Fatalf("want write error")
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleReport()); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	want := []string{SummarySheet, kpi.RevenueByCategoryName, kpi.RevenueByStateName, kpi.PaymentMixName}
	if got := f.GetSheetList(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("sheets = %v, want %v", got, want)
	}

	rows, err := f.GetRows(kpi.PaymentMixName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "payment_type" || rows[1][0] != "credit_card" || rows[1][3] != "75" {
		t.Fatalf("payment_mix rows = %v", rows)
	}

	v, err := f.GetCellValue(SummarySheet, "B5")
	if err != nil || v != "50" {
		t.Fatalf("summary B5 = %q, %v; want 50", v, err)
	}
	if v, _ := f.GetCellValue(SummarySheet, "B3"); v != "" {
		t.Fatalf("absent delay should leave B3 empty, got %q", v)
	}
}
