package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"orderdocs/internal/kpi"
)

// SummarySheet holds run metadata and the scalar KPIs.
const SummarySheet = "summary"

// WriteXLSX writes rep as a workbook: a summary sheet plus one sheet per
// tabular KPI, each with a header row.
func WriteXLSX(w io.Writer, rep kpi.Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return fmt.Errorf("report: rename sheet: %w", err)
	}
	summary := [][]any{
		{"run_id", rep.RunID},
		{"generated_at", rep.GeneratedAt.Format("2006-01-02T15:04:05Z07:00")},
		{"avg_delay_days", nil},
		{"delivered_orders", nil},
		{"repeat_customer_rate_pct", nil},
		{"total_customers", nil},
		{"repeat_customers", nil},
	}
	if d := rep.AvgDeliveryDelay; d != nil {
		summary[2][1], summary[3][1] = d.AvgDelayDays, d.Orders
	}
	if r := rep.RepeatCustomerRate; r != nil {
		summary[4][1], summary[5][1], summary[6][1] = r.RatePct, r.TotalCustomers, r.RepeatCustomers
	}
	if err := writeRows(f, SummarySheet, summary); err != nil {
		return err
	}

	cats := [][]any{{"category", "total_revenue", "items_count"}}
	for _, r := range rep.RevenueByCategory {
		cats = append(cats, []any{r.Category, r.TotalRevenue, r.ItemsCount})
	}
	states := [][]any{{"state", "total_revenue", "items_count"}}
	for _, r := range rep.RevenueByState {
		var state any
		if r.State != nil {
			state = *r.State
		}
		states = append(states, []any{state, r.TotalRevenue, r.ItemsCount})
	}
	mix := [][]any{{"payment_type", "count", "total_value", "percentage"}}
	for _, p := range rep.PaymentMix {
		mix = append(mix, []any{cell(p.PaymentType), p.Count, p.TotalValue, p.Percentage})
	}
	for _, s := range []struct {
		name string
		rows [][]any
	}{
		{kpi.RevenueByCategoryName, cats},
		{kpi.RevenueByStateName, states},
		{kpi.PaymentMixName, mix},
	} {
		if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("report: new sheet %s: %w", s.name, err)
		}
		if err := writeRows(f, s.name, s.rows); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("report: write xlsx: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("report: %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// cell leaves a null string as an empty cell.
func cell(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
