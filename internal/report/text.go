// Package report renders a kpi.Report as a console dashboard or an XLSX
// workbook.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"orderdocs/internal/kpi"
)

var rule = strings.Repeat("-", 50)

// WriteText prints each KPI as a small table followed by a rule line.
// Absent scalar KPIs print "n/a".
func WriteText(w io.Writer, rep kpi.Report) error {
	ew := &errWriter{w: w}
	ew.printf("\n=== E-COMMERCE KPI DASHBOARD ===\n")
	if rep.RunID != "" {
		ew.printf("run_id=%s generated_at=%s\n", rep.RunID, rep.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	ew.printf("\n")

	section(ew, kpi.RevenueByCategoryName, func(tw io.Writer) {
		fmt.Fprintln(tw, "category\ttotal_revenue\titems_count")
		for _, r := range rep.RevenueByCategory {
			fmt.Fprintf(tw, "%s\t%.2f\t%d\n", r.Category, r.TotalRevenue, r.ItemsCount)
		}
	})
	section(ew, kpi.RevenueByStateName, func(tw io.Writer) {
		fmt.Fprintln(tw, "state\ttotal_revenue\titems_count")
		for _, r := range rep.RevenueByState {
			fmt.Fprintf(tw, "%s\t%.2f\t%d\n", orNull(r.State), r.TotalRevenue, r.ItemsCount)
		}
	})
	section(ew, kpi.AvgDeliveryDelayName, func(tw io.Writer) {
		if d := rep.AvgDeliveryDelay; d != nil {
			fmt.Fprintf(tw, "avg_delay_days\t%.2f\norders\t%d\n", d.AvgDelayDays, d.Orders)
			return
		}
		fmt.Fprintln(tw, "n/a")
	})
	section(ew, kpi.RepeatCustomerRateName, func(tw io.Writer) {
		if r := rep.RepeatCustomerRate; r != nil {
			fmt.Fprintf(tw, "repeat_customer_rate_pct\t%.2f\ncustomers\t%d\nrepeat_customers\t%d\n",
				r.RatePct, r.TotalCustomers, r.RepeatCustomers)
			return
		}
		fmt.Fprintln(tw, "n/a")
	})
	section(ew, kpi.PaymentMixName, func(tw io.Writer) {
		fmt.Fprintln(tw, "payment_type\tcount\ttotal_value\tpercentage")
		for _, p := range rep.PaymentMix {
			fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\n", orNull(p.PaymentType), p.Count, p.TotalValue, p.Percentage)
		}
	})
	return ew.err
}

func section(ew *errWriter, name string, body func(io.Writer)) {
	ew.printf("%s:\n", name)
	tw := tabwriter.NewWriter(ew, 0, 4, 2, ' ', 0)
	body(tw)
	if err := tw.Flush(); err != nil && ew.err == nil {
		ew.err = err
	}
	ew.printf("%s\n", rule)
}

func orNull(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}

// errWriter remembers the first write error and drops later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

func (e *errWriter) printf(format string, args ...any) {
	fmt.Fprintf(e, format, args...)
}
