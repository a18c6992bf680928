package report

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/warp/wage-engine/payroll"
)

// WriteTable renders one breakdown as a category table followed by the
// weekly-rest lines.
func WriteTable(w io.Writer, meta Meta, b payroll.Breakdown) {
	categories := buildCategoryTable(meta, b)
	categories.SetOutputMirror(w)
	categories.Render()

	if len(b.Weeks) > 0 {
		weeks := buildWeekTable(b)
		weeks.SetOutputMirror(w)
		weeks.Render()
	}
}

// WriteSummaryTable renders one row per entry with a grand total footer.
func WriteSummaryTable(w io.Writer, entries []Entry, total payroll.Breakdown) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Subject", "Period", "Hours", "Gross", "Tax", "Net", "Warnings"})
	for _, e := range entries {
		b := e.Breakdown
		t.AppendRow(table.Row{
			displayName(e.Meta, b),
			b.Period.Label(),
			b.TotalHours.String(),
			money(b.Gross),
			money(b.Tax),
			money(b.Net),
			len(b.Warnings),
		})
	}
	t.AppendFooter(table.Row{"Total", "", total.TotalHours.String(), money(total.Gross), money(total.Tax), money(total.Net), len(total.Warnings)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func buildCategoryTable(meta Meta, b payroll.Breakdown) table.Writer {
	t := table.NewWriter()
	t.SetTitle(displayName(meta, b) + " " + b.Period.Label())
	t.AppendHeader(table.Row{"Item", "Hours", "Rate", "Amount"})
	for _, c := range b.Categories {
		t.AppendRow(table.Row{
			CategoryTitle(c.Label),
			c.Hours.String(),
			c.EffectiveRate.StringFixed(2),
			money(c.Amount),
		})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"Gross", b.TotalHours.String(), "", money(b.Gross)})
	t.AppendRow(table.Row{"Tax (" + b.TaxRatePercent.String() + "%)", "", "", money(b.Tax)})
	t.AppendFooter(table.Row{"Net", "", "", money(b.Net)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleRounded)
	return t
}

func buildWeekTable(b payroll.Breakdown) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Week of", "Hours", "Weekly rest", "Amount"})
	for _, w := range b.Weeks {
		t.AppendRow(table.Row{w.WeekStart.String(), w.Hours.String(), WeekNote(w), money(w.Amount)})
	}
	t.SetStyle(table.StyleRounded)
	return t
}
