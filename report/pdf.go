package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/warp/wage-engine/payroll"
)

// WritePayslip renders a single-page A4 payslip.
func WritePayslip(w io.Writer, meta Meta, b payroll.Breakdown) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Subject: %s", displayName(meta, b)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s", b.Period.Start, b.Period.End))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Shifts: %d, hours: %s", b.ShiftCount, b.TotalHours))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(80, 8, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(30, 8, "Hours", "B", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Rate", "B", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	for _, c := range b.Categories {
		pdf.CellFormat(80, 7, CategoryTitle(c.Label), "", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, c.Hours.String(), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, c.EffectiveRate.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, money(c.Amount), "", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(140, 8, "Gross", "T", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, money(b.Gross), "T", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(140, 8, fmt.Sprintf("Tax withheld (%s%%)", b.TaxRatePercent), "", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, money(b.Tax), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(140, 8, "Net", "", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, money(b.Net), "", 1, "R", false, 0, "")

	if len(b.Weeks) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(0, 8, "Weekly rest")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, wk := range b.Weeks {
			pdf.CellFormat(35, 6, wk.WeekStart.String(), "", 0, "L", false, 0, "")
			pdf.CellFormat(105, 6, WeekNote(wk), "", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, money(wk.Amount), "", 1, "R", false, 0, "")
		}
	}

	if len(b.Warnings) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.Cell(0, 6, fmt.Sprintf("%d shift(s) were excluded:", len(b.Warnings)))
		pdf.Ln(6)
		for _, warn := range b.Warnings {
			pdf.Cell(0, 6, fmt.Sprintf("- %s: %s", warn.ShiftID, warn.Code()))
			pdf.Ln(6)
		}
	}

	return pdf.Output(w)
}
