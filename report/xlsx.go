package report

import (
	"fmt"
	"io"

	"github.com/warp/wage-engine/payroll"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Payroll"
	weeksSheet    = "Weeks"
	warningsSheet = "Warnings"
)

// WriteWorkbook writes one summary row per entry plus week and warning
// sheets.
func WriteWorkbook(w io.Writer, entries []Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(summarySheet)
	if err != nil {
		return err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headers := []string{"Subject", "Period"}
	for _, label := range payroll.CategoryOrder {
		headers = append(headers, CategoryTitle(label))
	}
	headers = append(headers, "Hours", "Gross", "Tax rate %", "Tax", "Net")
	if err := writeHeader(f, summarySheet, headers); err != nil {
		return err
	}

	for i, e := range entries {
		b := e.Breakdown
		row := []interface{}{displayName(e.Meta, b), b.Period.Label()}
		for _, label := range payroll.CategoryOrder {
			row = append(row, float(b.Category(label).Amount))
		}
		rate, _ := b.TaxRatePercent.Float64()
		row = append(row, float(b.TotalHours), float(b.Gross), rate, float(b.Tax), float(b.Net))
		if err := writeRow(f, summarySheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(weeksSheet); err != nil {
		return err
	}
	if err := writeHeader(f, weeksSheet, []string{"Subject", "Week of", "Hours", "Qualified", "Paid hours", "Reference wage", "Amount", "Note"}); err != nil {
		return err
	}
	rowIndex := 2
	for _, e := range entries {
		for _, wk := range e.Breakdown.Weeks {
			row := []interface{}{
				displayName(e.Meta, e.Breakdown), wk.WeekStart.String(), float(wk.Hours), wk.Qualified,
				float(wk.PaidHours), float(wk.ReferenceWage), float(wk.Amount), WeekNote(wk),
			}
			if err := writeRow(f, weeksSheet, rowIndex, row); err != nil {
				return err
			}
			rowIndex++
		}
	}

	if _, err := f.NewSheet(warningsSheet); err != nil {
		return err
	}
	if err := writeHeader(f, warningsSheet, []string{"Subject", "Shift", "Code", "Detail"}); err != nil {
		return err
	}
	rowIndex = 2
	for _, e := range entries {
		for _, warn := range e.Breakdown.Warnings {
			row := []interface{}{displayName(e.Meta, e.Breakdown), string(warn.ShiftID), warn.Code(), warn.Detail}
			if err := writeRow(f, warningsSheet, rowIndex, row); err != nil {
				return err
			}
			rowIndex++
		}
	}

	return f.Write(w)
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("sheet %s row %d: %w", sheet, row, err)
	}
	return nil
}
