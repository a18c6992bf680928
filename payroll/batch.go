package payroll

import (
	"context"
	"runtime"

	"github.com/shopspring/decimal"
	"github.com/warp/wage-engine/generic"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// SUM - Combining breakdowns
// =============================================================================

// Sum adds breakdowns category by category, used for a person's total across
// workplaces and for team totals. Each part keeps the tax it was withheld at,
// so the sum still satisfies Net == Gross - Tax. Week summaries are not
// merged; warnings are concatenated in part order.
func Sum(subjectID generic.SubjectID, period generic.Period, parts []Breakdown) Breakdown {
	total := ZeroBreakdown(subjectID, period)
	totals := make(map[CategoryLabel]*categoryTotal, len(CategoryOrder))
	for _, label := range CategoryOrder {
		totals[label] = &categoryTotal{}
	}

	for _, part := range parts {
		for _, c := range part.Categories {
			if t, ok := totals[c.Label]; ok {
				t.add(c.Amount.Value, c.Hours.Value)
			}
		}
		total.TotalHours = total.TotalHours.Add(part.TotalHours)
		total.ShiftCount += part.ShiftCount
		total.Gross = total.Gross.Add(part.Gross)
		total.Tax = total.Tax.Add(part.Tax)
		total.Net = total.Net.Add(part.Net)
		total.Warnings = append(total.Warnings, part.Warnings...)
	}

	for i, label := range CategoryOrder {
		total.Categories[i] = totals[label].category(label)
	}
	if total.Gross.IsPositive() {
		total.TaxRatePercent = total.Tax.Value.Div(total.Gross.Value).Mul(hundred).Round(2)
	} else {
		total.TaxRatePercent = decimal.Zero
	}
	return total
}

// =============================================================================
// BATCH - Concurrent computation
// =============================================================================

// Batch computes every input on a bounded worker pool and returns the
// breakdowns in input order. workers <= 0 means GOMAXPROCS. The first error
// (a malformed period or ctx cancellation) stops the batch.
func Batch(ctx context.Context, agg *Aggregator, inputs []Input, workers int) ([]Breakdown, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Breakdown, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := agg.Compute(inputs[i])
			if err != nil {
				return err
			}
			results[i] = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
