package schedule

import (
	"io"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/caveplan/core/model"
	"github.com/kilianp07/caveplan/pkg/export"
)

// Result is the ordered collection of extraction records of a run, period
// major, plus one summary per scheduling step.
type Result struct {
	records   []model.ExtractionResult
	summaries []model.PeriodSummary
}

func (r *Result) append(summary model.PeriodSummary, records []model.ExtractionResult) {
	r.summaries = append(r.summaries, summary)
	r.records = append(r.records, records...)
}

// Records returns a copy of the records in production order.
func (r *Result) Records() []model.ExtractionResult {
	return append([]model.ExtractionResult(nil), r.records...)
}

// Summaries returns one summary per processed target item.
func (r *Result) Summaries() []model.PeriodSummary {
	return append([]model.PeriodSummary(nil), r.summaries...)
}

// ColumnHistory returns the records of one column in production order.
func (r *Result) ColumnHistory(sub model.Subscript) []model.ExtractionResult {
	var out []model.ExtractionResult
	for _, rec := range r.records {
		if rec.Subscript == sub {
			out = append(out, rec)
		}
	}
	return out
}

// Totals returns the summed target and extracted tonnage over all steps.
func (r *Result) Totals() (target, extracted float64) {
	targets := make([]float64, len(r.summaries))
	got := make([]float64, len(r.summaries))
	for i, s := range r.summaries {
		targets[i] = s.TargetTonnage
		got[i] = s.ExtractedTonnage
	}
	return floats.Sum(targets), floats.Sum(got)
}

// Table returns the records as rows in the fixed export column order,
// header first.
func (r *Result) Table() [][]string {
	rows := make([][]string, 0, len(r.records)+1)
	rows = append(rows, export.Header())
	for _, rec := range r.records {
		rows = append(rows, export.Row(rec))
	}
	return rows
}

// WriteCSV writes the records in the delimited result format.
func (r *Result) WriteCSV(w io.Writer) error {
	return export.WriteCSV(w, r.records)
}
