// Package export writes schedule results in the delimited and JSON formats
// consumed downstream.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/caveplan/core/model"
)

var header = []string{
	"Period",
	"Subscript I",
	"Subscript J",
	"Extracted Tonnage",
	"From Meters",
	"To Meters",
	"Is Depleted",
	"Tonnage Available",
	"Target Tonnage",
	"Accomplished",
}

var summaryHeader = []string{
	"Step",
	"Period",
	"Start",
	"Duration Days",
	"Target Tonnage",
	"Extracted Tonnage",
	"Incorporated",
	"Active Columns",
	"Depleted Columns",
	"Accomplished",
}

// Header returns the column names of the result file.
func Header() []string { return append([]string(nil), header...) }

// formatFloat renders v in its shortest round-trip form with a fractional
// part or an exponent: 0.0, 234.0, 1250.5, 1e+16, 1.5e-05.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if a := math.Abs(v); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// Row renders one extraction record in header order.
func Row(r model.ExtractionResult) []string {
	return []string{
		strconv.Itoa(r.PeriodID),
		strconv.Itoa(r.Subscript.I),
		strconv.Itoa(r.Subscript.J),
		formatFloat(r.ExtractedTonnage),
		formatFloat(r.FromMeters),
		formatFloat(r.ToMeters),
		formatBool(r.IsDepleted),
		formatFloat(r.TonnageAvailable),
		formatFloat(r.TargetTonnage),
		formatBool(r.WasTargetAccomplished),
	}
}

// WriteCSV writes the records to w, one row per record in the given order.
// Fields are separated by a bare comma, header included.
func WriteCSV(w io.Writer, records []model.ExtractionResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(Row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the records to w as a JSON array.
func WriteJSON(w io.Writer, records []model.ExtractionResult) error {
	if records == nil {
		records = []model.ExtractionResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteSummaryCSV writes one row per scheduling step.
func WriteSummaryCSV(w io.Writer, summaries []model.PeriodSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}
	for _, s := range summaries {
		start := ""
		if !s.Start.IsZero() {
			start = s.Start.Format(time.RFC3339)
		}
		rec := []string{
			strconv.Itoa(s.Step),
			strconv.Itoa(s.Period),
			start,
			formatFloat(s.DurationDays),
			formatFloat(s.TargetTonnage),
			formatFloat(s.ExtractedTonnage),
			strconv.Itoa(s.Incorporated),
			strconv.Itoa(s.ActiveColumns),
			strconv.Itoa(s.DepletedColumns),
			formatBool(s.Accomplished),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
