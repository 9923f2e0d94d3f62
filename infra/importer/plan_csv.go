package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/caveplan/core/model"
)

// CellRef addresses a cell with 1-based row and column numbers, as shown in
// a spreadsheet.
type CellRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c CellRef) set() bool { return c.Row > 0 && c.Col > 0 }

// PlanSchema describes where a plan's fields live when it is stored as one
// CSV file per sheet in a directory. Rows and columns are 1-based.
type PlanSchema struct {
	MetadataSheet string  `json:"metadata_sheet"`
	NameCell      CellRef `json:"name_cell"`
	DatasetCell   CellRef `json:"dataset_cell"`
	// StartDateCell is optional. Dates use RFC 3339 or 2006-01-02.
	StartDateCell CellRef `json:"start_date_cell"`

	TargetSheet         string `json:"target_sheet"`
	TargetHeaderRows    int    `json:"target_header_rows"`
	PeriodColumn        int    `json:"period_column"`
	DurationColumn      int    `json:"duration_column"`
	TargetColumn        int    `json:"target_column"`
	IncorporationColumn int    `json:"incorporation_column"`

	SpeedSheet      string `json:"speed_sheet"`
	SpeedHeaderRows int    `json:"speed_header_rows"`
	MinimumColumn   int    `json:"minimum_column"`
	MaximumColumn   int    `json:"maximum_column"`
	SpeedColumn     int    `json:"speed_column"`

	Separator string `json:"separator"`
}

// DefaultPlanSchema returns the layout written by WritePlanCSV.
func DefaultPlanSchema() PlanSchema {
	var s PlanSchema
	s.SetDefaults()
	return s
}

// SetDefaults fills every unset position with the default layout. Header row
// counts are only defaulted together with the sheet name.
func (s *PlanSchema) SetDefaults() {
	if s.MetadataSheet == "" {
		s.MetadataSheet = "metadata.csv"
	}
	if !s.NameCell.set() {
		s.NameCell = CellRef{Row: 1, Col: 2}
	}
	if !s.DatasetCell.set() {
		s.DatasetCell = CellRef{Row: 2, Col: 2}
	}
	if s.TargetSheet == "" {
		s.TargetSheet = "targets.csv"
		s.TargetHeaderRows = 1
	}
	if s.PeriodColumn == 0 {
		s.PeriodColumn = 1
	}
	if s.DurationColumn == 0 {
		s.DurationColumn = 2
	}
	if s.TargetColumn == 0 {
		s.TargetColumn = 3
	}
	if s.IncorporationColumn == 0 {
		s.IncorporationColumn = 4
	}
	if s.SpeedSheet == "" {
		s.SpeedSheet = "speeds.csv"
		s.SpeedHeaderRows = 1
	}
	if s.MinimumColumn == 0 {
		s.MinimumColumn = 1
	}
	if s.MaximumColumn == 0 {
		s.MaximumColumn = 2
	}
	if s.SpeedColumn == 0 {
		s.SpeedColumn = 3
	}
}

// Validate rejects negative positions.
func (s PlanSchema) Validate() error {
	cols := map[string]int{
		"period_column": s.PeriodColumn, "duration_column": s.DurationColumn,
		"target_column": s.TargetColumn, "incorporation_column": s.IncorporationColumn,
		"minimum_column": s.MinimumColumn, "maximum_column": s.MaximumColumn,
		"speed_column": s.SpeedColumn,
		"target_header_rows": s.TargetHeaderRows + 1, "speed_header_rows": s.SpeedHeaderRows + 1,
	}
	for name, v := range cols {
		if v < 1 {
			return fmt.Errorf("plan schema %s must be positive", name)
		}
	}
	return nil
}

func readSheet(dir, name string, sep rune) ([][]string, error) {
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	recs, err := newReader(f, sep).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return recs, nil
}

func cell(recs [][]string, ref CellRef) string {
	if !ref.set() || ref.Row > len(recs) || ref.Col > len(recs[ref.Row-1]) {
		return ""
	}
	return strings.TrimSpace(recs[ref.Row-1][ref.Col-1])
}

func column(rec []string, col int) string {
	if col < 1 || col > len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[col-1])
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// LoadPlanCSV reads a plan stored as csv sheets in dir.
func LoadPlanCSV(dir string, schema PlanSchema) (*model.PlanTarget, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	sep, err := separator(schema.Separator)
	if err != nil {
		return nil, err
	}
	meta, err := readSheet(dir, schema.MetadataSheet, sep)
	if err != nil {
		return nil, err
	}
	name := cell(meta, schema.NameCell)
	dataset := cell(meta, schema.DatasetCell)
	if dataset == "" {
		return nil, fmt.Errorf("%s: density dataset cell is empty", schema.MetadataSheet)
	}

	targetRows, err := readSheet(dir, schema.TargetSheet, sep)
	if err != nil {
		return nil, err
	}
	var targets []model.TargetItem
	for n, rec := range skipRows(targetRows, schema.TargetHeaderRows) {
		if isBlank(rec) {
			continue
		}
		t, err := parseTarget(rec, schema)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", schema.TargetSheet, n+schema.TargetHeaderRows+1, err)
		}
		targets = append(targets, t)
	}

	speedRows, err := readSheet(dir, schema.SpeedSheet, sep)
	if err != nil {
		return nil, err
	}
	var speeds []model.SpeedItem
	for n, rec := range skipRows(speedRows, schema.SpeedHeaderRows) {
		if isBlank(rec) {
			continue
		}
		s, err := parseSpeed(rec, schema)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", schema.SpeedSheet, n+schema.SpeedHeaderRows+1, err)
		}
		speeds = append(speeds, s)
	}

	p := model.NewPlanTarget(name, dataset, targets, speeds)
	if v := cell(meta, schema.StartDateCell); v != "" {
		if p.StartDate, err = parseDate(v); err != nil {
			return nil, fmt.Errorf("start date: %w", err)
		}
	}
	return p, nil
}

func skipRows(recs [][]string, n int) [][]string {
	if n >= len(recs) {
		return nil
	}
	return recs[n:]
}

func parseTarget(rec []string, s PlanSchema) (model.TargetItem, error) {
	var t model.TargetItem
	var err error
	if t.Period, err = parseInt(column(rec, s.PeriodColumn)); err != nil {
		return t, fmt.Errorf("period: %w", err)
	}
	if t.DurationDays, err = parseFloat(column(rec, s.DurationColumn)); err != nil {
		return t, fmt.Errorf("duration: %w", err)
	}
	if t.TargetTonnage, err = parseFloat(column(rec, s.TargetColumn)); err != nil {
		return t, fmt.Errorf("target: %w", err)
	}
	if t.IncorporationBlocks, err = parseInt(column(rec, s.IncorporationColumn)); err != nil {
		return t, fmt.Errorf("incorporation: %w", err)
	}
	return t, nil
}

func parseSpeed(rec []string, s PlanSchema) (model.SpeedItem, error) {
	var sp model.SpeedItem
	var err error
	if sp.MinimumPercentage, err = parseFloat(column(rec, s.MinimumColumn)); err != nil {
		return sp, fmt.Errorf("minimum: %w", err)
	}
	if sp.MaximumPercentage, err = parseFloat(column(rec, s.MaximumColumn)); err != nil {
		return sp, fmt.Errorf("maximum: %w", err)
	}
	if sp.Speed, err = parseFloat(column(rec, s.SpeedColumn)); err != nil {
		return sp, fmt.Errorf("speed: %w", err)
	}
	return sp, nil
}

// parseInt accepts integral floats such as "3.0" written by spreadsheets.
func parseInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := parseFloat(s)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int(v), nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// WritePlanCSV writes p as csv sheets in dir, creating it when missing.
func WritePlanCSV(dir string, p *model.PlanTarget, schema PlanSchema) error {
	if err := schema.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	sep, err := separator(schema.Separator)
	if err != nil {
		return err
	}

	meta := &sheet{}
	meta.put(schema.NameCell, p.Name, "name")
	meta.put(schema.DatasetCell, p.DensityDataset, "density_dataset")
	if !p.StartDate.IsZero() {
		ref := schema.StartDateCell
		if !ref.set() {
			ref = CellRef{Row: schema.DatasetCell.Row + 1, Col: schema.DatasetCell.Col}
		}
		meta.put(ref, p.StartDate.Format(time.RFC3339), "start_date")
	}

	targets := &sheet{}
	targets.header(schema.TargetHeaderRows, map[int]string{
		schema.PeriodColumn: "period", schema.DurationColumn: "duration_days",
		schema.TargetColumn: "target_tonnage", schema.IncorporationColumn: "incorporation_blocks",
	})
	for n, t := range p.Targets {
		row := schema.TargetHeaderRows + n + 1
		targets.put(CellRef{row, schema.PeriodColumn}, strconv.Itoa(t.Period), "")
		targets.put(CellRef{row, schema.DurationColumn}, formatFloat(t.DurationDays), "")
		targets.put(CellRef{row, schema.TargetColumn}, formatFloat(t.TargetTonnage), "")
		targets.put(CellRef{row, schema.IncorporationColumn}, strconv.Itoa(t.IncorporationBlocks), "")
	}

	speeds := &sheet{}
	speeds.header(schema.SpeedHeaderRows, map[int]string{
		schema.MinimumColumn: "minimum_percentage", schema.MaximumColumn: "maximum_percentage",
		schema.SpeedColumn: "speed",
	})
	for n, s := range p.Speeds {
		row := schema.SpeedHeaderRows + n + 1
		speeds.put(CellRef{row, schema.MinimumColumn}, formatFloat(s.MinimumPercentage), "")
		speeds.put(CellRef{row, schema.MaximumColumn}, formatFloat(s.MaximumPercentage), "")
		speeds.put(CellRef{row, schema.SpeedColumn}, formatFloat(s.Speed), "")
	}

	return errors.Join(
		meta.write(filepath.Join(dir, schema.MetadataSheet), sep),
		targets.write(filepath.Join(dir, schema.TargetSheet), sep),
		speeds.write(filepath.Join(dir, schema.SpeedSheet), sep),
	)
}

// sheet is a sparse grid of cells grown on demand.
type sheet struct{ rows [][]string }

// put stores v at ref. A label is written to the left of the value when
// that cell exists and is still empty.
func (s *sheet) put(ref CellRef, v, label string) {
	s.grow(ref)
	s.rows[ref.Row-1][ref.Col-1] = v
	if label != "" && ref.Col > 1 && s.rows[ref.Row-1][ref.Col-2] == "" {
		s.rows[ref.Row-1][ref.Col-2] = label
	}
}

func (s *sheet) header(rows int, labels map[int]string) {
	if rows < 1 {
		return
	}
	for col, l := range labels {
		ref := CellRef{Row: rows, Col: col}
		s.grow(ref)
		s.rows[rows-1][col-1] = l
	}
}

func (s *sheet) grow(ref CellRef) {
	for len(s.rows) < ref.Row {
		s.rows = append(s.rows, nil)
	}
	for r := range s.rows {
		for len(s.rows[r]) < ref.Col {
			s.rows[r] = append(s.rows[r], "")
		}
	}
}

func (s *sheet) write(path string, sep rune) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Comma = sep
	if err := w.WriteAll(s.rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
