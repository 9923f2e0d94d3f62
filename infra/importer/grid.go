package importer

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/kilianp07/caveplan/core/blockmodel"
	"github.com/kilianp07/caveplan/core/layout"
)

// GridOptions controls how a 2-D grid CSV is read.
type GridOptions struct {
	Path      string `json:"path"`
	Separator string `json:"separator"`
	// NoneMarker is an extra cell value meaning "no entry", besides an
	// empty cell.
	NoneMarker string `json:"none_marker"`
	// HeaderRows are skipped before the first grid row.
	HeaderRows int `json:"header_rows"`
	// HeaderCols are skipped at the start of every row.
	HeaderCols int `json:"header_cols"`
}

// LoadGridCSV reads the grid at opts.Path.
func LoadGridCSV(opts GridOptions) (*layout.Grid, error) {
	f, err := os.Open(opts.Path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	g, err := ReadGridCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Path, err)
	}
	return g, nil
}

// ReadGridCSV reads a grid where row n is i = n and column n is j = n.
// Short rows are padded with empty cells.
func ReadGridCSV(r io.Reader, opts GridOptions) (*layout.Grid, error) {
	sep, err := separator(opts.Separator)
	if err != nil {
		return nil, err
	}
	cr := newReader(r, sep)
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if opts.HeaderRows > len(recs) {
		return nil, fmt.Errorf("grid has %d rows, %d header rows requested", len(recs), opts.HeaderRows)
	}
	recs = recs[opts.HeaderRows:]
	for len(recs) > 0 && isBlank(recs[len(recs)-1]) {
		recs = recs[:len(recs)-1]
	}
	rows, cols := len(recs), 0
	for _, rec := range recs {
		if n := len(rec) - opts.HeaderCols; n > cols {
			cols = n
		}
	}
	if rows == 0 || cols <= 0 {
		return nil, fmt.Errorf("empty grid")
	}
	values := make([]float64, rows*cols)
	for i, rec := range recs {
		for j := 0; j < cols; j++ {
			v := math.NaN()
			if c := j + opts.HeaderCols; c < len(rec) {
				cell := strings.TrimSpace(rec[c])
				if cell != "" && cell != opts.NoneMarker {
					if v, err = parseFloat(cell); err != nil {
						return nil, fmt.Errorf("cell (%d,%d): %w", i, j, err)
					}
				}
			}
			values[i*cols+j] = v
		}
	}
	return layout.NewGrid(rows, cols, values)
}

// CheckGridShape verifies that a grid covers the horizontal extent of the
// block model.
func CheckGridShape(name string, g *layout.Grid, s blockmodel.Structure) error {
	rows, cols := g.Dims()
	if rows != s.Shape[0] || cols != s.Shape[1] {
		return fmt.Errorf("%s grid is %dx%d, block model is %dx%d", name, rows, cols, s.Shape[0], s.Shape[1])
	}
	return nil
}
