// Package layout holds the 2-D footprint and sequence tables of a caving
// panel and derives the order in which columns are incorporated.
package layout

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/caveplan/core/model"
)

// Grid is an (i, j) table of integer cells where NaN or negative values mark
// an empty cell.
type Grid struct {
	m *mat.Dense
}

// NewGrid builds a grid from row-major values.
func NewGrid(rows, cols int, values []float64) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", rows, cols)
	}
	if len(values) != rows*cols {
		return nil, fmt.Errorf("grid %dx%d needs %d values, got %d", rows, cols, rows*cols, len(values))
	}
	return &Grid{m: mat.NewDense(rows, cols, append([]float64(nil), values...))}, nil
}

// Dims returns the number of rows (i) and columns (j).
func (g *Grid) Dims() (int, int) { return g.m.Dims() }

// Cell returns the integer value at (i, j) and whether the cell is set.
func (g *Grid) Cell(i, j int) (int, bool) {
	r, c := g.m.Dims()
	if i < 0 || j < 0 || i >= r || j >= c {
		return 0, false
	}
	v := g.m.At(i, j)
	if math.IsNaN(v) || v < 0 {
		return 0, false
	}
	return int(math.Round(v)), true
}

// Count returns the number of set cells.
func (g *Grid) Count() int {
	r, c := g.m.Dims()
	n := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if _, ok := g.Cell(i, j); ok {
				n++
			}
		}
	}
	return n
}

// Footprint gives the starting vertical block index of every column.
type Footprint struct{ *Grid }

// NewFootprint wraps a grid of starting indices.
func NewFootprint(g *Grid) Footprint { return Footprint{Grid: g} }

// StartingIndex returns the first block index of the column at s.
func (f Footprint) StartingIndex(s model.Subscript) (int, bool) { return f.Cell(s.I, s.J) }

// Sequence gives the activation order of every column.
type Sequence struct{ *Grid }

// NewSequence wraps a grid of activation orders.
func NewSequence(g *Grid) Sequence { return Sequence{Grid: g} }

// Order returns the activation order of the column at s.
func (q Sequence) Order(s model.Subscript) (int, bool) { return q.Cell(s.I, s.J) }
