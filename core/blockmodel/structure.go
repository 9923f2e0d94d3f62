package blockmodel

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ErrOutOfBounds is returned when coordinates fall outside the structure.
var ErrOutOfBounds = errors.New("block outside model")

// Structure describes the regular grid of a block model.
type Structure struct {
	BlockSize [3]float64 `json:"block_size"`
	Shape     [3]int     `json:"shape"`
	Offset    [3]float64 `json:"offset"`
}

// BlockVolume returns the volume of one block.
func (s Structure) BlockVolume() float64 {
	return s.BlockSize[0] * s.BlockSize[1] * s.BlockSize[2]
}

// Len returns the number of blocks in the grid.
func (s Structure) Len() int {
	return s.Shape[0] * s.Shape[1] * s.Shape[2]
}

// Contains reports whether (i, j, k) addresses a block of the grid.
func (s Structure) Contains(i, j, k int) bool {
	return i >= 0 && j >= 0 && k >= 0 && i < s.Shape[0] && j < s.Shape[1] && k < s.Shape[2]
}

// Index returns the flat position of (i, j, k). Blocks of one column are
// contiguous.
func (s Structure) Index(i, j, k int) int {
	return (i*s.Shape[1]+j)*s.Shape[2] + k
}

// Subscript converts block centroid coordinates to grid indices.
func (s Structure) Subscript(x, y, z float64) (int, int, int, error) {
	p := [3]float64{x, y, z}
	var idx [3]int
	for a := 0; a < 3; a++ {
		idx[a] = int(math.Round((p[a] - s.Offset[a]) / s.BlockSize[a]))
	}
	if !s.Contains(idx[0], idx[1], idx[2]) {
		return 0, 0, 0, fmt.Errorf("%w: (%v,%v,%v)", ErrOutOfBounds, x, y, z)
	}
	return idx[0], idx[1], idx[2], nil
}

// FromXYZ infers the grid from block centroid coordinates. The block size of
// an axis is the smallest positive spacing between distinct coordinates.
func FromXYZ(x, y, z []float64) (Structure, error) {
	if len(x) == 0 || len(x) != len(y) || len(x) != len(z) {
		return Structure{}, fmt.Errorf("coordinate columns must be non-empty and of equal length")
	}
	var s Structure
	for a, coords := range [3][]float64{x, y, z} {
		size, err := axisSpacing(coords)
		if err != nil {
			return Structure{}, fmt.Errorf("axis %d: %w", a, err)
		}
		lo, hi := floats.Min(coords), floats.Max(coords)
		s.BlockSize[a] = size
		s.Offset[a] = lo
		s.Shape[a] = int(math.Round((hi-lo)/size)) + 1
	}
	return s, nil
}

func axisSpacing(coords []float64) (float64, error) {
	sorted := append([]float64(nil), coords...)
	sort.Float64s(sorted)
	spacing := math.Inf(1)
	for i := 1; i < len(sorted); i++ {
		if d := sorted[i] - sorted[i-1]; d > 1e-9 && d < spacing {
			spacing = d
		}
	}
	if math.IsInf(spacing, 1) {
		return 0, fmt.Errorf("cannot infer block size from a single coordinate value")
	}
	return spacing, nil
}
