package importer

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/kilianp07/caveplan/core/blockmodel"
)

// BlockModelOptions names the coordinate columns of a block model CSV.
type BlockModelOptions struct {
	X         string `json:"x"`
	Y         string `json:"y"`
	Z         string `json:"z"`
	Separator string `json:"separator"`
	// Datasets restricts the imported value columns. Empty imports every
	// column that is not a coordinate.
	Datasets []string `json:"datasets"`
}

// SetDefaults fills unset column names.
func (o *BlockModelOptions) SetDefaults() {
	if o.X == "" {
		o.X = "x"
	}
	if o.Y == "" {
		o.Y = "y"
	}
	if o.Z == "" {
		o.Z = "z"
	}
}

// LoadBlockModelCSV reads a block model from a CSV file.
func LoadBlockModelCSV(path string, opts BlockModelOptions) (*blockmodel.BlockModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	m, err := ReadBlockModelCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ReadBlockModelCSV reads one block per row: centroid coordinates plus one
// column per dataset. The grid is inferred from the coordinates and blocks
// absent from the file hold NaN.
func ReadBlockModelCSV(r io.Reader, opts BlockModelOptions) (*blockmodel.BlockModel, error) {
	opts.SetDefaults()
	sep, err := separator(opts.Separator)
	if err != nil {
		return nil, err
	}
	cr := newReader(r, sep)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	xi, ok1 := cols[opts.X]
	yi, ok2 := cols[opts.Y]
	zi, ok3 := cols[opts.Z]
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("missing coordinate columns %s, %s, %s", opts.X, opts.Y, opts.Z)
	}
	names := opts.Datasets
	if len(names) == 0 {
		for _, h := range header {
			h = strings.TrimSpace(h)
			if h != opts.X && h != opts.Y && h != opts.Z {
				names = append(names, h)
			}
		}
	}
	dataIdx := make([]int, len(names))
	for n, name := range names {
		i, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("missing dataset column %s", name)
		}
		dataIdx[n] = i
	}

	var xs, ys, zs []float64
	values := make([][]float64, len(names))
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if isBlank(rec) {
			continue
		}
		coords := [3]float64{}
		for a, i := range [3]int{xi, yi, zi} {
			if i >= len(rec) {
				return nil, fmt.Errorf("line %d: missing coordinate", line)
			}
			v, err := parseFloat(rec[i])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			coords[a] = v
		}
		xs, ys, zs = append(xs, coords[0]), append(ys, coords[1]), append(zs, coords[2])
		for n, i := range dataIdx {
			v := math.NaN()
			if i < len(rec) && strings.TrimSpace(rec[i]) != "" {
				if v, err = parseFloat(rec[i]); err != nil {
					return nil, fmt.Errorf("line %d column %s: %w", line, names[n], err)
				}
			}
			values[n] = append(values[n], v)
		}
	}

	s, err := blockmodel.FromXYZ(xs, ys, zs)
	if err != nil {
		return nil, err
	}
	m := blockmodel.New(s)
	for n, name := range names {
		grid := make([]float64, s.Len())
		for i := range grid {
			grid[i] = math.NaN()
		}
		for row, v := range values[n] {
			i, j, k, err := s.Subscript(xs[row], ys[row], zs[row])
			if err != nil {
				return nil, err
			}
			grid[s.Index(i, j, k)] = v
		}
		if err := m.AddDataset(name, grid); err != nil {
			return nil, err
		}
	}
	return m, nil
}
