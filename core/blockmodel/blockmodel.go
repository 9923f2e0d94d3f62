package blockmodel

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrUnknownDataset is returned when a dataset name is not part of the model.
var ErrUnknownDataset = errors.New("unknown dataset")

// DensityProvider is the read-only view of block densities consumed by the
// scheduling engine.
type DensityProvider interface {
	Density(i, j, k int) float64
	BlockVolume() float64
	BlockHeight() float64
	// ColumnTop returns the exclusive upper bound of block indices of the
	// column at (i, j).
	ColumnTop(i, j int) int
}

// BlockModel stores named datasets over a common Structure.
type BlockModel struct {
	structure Structure
	datasets  map[string][]float64
}

// New returns an empty block model for the structure.
func New(s Structure) *BlockModel {
	return &BlockModel{structure: s, datasets: make(map[string][]float64)}
}

// Structure returns the grid description.
func (m *BlockModel) Structure() Structure { return m.structure }

// AddDataset stores a flat dataset laid out with Structure.Index.
func (m *BlockModel) AddDataset(name string, values []float64) error {
	if len(values) != m.structure.Len() {
		return fmt.Errorf("dataset %s has %d values, structure holds %d blocks", name, len(values), m.structure.Len())
	}
	m.datasets[name] = append([]float64(nil), values...)
	return nil
}

// DatasetNames returns the dataset names in lexical order.
func (m *BlockModel) DatasetNames() []string {
	names := make([]string, 0, len(m.datasets))
	for n := range m.datasets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dataset returns a read-only accessor for the named dataset.
func (m *BlockModel) Dataset(name string) (*Dataset, error) {
	values, ok := m.datasets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataset, name)
	}
	return &Dataset{name: name, structure: m.structure, values: values}, nil
}

// FromLevel returns a model containing only the blocks at or above the given
// vertical index. The offset is shifted so coordinates are preserved.
func (m *BlockModel) FromLevel(level int) (*BlockModel, error) {
	s := m.structure
	if level < 0 || level >= s.Shape[2] {
		return nil, fmt.Errorf("%w: level %d", ErrOutOfBounds, level)
	}
	ns := s
	ns.Shape[2] = s.Shape[2] - level
	ns.Offset[2] = s.Offset[2] + float64(level)*s.BlockSize[2]
	out := New(ns)
	for name, values := range m.datasets {
		cut := make([]float64, ns.Len())
		for i := 0; i < s.Shape[0]; i++ {
			for j := 0; j < s.Shape[1]; j++ {
				copy(cut[ns.Index(i, j, 0):ns.Index(i, j, 0)+ns.Shape[2]], values[s.Index(i, j, level):s.Index(i, j, 0)+s.Shape[2]])
			}
		}
		out.datasets[name] = cut
	}
	return out, nil
}

// Dataset implements DensityProvider over one dataset of a BlockModel.
type Dataset struct {
	name      string
	structure Structure
	values    []float64
}

// Name returns the dataset name.
func (d *Dataset) Name() string { return d.name }

// Density returns the value at (i, j, k), or zero outside the model or for
// missing blocks.
func (d *Dataset) Density(i, j, k int) float64 {
	if !d.structure.Contains(i, j, k) {
		return 0
	}
	v := d.values[d.structure.Index(i, j, k)]
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func (d *Dataset) BlockVolume() float64 { return d.structure.BlockVolume() }

func (d *Dataset) BlockHeight() float64 { return d.structure.BlockSize[2] }

// ColumnTop returns the number of vertical blocks; every column spans the
// full model height.
func (d *Dataset) ColumnTop(i, j int) int { return d.structure.Shape[2] }
