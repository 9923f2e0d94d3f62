package blockmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromXYZ(t *testing.T) {
	x := []float64{5, 15, 5, 15, 5, 15, 5, 15}
	y := []float64{5, 5, 15, 15, 5, 5, 15, 15}
	z := []float64{9, 9, 9, 9, 27, 27, 27, 27}
	s, err := FromXYZ(x, y, z)
	require.NoError(t, err)
	assert.Equal(t, [3]float64{10, 10, 18}, s.BlockSize)
	assert.Equal(t, [3]int{2, 2, 2}, s.Shape)
	assert.Equal(t, [3]float64{5, 5, 9}, s.Offset)
	assert.Equal(t, 1800.0, s.BlockVolume())
	assert.Equal(t, 8, s.Len())

	i, j, k, err := s.Subscript(15, 5, 27)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1}, []int{i, j, k})

	_, _, _, err = s.Subscript(25, 5, 27)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestFromXYZSparse(t *testing.T) {
	// missing blocks still widen the grid
	s, err := FromXYZ([]float64{0, 30}, []float64{0, 10}, []float64{0, 0})
	require.Error(t, err)

	s, err = FromXYZ([]float64{0, 30, 10}, []float64{0, 10, 0}, []float64{0, 5, 10})
	require.NoError(t, err)
	assert.Equal(t, [3]int{4, 2, 3}, s.Shape)
}

func TestFromXYZLengthMismatch(t *testing.T) {
	_, err := FromXYZ([]float64{1}, nil, nil)
	assert.Error(t, err)
}

func TestIndexKeepsColumnsContiguous(t *testing.T) {
	s := Structure{Shape: [3]int{3, 4, 5}}
	assert.Equal(t, s.Index(1, 2, 0)+1, s.Index(1, 2, 1))
	assert.Equal(t, 59, s.Index(2, 3, 4))
	assert.False(t, s.Contains(3, 0, 0))
	assert.False(t, s.Contains(0, 0, -1))
}
