package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/caveplan/core/model"
)

var nan = math.NaN()

func TestGridCells(t *testing.T) {
	g, err := NewGrid(2, 3, []float64{0, 4, nan, -1, 13, 2.0000001})
	require.NoError(t, err)
	r, c := g.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)

	v, ok := g.Cell(0, 1)
	assert.True(t, ok)
	assert.Equal(t, 4, v)

	v, ok = g.Cell(0, 0)
	assert.True(t, ok, "zero is a valid starting index")
	assert.Equal(t, 0, v)

	_, ok = g.Cell(0, 2)
	assert.False(t, ok)
	_, ok = g.Cell(1, 0)
	assert.False(t, ok)
	_, ok = g.Cell(5, 0)
	assert.False(t, ok)

	v, _ = g.Cell(1, 2)
	assert.Equal(t, 2, v)
	assert.Equal(t, 4, g.Count())
}

func TestNewGridErrors(t *testing.T) {
	_, err := NewGrid(0, 2, nil)
	assert.Error(t, err)
	_, err = NewGrid(2, 2, []float64{1})
	assert.Error(t, err)
}

func TestRank(t *testing.T) {
	fpGrid, err := NewGrid(2, 3, []float64{
		0, 0, 0,
		0, nan, 0,
	})
	require.NoError(t, err)
	seqGrid, err := NewGrid(2, 3, []float64{
		3, -1, 1,
		1, 0, 2,
	})
	require.NoError(t, err)

	got := Rank(NewFootprint(fpGrid), NewSequence(seqGrid))
	want := []model.Subscript{
		{I: 0, J: 2}, // order 1, tie broken by subscript
		{I: 1, J: 0}, // order 1
		{I: 1, J: 2}, // order 2
		{I: 0, J: 0}, // order 3
	}
	assert.Equal(t, want, got)
}

func TestRankEmpty(t *testing.T) {
	g, err := NewGrid(1, 1, []float64{nan})
	require.NoError(t, err)
	assert.Empty(t, Rank(NewFootprint(g), NewSequence(g)))
}
