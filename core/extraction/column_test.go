package extraction

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/caveplan/core/model"
)

// stackProvider serves a single column of densities at every (i, j).
type stackProvider struct {
	densities []float64
	volume    float64
	height    float64
}

func (p stackProvider) Density(_, _, k int) float64 {
	if k < 0 || k >= len(p.densities) {
		return 0
	}
	return p.densities[k]
}
func (p stackProvider) BlockVolume() float64   { return p.volume }
func (p stackProvider) BlockHeight() float64   { return p.height }
func (p stackProvider) ColumnTop(_, _ int) int { return len(p.densities) }

func newProvider() stackProvider {
	return stackProvider{
		densities: []float64{2.7, 2.5, 2.9, 2.6, 2.8, 2.65},
		volume:    10 * 10 * 18,
		height:    18,
	}
}

var sub = model.Subscript{I: 15, J: 8}

func TestNewColumnTotals(t *testing.T) {
	p := newProvider()
	c := NewColumn(p, sub, 2)
	want := (2.9 + 2.6 + 2.8 + 2.65) * p.volume
	assert.InDelta(t, want, c.TotalTonnage(), 1e-6)
	assert.Equal(t, c.TotalTonnage(), c.AvailableTonnage())
	assert.Equal(t, 4*18.0, c.Height())
	assert.Equal(t, 2, c.StartingIndex())
	assert.Equal(t, sub, c.Subscript())
	assert.False(t, c.IsDepleted())
	assert.Equal(t, 0.0, c.PercentageExtracted())
}

func TestExtractWholeColumn(t *testing.T) {
	c := NewColumn(newProvider(), sub, 0)
	total := c.AvailableTonnage()

	res := c.Extract(total, 1)
	assert.Equal(t, total, res.ExtractedTonnage)
	assert.True(t, res.IsDepleted)
	assert.True(t, res.WasTargetAccomplished)
	assert.Equal(t, 0.0, res.TonnageAvailable)
	assert.Equal(t, 0.0, res.FromMeters)
	assert.InDelta(t, c.Height(), res.ToMeters, 1e-9)
	assert.Equal(t, 1, res.PeriodID)
	assert.Equal(t, sub, res.Subscript)
}

func TestExtractFractionalBlocks(t *testing.T) {
	p := newProvider()
	c := NewColumn(p, sub, 0)
	first := p.densities[0] * p.volume

	res := c.Extract(first*0.6, 2)
	assert.Equal(t, first*0.6, res.ExtractedTonnage)
	assert.InEpsilon(t, p.height*0.6, c.CurrentMeters(), 0.01)
	assert.False(t, res.IsDepleted)
	assert.True(t, res.WasTargetAccomplished)
	assert.InEpsilon(t, first*0.6, c.TotalTonnage()-c.AvailableTonnage(), 0.01)

	res = c.Extract(first*0.4, 3)
	assert.Equal(t, first*0.4, res.ExtractedTonnage)
	assert.InEpsilon(t, p.height, c.CurrentMeters(), 0.01)
	assert.InEpsilon(t, first, c.TotalTonnage()-c.AvailableTonnage(), 0.01)
	assert.InDelta(t, p.height*0.6, res.FromMeters, 1e-9)

	available := c.AvailableTonnage()
	res = c.Extract(1e10, 2)
	assert.False(t, res.WasTargetAccomplished)
	assert.Equal(t, 0.0, res.TonnageAvailable)
	assert.True(t, res.IsDepleted)
	assert.InEpsilon(t, available, res.ExtractedTonnage, 0.01)
	assert.Equal(t, 1e10, res.TargetTonnage)
}

func TestExtractSpansBlocksOfDifferentDensity(t *testing.T) {
	p := newProvider()
	c := NewColumn(p, sub, 0)
	b0 := p.densities[0] * p.volume
	b1 := p.densities[1] * p.volume

	res := c.Extract(b0+b1/2, 1)
	require.True(t, res.WasTargetAccomplished)
	assert.InDelta(t, 1.5*p.height, res.ToMeters, 1e-9)
}

func TestExtractFromDepletedColumn(t *testing.T) {
	c := NewColumn(newProvider(), sub, 0)
	c.Extract(math.MaxFloat64, 1)
	require.True(t, c.IsDepleted())

	for period := 2; period < 5; period++ {
		res := c.Extract(100, period)
		assert.Equal(t, 0.0, res.ExtractedTonnage)
		assert.True(t, res.IsDepleted)
		assert.False(t, res.WasTargetAccomplished)
		assert.Equal(t, res.FromMeters, res.ToMeters)
	}
	res := c.Extract(0, 9)
	assert.False(t, res.WasTargetAccomplished)
}

func TestExtractZeroTarget(t *testing.T) {
	c := NewColumn(newProvider(), sub, 0)
	res := c.Extract(0, 1)
	assert.Equal(t, 0.0, res.ExtractedTonnage)
	assert.True(t, res.WasTargetAccomplished)
	assert.False(t, res.IsDepleted)
	assert.Equal(t, 0.0, c.CurrentMeters())
}

func TestExtractCapped(t *testing.T) {
	c := NewColumn(newProvider(), sub, 0)
	res := c.ExtractCapped(5000, 3000, 1)
	assert.Equal(t, 3000.0, res.ExtractedTonnage)
	assert.Equal(t, 5000.0, res.TargetTonnage)
	assert.False(t, res.WasTargetAccomplished)

	res = c.ExtractCapped(2000, 3000, 2)
	assert.Equal(t, 2000.0, res.ExtractedTonnage)
	assert.True(t, res.WasTargetAccomplished)
}

func TestStateIsACopy(t *testing.T) {
	c := NewColumn(newProvider(), sub, 0)
	c.Extract(3000, 1)
	st := c.State()
	assert.Equal(t, sub, st.Subscript)
	assert.InDelta(t, 3000, st.ExtractedTonnage, 1e-9)
	assert.InDelta(t, c.PercentageExtracted(), st.PercentageExtracted, 1e-12)
	assert.False(t, st.Depleted)

	c.Extract(1000, 2)
	assert.InDelta(t, 3000, st.ExtractedTonnage, 1e-9)
	assert.InDelta(t, 4000, c.State().ExtractedTonnage, 1e-9)
}

func TestEmptyColumnIsDepleted(t *testing.T) {
	p := stackProvider{densities: []float64{0, 0}, volume: 1, height: 1}
	c := NewColumn(p, sub, 0)
	assert.True(t, c.IsDepleted())
	assert.Equal(t, 100.0, c.PercentageExtracted())

	above := NewColumn(newProvider(), sub, 10)
	assert.True(t, above.IsDepleted())
	assert.Equal(t, 0.0, above.Height())
}

func TestZeroDensityBlocksAreSkipped(t *testing.T) {
	p := stackProvider{densities: []float64{2, 0, 2}, volume: 1, height: 1}
	c := NewColumn(p, sub, 0)
	res := c.Extract(3, 1)
	assert.True(t, res.WasTargetAccomplished)
	assert.InDelta(t, 2.5, res.ToMeters, 1e-9)
}

func TestExtractionInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := NewColumn(newProvider(), sub, 1)
	total := c.TotalTonnage()

	var sum float64
	prevMeters := c.CurrentMeters()
	prevAvail := c.AvailableTonnage()
	wasDepleted := false
	for period := 1; period <= 60; period++ {
		target := rng.Float64() * total / 10
		res := c.Extract(target, period)
		sum += res.ExtractedTonnage

		assert.InDelta(t, total, c.AvailableTonnage()+sum, 1e-6, "conservation")
		assert.GreaterOrEqual(t, c.CurrentMeters(), prevMeters, "meters monotonic")
		assert.LessOrEqual(t, c.AvailableTonnage(), prevAvail, "available monotonic")
		assert.LessOrEqual(t, c.CurrentMeters(), c.Height()+1e-9)
		assert.GreaterOrEqual(t, c.AvailableTonnage(), 0.0)

		if wasDepleted {
			assert.Equal(t, 0.0, res.ExtractedTonnage)
			assert.True(t, res.IsDepleted)
		} else if target <= prevAvail {
			assert.Equal(t, target, res.ExtractedTonnage)
			assert.True(t, res.WasTargetAccomplished)
		} else {
			assert.InDelta(t, prevAvail, res.ExtractedTonnage, 1e-6)
			assert.False(t, res.WasTargetAccomplished)
		}

		wasDepleted = res.IsDepleted
		prevMeters = c.CurrentMeters()
		prevAvail = c.AvailableTonnage()
	}
	assert.True(t, c.IsDepleted())
}
