package extraction

import (
	"math"

	"github.com/kilianp07/caveplan/core/blockmodel"
	"github.com/kilianp07/caveplan/core/model"
)

// fractionEpsilon snaps a block fraction to a full block.
const fractionEpsilon = 1e-12

// tolerance is the absolute slack used when comparing tonnages of magnitude v.
func tolerance(v float64) float64 {
	return 1e-9 * math.Max(1, math.Abs(v))
}

// Column tracks the depletion state of one vertical stack of blocks.
type Column struct {
	provider    blockmodel.DensityProvider
	sub         model.Subscript
	start       int
	top         int
	blockVolume float64
	blockHeight float64

	total     float64
	available float64
	extracted float64

	block    int
	fraction float64
	meters   float64
	depleted bool
}

// NewColumn creates a column above the given starting block index and
// computes its total tonnage.
func NewColumn(provider blockmodel.DensityProvider, sub model.Subscript, start int) *Column {
	c := &Column{
		provider:    provider,
		sub:         sub,
		start:       start,
		top:         provider.ColumnTop(sub.I, sub.J),
		blockVolume: provider.BlockVolume(),
		blockHeight: provider.BlockHeight(),
		block:       start,
	}
	for k := start; k < c.top; k++ {
		c.total += c.blockTonnage(k)
	}
	c.available = c.total
	c.depleted = c.block >= c.top || c.total <= 0
	return c
}

func (c *Column) blockTonnage(k int) float64 {
	return c.provider.Density(c.sub.I, c.sub.J, k) * c.blockVolume
}

// Subscript returns the footprint position of the column.
func (c *Column) Subscript() model.Subscript { return c.sub }

// StartingIndex returns the first block index of the column.
func (c *Column) StartingIndex() int { return c.start }

// TotalTonnage is the tonnage the column held at creation.
func (c *Column) TotalTonnage() float64 { return c.total }

// AvailableTonnage is the tonnage still in place.
func (c *Column) AvailableTonnage() float64 { return c.available }

// ExtractedTonnage is the tonnage delivered so far.
func (c *Column) ExtractedTonnage() float64 { return c.extracted }

// CurrentMeters is the height extracted above the starting block.
func (c *Column) CurrentMeters() float64 { return c.meters }

// Height is the full height of the column.
func (c *Column) Height() float64 {
	if c.top <= c.start {
		return 0
	}
	return float64(c.top-c.start) * c.blockHeight
}

// IsDepleted reports whether the column reached its terminal state.
func (c *Column) IsDepleted() bool { return c.depleted }

// PercentageExtracted returns the share of the total tonnage already
// delivered, in percent. Empty columns report 100.
func (c *Column) PercentageExtracted() float64 {
	if c.total <= 0 {
		return 100
	}
	return (c.total - c.available) / c.total * 100
}

// State is a point-in-time copy of a column's progress.
type State struct {
	Subscript           model.Subscript
	StartingIndex       int
	TotalTonnage        float64
	AvailableTonnage    float64
	ExtractedTonnage    float64
	CurrentMeters       float64
	PercentageExtracted float64
	Depleted            bool
}

// State returns a copy of the column's current progress.
func (c *Column) State() State {
	return State{
		Subscript:           c.sub,
		StartingIndex:       c.start,
		TotalTonnage:        c.total,
		AvailableTonnage:    c.available,
		ExtractedTonnage:    c.extracted,
		CurrentMeters:       c.meters,
		PercentageExtracted: c.PercentageExtracted(),
		Depleted:            c.depleted,
	}
}

// Extract draws up to target tonnes from the column.
func (c *Column) Extract(target float64, periodID int) model.ExtractionResult {
	return c.ExtractCapped(target, math.Inf(1), periodID)
}

// ExtractCapped draws min(target, limit) tonnes from the column. The result
// records target as the requested tonnage, so a binding limit reports the
// target as not accomplished.
func (c *Column) ExtractCapped(target, limit float64, periodID int) model.ExtractionResult {
	wasDepleted := c.depleted
	from := c.meters
	want := math.Max(0, math.Min(target, limit))

	var got float64
	for !c.depleted && want-got > tolerance(want) {
		if c.block >= c.top {
			c.depleted = true
			break
		}
		blockTon := c.blockTonnage(c.block)
		if blockTon <= 0 {
			c.advance()
			continue
		}
		remaining := blockTon * (1 - c.fraction)
		need := want - got
		if need < remaining {
			c.fraction += need / blockTon
			got = want
			if c.fraction >= 1-fractionEpsilon {
				c.advance()
			}
			break
		}
		got += remaining
		c.advance()
	}
	if math.Abs(want-got) <= tolerance(want) {
		got = want
	}

	c.extracted += got
	c.available = math.Max(0, c.total-c.extracted)
	if c.block >= c.top || c.available <= tolerance(c.total) {
		c.depleted = true
	}
	if c.depleted {
		c.available = 0
		c.block = c.top
		c.fraction = 0
	}
	c.meters = math.Min(c.Height(), (float64(c.block-c.start)+c.fraction)*c.blockHeight)

	return model.ExtractionResult{
		PeriodID:              periodID,
		Subscript:             c.sub,
		ExtractedTonnage:      got,
		FromMeters:            from,
		ToMeters:              c.meters,
		IsDepleted:            c.depleted,
		TonnageAvailable:      c.available,
		TargetTonnage:         target,
		WasTargetAccomplished: !wasDepleted && got >= target-tolerance(target),
	}
}

func (c *Column) advance() {
	c.block++
	c.fraction = 0
	if c.block >= c.top {
		c.depleted = true
	}
}
