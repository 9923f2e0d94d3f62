package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrSpeedOutOfRange is returned when no extraction speed bracket contains a
// percentage extracted value.
var ErrSpeedOutOfRange = errors.New("percentage extracted outside every speed bracket")

// ErrInvalidPlan reports a structurally invalid production plan.
var ErrInvalidPlan = errors.New("invalid production plan")

// TargetItem is the production goal of a single period.
type TargetItem struct {
	Period              int     `json:"period" yaml:"period"`
	TargetTonnage       float64 `json:"target_tonnage" yaml:"target_tonnage"`
	IncorporationBlocks int     `json:"incorporation_blocks" yaml:"incorporation_blocks"`
	DurationDays        float64 `json:"duration_days" yaml:"duration_days"`
}

// SpeedItem is one bracket of the extraction speed ramp curve. The bracket
// covers [MinimumPercentage, MaximumPercentage).
type SpeedItem struct {
	MinimumPercentage float64 `json:"minimum_percentage" yaml:"minimum_percentage"`
	MaximumPercentage float64 `json:"maximum_percentage" yaml:"maximum_percentage"`
	Speed             float64 `json:"speed" yaml:"speed"`
}

// Contains reports whether pct falls inside the bracket.
func (s SpeedItem) Contains(pct float64) bool {
	return pct >= s.MinimumPercentage && pct < s.MaximumPercentage
}

// PlanTarget groups the period targets and the speed ramp curve of a caving
// production plan together with the density dataset it applies to.
type PlanTarget struct {
	Name           string       `json:"name" yaml:"name"`
	DensityDataset string       `json:"density_dataset" yaml:"density_dataset"`
	StartDate      time.Time    `json:"start_date,omitzero" yaml:"start_date,omitempty"`
	Targets        []TargetItem `json:"targets" yaml:"targets"`
	Speeds         []SpeedItem  `json:"speeds" yaml:"speeds"`
}

// NewPlanTarget builds a plan with targets ordered by period and speeds
// ordered by minimum percentage. Items sharing a period keep their input order.
func NewPlanTarget(name, dataset string, targets []TargetItem, speeds []SpeedItem) *PlanTarget {
	p := &PlanTarget{
		Name:           name,
		DensityDataset: dataset,
		Targets:        append([]TargetItem(nil), targets...),
		Speeds:         append([]SpeedItem(nil), speeds...),
	}
	p.Normalize()
	return p
}

// Normalize sorts targets and speeds in place.
func (p *PlanTarget) Normalize() {
	sort.SliceStable(p.Targets, func(a, b int) bool { return p.Targets[a].Period < p.Targets[b].Period })
	sort.SliceStable(p.Speeds, func(a, b int) bool {
		return p.Speeds[a].MinimumPercentage < p.Speeds[b].MinimumPercentage
	})
}

// OrderedTargets returns a copy of the targets in scheduling order.
func (p *PlanTarget) OrderedTargets() []TargetItem {
	out := append([]TargetItem(nil), p.Targets...)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Period < out[b].Period })
	return out
}

// SpeedAt returns the maximum extraction speed for a column that has already
// delivered pct percent of its tonnage.
func (p *PlanTarget) SpeedAt(pct float64) (float64, error) {
	for _, s := range p.Speeds {
		if s.Contains(pct) {
			return s.Speed, nil
		}
	}
	return 0, fmt.Errorf("%w: %.6f", ErrSpeedOutOfRange, pct)
}

// PeriodCap is the tonnage a column may deliver in a period of the given
// duration, bounded by what the column still holds.
func (p *PlanTarget) PeriodCap(pct, durationDays, available float64) (float64, error) {
	speed, err := p.SpeedAt(pct)
	if err != nil {
		return 0, err
	}
	return math.Max(0, math.Min(speed*durationDays, available)), nil
}

// Timeline returns the start time of every ordered target. It returns nil when
// the plan has no start date.
func (p *PlanTarget) Timeline() []time.Time {
	if p.StartDate.IsZero() {
		return nil
	}
	targets := p.OrderedTargets()
	out := make([]time.Time, len(targets))
	cur := p.StartDate
	for i, t := range targets {
		out[i] = cur
		cur = cur.Add(time.Duration(t.DurationDays * float64(24*time.Hour)))
	}
	return out
}

// Validate checks the plan for structural problems.
func (p *PlanTarget) Validate() error {
	if len(p.Targets) == 0 {
		return fmt.Errorf("%w: no target items", ErrInvalidPlan)
	}
	if len(p.Speeds) == 0 {
		return fmt.Errorf("%w: no speed items", ErrInvalidPlan)
	}
	for i, t := range p.Targets {
		if t.TargetTonnage < 0 {
			return fmt.Errorf("%w: target %d has negative tonnage", ErrInvalidPlan, i)
		}
		if t.DurationDays <= 0 {
			return fmt.Errorf("%w: target %d has non-positive duration", ErrInvalidPlan, i)
		}
		if t.IncorporationBlocks < 0 {
			return fmt.Errorf("%w: target %d has negative incorporation", ErrInvalidPlan, i)
		}
	}
	for i, s := range p.Speeds {
		if s.MinimumPercentage >= s.MaximumPercentage {
			return fmt.Errorf("%w: speed %d has empty bracket [%v,%v)", ErrInvalidPlan, i, s.MinimumPercentage, s.MaximumPercentage)
		}
		if s.Speed < 0 {
			return fmt.Errorf("%w: speed %d is negative", ErrInvalidPlan, i)
		}
	}
	return nil
}

// CheckRampCoverage verifies that the speed brackets partition [0, 100)
// without gaps or overlaps.
func (p *PlanTarget) CheckRampCoverage() error {
	speeds := append([]SpeedItem(nil), p.Speeds...)
	sort.SliceStable(speeds, func(a, b int) bool { return speeds[a].MinimumPercentage < speeds[b].MinimumPercentage })
	if len(speeds) == 0 {
		return fmt.Errorf("%w: empty ramp curve", ErrSpeedOutOfRange)
	}
	const eps = 1e-9
	if speeds[0].MinimumPercentage > eps {
		return fmt.Errorf("%w: gap [0,%v)", ErrSpeedOutOfRange, speeds[0].MinimumPercentage)
	}
	for i := 1; i < len(speeds); i++ {
		prev, cur := speeds[i-1].MaximumPercentage, speeds[i].MinimumPercentage
		switch {
		case cur > prev+eps:
			return fmt.Errorf("%w: gap [%v,%v)", ErrSpeedOutOfRange, prev, cur)
		case cur < prev-eps:
			return fmt.Errorf("%w: overlap [%v,%v)", ErrSpeedOutOfRange, cur, prev)
		}
	}
	if last := speeds[len(speeds)-1].MaximumPercentage; last < 100-eps {
		return fmt.Errorf("%w: gap [%v,100)", ErrSpeedOutOfRange, last)
	}
	return nil
}
