package schedule

import (
	"math"
	"sort"

	"github.com/kilianp07/caveplan/core/model"
)

// Candidate is a live column competing for a share of the period target.
type Candidate struct {
	Subscript model.Subscript
	// Cap is the most the column may deliver this period.
	Cap float64
	// Rank is the incorporation position of the column, lower is earlier.
	Rank int
}

// Apportioner splits a period target across candidates. Every grant must lie
// in [0, Cap] and the grants must not sum above the target.
type Apportioner interface {
	Apportion(target float64, candidates []Candidate) (map[model.Subscript]float64, error)
}

const apportionEpsilon = 1e-9

func emptyGrants(candidates []Candidate) map[model.Subscript]float64 {
	grants := make(map[model.Subscript]float64, len(candidates))
	for _, c := range candidates {
		grants[c.Subscript] = 0
	}
	return grants
}

// EqualApportioner gives every column the same share, redistributing what
// capped columns cannot take to the others.
type EqualApportioner struct{}

func (EqualApportioner) Apportion(target float64, candidates []Candidate) (map[model.Subscript]float64, error) {
	grants := emptyGrants(candidates)
	if len(candidates) == 0 || target <= 0 {
		return grants, nil
	}
	remaining := target
	open := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Cap > 0 {
			open = append(open, c)
		}
	}
	for remaining > apportionEpsilon*math.Max(1, target) && len(open) > 0 {
		share := remaining / float64(len(open))
		next := open[:0]
		for _, c := range open {
			add := math.Min(share, c.Cap-grants[c.Subscript])
			grants[c.Subscript] += add
			remaining -= add
			if c.Cap-grants[c.Subscript] > apportionEpsilon {
				next = append(next, c)
			}
		}
		if len(next) == len(open) {
			break
		}
		open = next
	}
	return grants, nil
}

// ProportionalApportioner splits the target in proportion to each column's
// cap, so every column reaches the same fraction of its cap.
type ProportionalApportioner struct{}

func (ProportionalApportioner) Apportion(target float64, candidates []Candidate) (map[model.Subscript]float64, error) {
	grants := emptyGrants(candidates)
	if len(candidates) == 0 || target <= 0 {
		return grants, nil
	}
	var capSum float64
	for _, c := range candidates {
		capSum += math.Max(0, c.Cap)
	}
	if capSum <= 0 {
		return grants, nil
	}
	ratio := math.Min(1, target/capSum)
	for _, c := range candidates {
		grants[c.Subscript] = math.Max(0, c.Cap) * ratio
	}
	return grants, nil
}

// GreedyApportioner fills the earliest incorporated columns first.
type GreedyApportioner struct{}

func (GreedyApportioner) Apportion(target float64, candidates []Candidate) (map[model.Subscript]float64, error) {
	grants := emptyGrants(candidates)
	ordered := append([]Candidate(nil), candidates...)
	sort.SliceStable(ordered, func(a, b int) bool { return ordered[a].Rank < ordered[b].Rank })
	remaining := target
	for _, c := range ordered {
		if remaining <= 0 {
			break
		}
		g := math.Min(remaining, math.Max(0, c.Cap))
		grants[c.Subscript] = g
		remaining -= g
	}
	return grants, nil
}
