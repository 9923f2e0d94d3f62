package schedule

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/caveplan/core/logger"
	"github.com/kilianp07/caveplan/core/model"
)

// ErrInfeasible indicates the LP solution did not deliver the expected tonnage.
var ErrInfeasible = errors.New("lp infeasible")

// LPApportioner solves a linear program maximising the weighted tonnage
// drawn this period, subject to per-column caps. By default earlier columns
// weigh more, which keeps the cave front advancing in sequence order.
type LPApportioner struct {
	// Weight scores a candidate, higher scores are filled first.
	Weight func(c Candidate) float64
	// Fallback is used when the solver fails. Nil disables the fallback.
	Fallback Apportioner
	Log      logger.Logger
}

// NewLPApportioner returns an LP apportioner with rank weighting and an
// equal split fallback.
func NewLPApportioner(log logger.Logger) *LPApportioner {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &LPApportioner{Weight: RankWeight, Fallback: EqualApportioner{}, Log: log}
}

// RankWeight favours columns incorporated earlier.
func RankWeight(c Candidate) float64 { return 1 / float64(1+c.Rank) }

// UniformWeight treats every column alike.
func UniformWeight(Candidate) float64 { return 1 }

// solveLP maximises weights·x subject to 0 <= x <= caps and sum(x) = target.
func solveLP(weights, caps []float64, target float64) ([]float64, error) {
	n := len(caps)
	c := make([]float64, n)
	for i, w := range weights {
		c[i] = -w
	}

	g := mat.NewDense(2*n, n, nil)
	h := make([]float64, 2*n)
	for i, cp := range caps {
		g.Set(i, i, 1)
		h[i] = cp
		g.Set(n+i, i, -1)
	}

	a := mat.NewDense(1, n, nil)
	for i := 0; i < n; i++ {
		a.Set(0, i, 1)
	}
	b := []float64{target}

	cStd, aStd, bStd := lp.Convert(c, g, h, a, b)
	_, sol, err := lp.Simplex(cStd, aStd, bStd, 1e-10, nil)
	if err != nil {
		return nil, err
	}
	// Convert splits x into x+ and x- ahead of the slack variables.
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = sol[i] - sol[n+i]
	}
	return x, nil
}

// lpSolve points to the function used to solve the LP. It can be overridden in
// tests to simulate solver failures.
var lpSolve = solveLP

func (d *LPApportioner) Apportion(target float64, candidates []Candidate) (map[model.Subscript]float64, error) {
	grants := emptyGrants(candidates)
	if len(candidates) == 0 || target <= 0 {
		return grants, nil
	}
	weight := d.Weight
	if weight == nil {
		weight = RankWeight
	}
	caps := make([]float64, len(candidates))
	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		caps[i] = math.Max(0, c.Cap)
		weights[i] = weight(c)
	}
	goal := math.Min(target, floats.Sum(caps))
	if goal <= 0 {
		return grants, nil
	}

	sol, err := lpSolve(weights, caps, goal)
	if err == nil {
		var sum float64
		for i, c := range candidates {
			v := math.Min(math.Max(sol[i], 0), caps[i])
			grants[c.Subscript] = v
			sum += v
		}
		if math.Abs(sum-goal) <= 1e-6*math.Max(1, goal) {
			return grants, nil
		}
		err = ErrInfeasible
	}
	if d.Fallback == nil {
		return nil, err
	}
	if d.Log != nil {
		d.Log.Warnf("lp apportionment failed, using fallback: %v", err)
	}
	return d.Fallback.Apportion(target, candidates)
}

// SetLogger replaces the logger used to report solver fallbacks.
func (d *LPApportioner) SetLogger(log logger.Logger) { d.Log = log }
