package improvement

import (
	"math"
)

// ParameterExplorer defines strategies for exploring the parameter space
type ParameterExplorer interface {
	// GenerateNeighbors creates neighboring parameter sets around base
	GenerateNeighbors(base Params, stepSize float64) []Params
	// Name returns the name of the exploration strategy
	Name() string
}

// DefaultExplorer steps each knob up and down within fixed bounds
type DefaultExplorer struct {
	minTarget      float64
	maxTarget      float64
	targetStep     float64
	maxReserve     int
	maxRoundsLeft  int
	roundsStepSize int
}

// NewDefaultExplorer creates a new default parameter explorer
func NewDefaultExplorer() *DefaultExplorer {
	return &DefaultExplorer{
		minTarget:      0.50,
		maxTarget:      1.20,
		targetStep:     0.05,
		maxReserve:     6,
		maxRoundsLeft:  10,
		roundsStepSize: 1,
	}
}

// WithTargetBounds sets the explored utilization target range
func (e *DefaultExplorer) WithTargetBounds(min, max float64) *DefaultExplorer {
	e.minTarget = min
	e.maxTarget = max
	return e
}

// WithMaxReserve sets the largest reserve (in rounds) to explore
func (e *DefaultExplorer) WithMaxReserve(max int) *DefaultExplorer {
	e.maxReserve = max
	return e
}

func (e *DefaultExplorer) Name() string {
	return "default"
}

// GenerateNeighbors returns every single-knob move from base that stays in bounds.
// stepSize scales the utilization step; round knobs move by whole rounds.
func (e *DefaultExplorer) GenerateNeighbors(base Params, stepSize float64) []Params {
	neighbors := make([]Params, 0, 6)

	neighbors = append(neighbors, e.exploreTarget(base, stepSize)...)
	neighbors = append(neighbors, exploreInt(base, e.roundsStepSize, e.maxReserve,
		func(p Params) int { return p.ReserveRounds },
		func(p *Params, v int) { p.ReserveRounds = v })...)
	neighbors = append(neighbors, exploreInt(base, e.roundsStepSize, e.maxRoundsLeft,
		func(p Params) int { return p.MinRoundsLeft },
		func(p *Params, v int) { p.MinRoundsLeft = v })...)

	return neighbors
}

func (e *DefaultExplorer) exploreTarget(base Params, stepSize float64) []Params {
	step := e.targetStep * stepSize
	if step <= 0 {
		return nil
	}
	out := make([]Params, 0, 2)
	for _, delta := range []float64{step, -step} {
		v := roundTo(base.TargetUtilization+delta, 4)
		if v < e.minTarget-1e-9 || v > e.maxTarget+1e-9 {
			continue
		}
		n := base
		n.TargetUtilization = v
		out = append(out, n)
	}
	return out
}

func exploreInt(base Params, step, max int, get func(Params) int, set func(*Params, int)) []Params {
	out := make([]Params, 0, 2)
	for _, v := range []int{get(base) + step, get(base) - step} {
		if v < 0 || v > max {
			continue
		}
		n := base
		set(&n, v)
		out = append(out, n)
	}
	return out
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
