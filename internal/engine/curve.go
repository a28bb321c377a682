package engine

import (
	"math"

	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
)

// UserGrowth returns the new users arriving in a round: base + round/divisor
func (e *Engine) UserGrowth(round int) int {
	g := e.catalog.Rules.Growth
	return g.Base + round/g.RoundDivisor
}

// LoadFactor combines tier specialisation with the active scenario.
// The busier subsystem decides; unset multipliers count as 1.
func LoadFactor(tier config.Tier, scenario config.ScenarioModifier) float64 {
	cpu := multiplier(tier.CPUMultiplier) * multiplier(scenario.CPUMultiplier)
	mem := multiplier(tier.MemoryMultiplier) * multiplier(scenario.MemoryMultiplier)
	return math.Max(cpu, mem)
}

func multiplier(m float64) float64 {
	if m <= 0 {
		return 1
	}
	return m
}

// Utilization returns the effective load of s: users over capacity, scaled by load factor
func (e *Engine) Utilization(s models.State) float64 {
	return e.utilizationFor(s.ActiveUsers, s.TierIndex, s.Round)
}

// ProjectedUtilization estimates next round's utilization if no one leaves
func (e *Engine) ProjectedUtilization(s models.State) float64 {
	return e.utilizationFor(s.ActiveUsers+e.UserGrowth(s.Round), s.TierIndex, s.Round+1)
}

func (e *Engine) utilizationFor(users, tierIndex, round int) float64 {
	tier, ok := e.catalog.Tier(tierIndex)
	if !ok || tier.Capacity <= 0 {
		return 0
	}
	lf := LoadFactor(tier, e.catalog.ScenarioFor(round))
	return float64(users) / float64(tier.Capacity) * lf
}

// ResponseTime maps utilization to latency in whole milliseconds.
// The curve is piecewise linear over the configured bands.
func (e *Engine) ResponseTime(utilization float64) int {
	return ResponseTime(e.catalog.Rules.Latency, utilization)
}

// ResponseTime evaluates a latency band table
func ResponseTime(bands []config.LatencyBand, utilization float64) int {
	if len(bands) == 0 {
		return 0
	}
	if utilization < 0 {
		utilization = 0
	}
	band := bands[0]
	for _, b := range bands[1:] {
		if utilization < b.From {
			break
		}
		band = b
	}
	return int(math.Round(band.BaseMs + band.SlopeMs*(utilization-band.From)))
}
