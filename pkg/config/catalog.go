package config

import (
	"fmt"
	"sort"
)

// Catalog is the single versioned source of truth for a simulation:
// the ordered tier list, the sparse scenario table and the tuning rules.
type Catalog struct {
	Version         string             `yaml:"version" json:"version"`
	Rules           Rules              `yaml:"rules" json:"rules"`
	Tiers           []Tier             `yaml:"tiers" json:"tiers"`
	Scenarios       []ScenarioModifier `yaml:"scenarios" json:"scenarios"`
	DefaultScenario ScenarioModifier   `yaml:"default_scenario" json:"default_scenario"`
}

// Tier is an immutable server configuration the player can upgrade to
type Tier struct {
	Name             string  `yaml:"name" json:"name"`
	Capacity         int     `yaml:"capacity" json:"capacity"`
	ComputeSpecs     string  `yaml:"compute_specs,omitempty" json:"compute_specs,omitempty"`
	VCPU             int     `yaml:"vcpu,omitempty" json:"vcpu,omitempty"`
	MemoryGB         int     `yaml:"memory_gb,omitempty" json:"memory_gb,omitempty"`
	UpgradeCost      int     `yaml:"upgrade_cost" json:"upgrade_cost"`
	MaintenanceCost  int     `yaml:"maintenance_cost" json:"maintenance_cost"`
	CPUMultiplier    float64 `yaml:"cpu_multiplier,omitempty" json:"cpu_multiplier,omitempty"`
	MemoryMultiplier float64 `yaml:"memory_multiplier,omitempty" json:"memory_multiplier,omitempty"`
}

// Specs returns the display string for the tier hardware
func (t Tier) Specs() string {
	if t.ComputeSpecs != "" {
		return t.ComputeSpecs
	}
	return fmt.Sprintf("%d vCPU, %d GB", t.VCPU, t.MemoryGB)
}

// ScenarioModifier is a narrative event active from Round until the next entry
type ScenarioModifier struct {
	Round            int     `yaml:"round" json:"round"`
	Title            string  `yaml:"title" json:"title"`
	Narrative        string  `yaml:"narrative" json:"narrative"`
	CPUMultiplier    float64 `yaml:"cpu_multiplier,omitempty" json:"cpu_multiplier,omitempty"`
	MemoryMultiplier float64 `yaml:"memory_multiplier,omitempty" json:"memory_multiplier,omitempty"`
}

// Rules holds every tunable constant of the round engine
type Rules struct {
	MaxRounds              int               `yaml:"max_rounds" json:"max_rounds"`
	InitialBudget          int               `yaml:"initial_budget" json:"initial_budget"`
	InitialUsers           int               `yaml:"initial_users" json:"initial_users"`
	RevenuePerUser         int               `yaml:"revenue_per_user" json:"revenue_per_user"`
	ScaleUpDowntime        int               `yaml:"scale_up_downtime" json:"scale_up_downtime"`
	RebootDowntime         int               `yaml:"reboot_downtime" json:"reboot_downtime"`
	HighLoadThreshold      float64           `yaml:"high_load_threshold" json:"high_load_threshold"`
	ComfortableUtilization float64           `yaml:"comfortable_utilization" json:"comfortable_utilization"`
	Growth                 GrowthRules       `yaml:"growth" json:"growth"`
	Viral                  ViralRules        `yaml:"viral" json:"viral"`
	Churn                  ChurnRules        `yaml:"churn" json:"churn"`
	Latency                []LatencyBand     `yaml:"latency" json:"latency"`
	Stability              StabilityRules    `yaml:"stability" json:"stability"`
	Satisfaction           SatisfactionRules `yaml:"satisfaction" json:"satisfaction"`
	Outcome                OutcomeRules      `yaml:"outcome" json:"outcome"`
}

// GrowthRules defines new users per round: Base + round/RoundDivisor
type GrowthRules struct {
	Base         int `yaml:"base" json:"base"`
	RoundDivisor int `yaml:"round_divisor" json:"round_divisor"`
}

// ViralRules defines the scripted one-off growth surge
type ViralRules struct {
	Round                 int     `yaml:"round" json:"round"` // 0 disables the event
	SatisfactionThreshold float64 `yaml:"satisfaction_threshold" json:"satisfaction_threshold"`
	Multiplier            int     `yaml:"multiplier" json:"multiplier"`
}

// ChurnRules parameterises the four churn branches
type ChurnRules struct {
	OutageMin            float64 `yaml:"outage_min" json:"outage_min"`
	OutageSpread         float64 `yaml:"outage_spread" json:"outage_spread"`
	OverloadRate         float64 `yaml:"overload_rate" json:"overload_rate"`
	SlownessLatencyMs    int     `yaml:"slowness_latency_ms" json:"slowness_latency_ms"`
	SlownessBand         float64 `yaml:"slowness_band" json:"slowness_band"`
	SlownessSlope        float64 `yaml:"slowness_slope" json:"slowness_slope"`
	SlownessBase         float64 `yaml:"slowness_base" json:"slowness_base"`
	DissatisfactionFloor float64 `yaml:"dissatisfaction_floor" json:"dissatisfaction_floor"`
	DissatisfactionRate  float64 `yaml:"dissatisfaction_rate" json:"dissatisfaction_rate"`
}

// LatencyBand applies from From (inclusive) up to the next band's From:
// latency = BaseMs + SlopeMs*(utilization-From)
type LatencyBand struct {
	From    float64 `yaml:"from" json:"from"`
	BaseMs  float64 `yaml:"base_ms" json:"base_ms"`
	SlopeMs float64 `yaml:"slope_ms" json:"slope_ms"`
}

// StabilityRules parameterises stability drift and the crash roll
type StabilityRules struct {
	StreakThreshold  int     `yaml:"streak_threshold" json:"streak_threshold"`
	StreakPenalty    float64 `yaml:"streak_penalty" json:"streak_penalty"`
	RecoveryBonus    float64 `yaml:"recovery_bonus" json:"recovery_bonus"`
	ScalingBonus     float64 `yaml:"scaling_bonus" json:"scaling_bonus"`
	CrashPenalty     float64 `yaml:"crash_penalty" json:"crash_penalty"`
	CrashSensitivity float64 `yaml:"crash_sensitivity" json:"crash_sensitivity"`
	HardCeiling      float64 `yaml:"hard_ceiling" json:"hard_ceiling"`
	RebootRecovery   float64 `yaml:"reboot_recovery" json:"reboot_recovery"`
}

// LatencyPenalty removes Penalty satisfaction when latency exceeds AboveMs
type LatencyPenalty struct {
	AboveMs int     `yaml:"above_ms" json:"above_ms"`
	Penalty float64 `yaml:"penalty" json:"penalty"`
}

// SatisfactionRules parameterises satisfaction decay and recovery
type SatisfactionRules struct {
	CrashPenalty     float64          `yaml:"crash_penalty" json:"crash_penalty"`
	ScalingDecay     float64          `yaml:"scaling_decay" json:"scaling_decay"`
	RebootDecay      float64          `yaml:"reboot_decay" json:"reboot_decay"`
	WaitingDecay     float64          `yaml:"waiting_decay" json:"waiting_decay"`
	LatencyPenalties []LatencyPenalty `yaml:"latency_penalties" json:"latency_penalties"`
	LowLatencyMs     int              `yaml:"low_latency_ms" json:"low_latency_ms"`
	LowLatencyBonus  float64          `yaml:"low_latency_bonus" json:"low_latency_bonus"`
}

// OutcomeRules holds the thresholds of the outcome cascade
type OutcomeRules struct {
	UnicornBudget       int     `yaml:"unicorn_budget" json:"unicorn_budget"`
	UnicornSatisfaction float64 `yaml:"unicorn_satisfaction" json:"unicorn_satisfaction"`
	UnicornMaxDowntime  int     `yaml:"unicorn_max_downtime" json:"unicorn_max_downtime"`
	SolidBudget         int     `yaml:"solid_budget" json:"solid_budget"`
	SolidSatisfaction   float64 `yaml:"solid_satisfaction" json:"solid_satisfaction"`
	SolidMaxDowntime    int     `yaml:"solid_max_downtime" json:"solid_max_downtime"`
	SolidMaxCrashes     int     `yaml:"solid_max_crashes" json:"solid_max_crashes"`
	SurvivorMinUsers    int     `yaml:"survivor_min_users" json:"survivor_min_users"`
}

// Tier returns the tier at index i
func (c *Catalog) Tier(i int) (Tier, bool) {
	if i < 0 || i >= len(c.Tiers) {
		return Tier{}, false
	}
	return c.Tiers[i], true
}

// ScenarioFor returns the modifier active in round r: the entry with the
// largest key <= r, or DefaultScenario when none exists.
func (c *Catalog) ScenarioFor(round int) ScenarioModifier {
	active := c.DefaultScenario
	found := false
	best := 0
	for _, s := range c.Scenarios {
		if s.Round <= round && (!found || s.Round > best) {
			active = s
			best = s.Round
			found = true
		}
	}
	return active
}

// sortScenarios orders the scenario table by round
func (c *Catalog) sortScenarios() {
	sort.SliceStable(c.Scenarios, func(i, j int) bool {
		return c.Scenarios[i].Round < c.Scenarios[j].Round
	})
}
