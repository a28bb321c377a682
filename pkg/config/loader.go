package config

import (
	"fmt"
	"os"
)

// LoadCatalog loads and parses a catalog file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	cat, err := ParseCatalogYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}
	return cat, nil
}

// LoadCatalogOrDefault loads path, or returns the built-in catalog when path is empty
func LoadCatalogOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	return LoadCatalog(path)
}

// ValidateCatalog performs validation on the catalog
func ValidateCatalog(c *Catalog) error {
	if err := validateRules(&c.Rules); err != nil {
		return fmt.Errorf("rules validation failed: %w", err)
	}
	if err := validateTiers(c.Tiers); err != nil {
		return fmt.Errorf("tiers validation failed: %w", err)
	}
	if err := validateScenarios(c.Scenarios, c.Rules.MaxRounds); err != nil {
		return fmt.Errorf("scenarios validation failed: %w", err)
	}
	if err := validateMultipliers("default_scenario", c.DefaultScenario.CPUMultiplier, c.DefaultScenario.MemoryMultiplier); err != nil {
		return err
	}
	return nil
}

// validateTiers checks ordering: ascending capacity and upgrade cost,
// non-decreasing maintenance, tier 0 free
func validateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("at least one tier must be defined")
	}
	if tiers[0].UpgradeCost != 0 {
		return fmt.Errorf("tier 0 (%s): upgrade_cost must be 0, got %d", tiers[0].Name, tiers[0].UpgradeCost)
	}

	names := make(map[string]bool)
	for i, t := range tiers {
		if t.Name == "" {
			return fmt.Errorf("tier %d: name cannot be empty", i)
		}
		if names[t.Name] {
			return fmt.Errorf("duplicate tier name: %s", t.Name)
		}
		names[t.Name] = true

		if t.Capacity <= 0 {
			return fmt.Errorf("tier %s: capacity must be positive, got %d", t.Name, t.Capacity)
		}
		if t.UpgradeCost < 0 {
			return fmt.Errorf("tier %s: upgrade_cost cannot be negative", t.Name)
		}
		if t.MaintenanceCost < 0 {
			return fmt.Errorf("tier %s: maintenance_cost cannot be negative", t.Name)
		}
		if err := validateMultipliers("tier "+t.Name, t.CPUMultiplier, t.MemoryMultiplier); err != nil {
			return err
		}

		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if t.Capacity <= prev.Capacity {
			return fmt.Errorf("tier %s: capacity %d must exceed previous tier capacity %d", t.Name, t.Capacity, prev.Capacity)
		}
		if t.UpgradeCost <= prev.UpgradeCost {
			return fmt.Errorf("tier %s: upgrade_cost %d must exceed previous tier upgrade_cost %d", t.Name, t.UpgradeCost, prev.UpgradeCost)
		}
		if t.MaintenanceCost < prev.MaintenanceCost {
			return fmt.Errorf("tier %s: maintenance_cost %d is below previous tier maintenance_cost %d", t.Name, t.MaintenanceCost, prev.MaintenanceCost)
		}
	}
	return nil
}

// validateScenarios rejects duplicate or out-of-range round keys
func validateScenarios(scenarios []ScenarioModifier, maxRounds int) error {
	rounds := make(map[int]bool)
	for i, s := range scenarios {
		if s.Round < 1 || s.Round > maxRounds {
			return fmt.Errorf("scenario %d: round must be between 1 and %d, got %d", i, maxRounds, s.Round)
		}
		if rounds[s.Round] {
			return fmt.Errorf("duplicate scenario round: %d", s.Round)
		}
		rounds[s.Round] = true
		if s.Title == "" {
			return fmt.Errorf("scenario at round %d: title cannot be empty", s.Round)
		}
		if err := validateMultipliers(fmt.Sprintf("scenario at round %d", s.Round), s.CPUMultiplier, s.MemoryMultiplier); err != nil {
			return err
		}
	}
	return nil
}

// validateMultipliers allows 0 (unset) or a positive value
func validateMultipliers(owner string, cpu, mem float64) error {
	if cpu < 0 {
		return fmt.Errorf("%s: cpu_multiplier must be positive, got %f", owner, cpu)
	}
	if mem < 0 {
		return fmt.Errorf("%s: memory_multiplier must be positive, got %f", owner, mem)
	}
	return nil
}

// validateRules validates the engine tuning constants
func validateRules(r *Rules) error {
	if r.MaxRounds <= 0 {
		return fmt.Errorf("max_rounds must be positive, got %d", r.MaxRounds)
	}
	if r.InitialBudget < 0 {
		return fmt.Errorf("initial_budget cannot be negative, got %d", r.InitialBudget)
	}
	if r.InitialUsers <= 0 {
		return fmt.Errorf("initial_users must be positive, got %d", r.InitialUsers)
	}
	if r.RevenuePerUser < 0 {
		return fmt.Errorf("revenue_per_user cannot be negative, got %d", r.RevenuePerUser)
	}
	if r.ScaleUpDowntime <= 0 {
		return fmt.Errorf("scale_up_downtime must be positive, got %d", r.ScaleUpDowntime)
	}
	if r.RebootDowntime <= 0 {
		return fmt.Errorf("reboot_downtime must be positive, got %d", r.RebootDowntime)
	}
	if r.HighLoadThreshold <= 0 {
		return fmt.Errorf("high_load_threshold must be positive, got %f", r.HighLoadThreshold)
	}
	if r.ComfortableUtilization <= 0 || r.ComfortableUtilization > r.HighLoadThreshold {
		return fmt.Errorf("comfortable_utilization must be in (0, high_load_threshold], got %f", r.ComfortableUtilization)
	}
	if r.Growth.Base < 0 {
		return fmt.Errorf("growth base cannot be negative, got %d", r.Growth.Base)
	}
	if r.Growth.RoundDivisor <= 0 {
		return fmt.Errorf("growth round_divisor must be positive, got %d", r.Growth.RoundDivisor)
	}
	if r.Viral.Round < 0 || r.Viral.Round > r.MaxRounds {
		return fmt.Errorf("viral round must be between 0 and %d, got %d", r.MaxRounds, r.Viral.Round)
	}
	if r.Viral.Round > 0 && r.Viral.Multiplier < 1 {
		return fmt.Errorf("viral multiplier must be at least 1, got %d", r.Viral.Multiplier)
	}
	if err := validateChurn(&r.Churn); err != nil {
		return fmt.Errorf("churn: %w", err)
	}
	if err := validateLatency(r.Latency); err != nil {
		return fmt.Errorf("latency: %w", err)
	}
	if r.Stability.StreakThreshold < 1 {
		return fmt.Errorf("stability streak_threshold must be at least 1, got %d", r.Stability.StreakThreshold)
	}
	if r.Stability.CrashSensitivity <= 0 {
		return fmt.Errorf("stability crash_sensitivity must be positive, got %f", r.Stability.CrashSensitivity)
	}
	if r.Stability.HardCeiling <= 1 {
		return fmt.Errorf("stability hard_ceiling must exceed 1.0, got %f", r.Stability.HardCeiling)
	}
	if r.Stability.RebootRecovery < 0 || r.Stability.RebootRecovery > 100 {
		return fmt.Errorf("stability reboot_recovery must be within [0,100], got %f", r.Stability.RebootRecovery)
	}
	prev := -1
	for i, p := range r.Satisfaction.LatencyPenalties {
		if p.Penalty < 0 {
			return fmt.Errorf("satisfaction latency penalty %d cannot be negative", i)
		}
		if prev >= 0 && p.AboveMs >= prev {
			return fmt.Errorf("satisfaction latency penalties must be ordered by descending above_ms")
		}
		prev = p.AboveMs
	}
	return nil
}

func validateChurn(c *ChurnRules) error {
	rates := map[string]float64{
		"outage_min":           c.OutageMin,
		"outage_spread":        c.OutageSpread,
		"overload_rate":        c.OverloadRate,
		"dissatisfaction_rate": c.DissatisfactionRate,
	}
	for name, v := range rates {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1], got %f", name, v)
		}
	}
	if c.OutageMin+c.OutageSpread > 1 {
		return fmt.Errorf("outage_min + outage_spread cannot exceed 1")
	}
	if c.SlownessLatencyMs <= 0 {
		return fmt.Errorf("slowness_latency_ms must be positive, got %d", c.SlownessLatencyMs)
	}
	if c.DissatisfactionFloor < 0 || c.DissatisfactionFloor > 1 {
		return fmt.Errorf("dissatisfaction_floor must be within [0,1], got %f", c.DissatisfactionFloor)
	}
	return nil
}

// latencyTolerance absorbs float error when checking that bands join up
const latencyTolerance = 1e-6

// validateLatency requires bands starting at 0 with increasing starts and slopes
func validateLatency(bands []LatencyBand) error {
	if len(bands) == 0 {
		return fmt.Errorf("at least one band must be defined")
	}
	if bands[0].From != 0 {
		return fmt.Errorf("first band must start at 0, got %f", bands[0].From)
	}
	for i, b := range bands {
		if b.SlopeMs <= 0 {
			return fmt.Errorf("band %d: slope_ms must be positive", i)
		}
		if i == 0 {
			continue
		}
		prev := bands[i-1]
		if b.From <= prev.From {
			return fmt.Errorf("band %d: from must increase", i)
		}
		if b.SlopeMs <= prev.SlopeMs {
			return fmt.Errorf("band %d: slope_ms must increase (convex curve)", i)
		}
		end := prev.BaseMs + prev.SlopeMs*(b.From-prev.From)
		if b.BaseMs < end-latencyTolerance {
			return fmt.Errorf("band %d: base_ms %.0f is below the previous band's end %.0f", i, b.BaseMs, end)
		}
	}
	return nil
}
