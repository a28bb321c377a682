package engine

import (
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
)

// ScaleUp moves the run to a larger tier. It charges the target's upgrade
// cost once and takes the system offline for the scale-up downtime.
// Any failed precondition returns s unchanged.
func (e *Engine) ScaleUp(s models.State, target int) (models.State, error) {
	if err := e.CanScaleUp(s, target); err != nil {
		return s, err
	}
	tier := e.catalog.Tiers[target]
	downtime := e.catalog.Rules.ScaleUpDowntime

	next := s.Clone()
	next.Budget -= tier.UpgradeCost
	next.TierIndex = target
	next.DowntimeRoundsLeft = downtime
	next.ConsecutiveHighLoadRounds = 0
	next.Upgrades++
	next.TotalDowntime++
	next.Log = append(next.Log, entry(s.Round, models.LogDowntime,
		"Round %d: scaling up to %s (tier %d) for $%d. %d rounds of downtime.",
		s.Round, tier.Name, target+1, tier.UpgradeCost, downtime))
	next.LatencyMs = e.ResponseTime(e.Utilization(next))
	return next, nil
}

// Restart begins the reboot countdown of a crashed system that is waiting for it
func (e *Engine) Restart(s models.State) (models.State, error) {
	if e.IsTerminal(s) {
		return s, ErrTerminal
	}
	if !s.AwaitingRestart() {
		return s, ErrNotAwaitingRestart
	}
	reboot := e.catalog.Rules.RebootDowntime

	next := s.Clone()
	next.CrashRebootRoundsLeft = reboot
	next.Log = append(next.Log, entry(s.Round, models.LogRecover,
		"Round %d: reboot initiated (%d rounds).", s.Round, reboot))
	return next, nil
}
