package engine

import (
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/utils"
)

// Advance resolves one round and returns the next state.
//
// Calling Advance on a terminal state returns s unchanged with ErrTerminal.
// In the last round the call only records max-rounds-reached; the round
// counter stays at the horizon.
//
// Exactly one random draw is consumed per played round: the outage churn
// rate while the system is down, the crash roll while it is up.
func (e *Engine) Advance(s models.State) (models.State, error) {
	if e.IsTerminal(s) {
		return s, ErrTerminal
	}
	rules := e.catalog.Rules
	next := s.Clone()

	if s.Round >= rules.MaxRounds {
		next.TerminationReason = models.TerminationMaxRounds
		next.Log = append(next.Log, entry(s.Round, models.LogTerminal,
			"Round %d: the final round is over. Time to review the results.", s.Round))
		return next, nil
	}

	tier := e.CurrentTier(s)
	down := s.IsDown()

	// What users experienced at the start of the round
	util := e.Utilization(s)
	latency := e.ResponseTime(util)

	growth := 0
	viral := false
	if !down {
		growth = e.UserGrowth(s.Round)
		v := rules.Viral
		if v.Round > 0 && s.Round == v.Round && !s.ViralTriggered && s.Satisfaction >= v.SatisfactionThreshold {
			growth *= v.Multiplier
			viral = true
		}
	}
	pool := s.ActiveUsers + growth

	churned, churnLog := e.churn(s, pool, down, util, latency)
	users := utils.Max(0, pool-churned)
	nextUtil := e.utilizationFor(users, s.TierIndex, s.Round)

	revenue := 0
	if !down {
		revenue = users * rules.RevenuePerUser
	}
	net := revenue - tier.MaintenanceCost
	next.Budget = s.Budget + net

	st := rules.Stability
	sr := rules.Satisfaction
	sat := s.Satisfaction
	stab := s.Stability
	var events []models.LogEntry

	streak := 0
	if !down && nextUtil > rules.HighLoadThreshold {
		streak = s.ConsecutiveHighLoadRounds + 1
	}
	if streak >= st.StreakThreshold {
		stab -= st.StreakPenalty * float64(streak)
	} else if !down && nextUtil < rules.ComfortableUtilization {
		stab += st.RecoveryBonus
	}
	stab = utils.ClampFloat64(stab, 0, 100)

	crashed := false
	if !down {
		roll := e.rng.Float64()
		if roll < (100-stab)/st.CrashSensitivity || nextUtil > st.HardCeiling {
			crashed = true
			next.Crashed = true
			next.CrashRebootRoundsLeft = 0
			next.TotalCrashes++
			next.TotalDowntime++
			stab = utils.ClampFloat64(stab-st.CrashPenalty, 0, 100)
			sat -= sr.CrashPenalty
			streak = 0
			events = append(events, entry(s.Round, models.LogCrash,
				"Critical failure! Sustained load broke the server. Manual restart required."))
		}
	}

	switch {
	case s.DowntimeRoundsLeft > 0:
		next.DowntimeRoundsLeft = s.DowntimeRoundsLeft - 1
		next.TotalDowntime++
		sat -= sr.ScalingDecay
		stab = math.Min(100, stab+st.ScalingBonus)
		events = append(events, entry(s.Round, models.LogDowntime,
			"Downtime: scaling in progress (%d rounds left).", next.DowntimeRoundsLeft))
		if next.DowntimeRoundsLeft == 0 {
			events = append(events, entry(s.Round, models.LogRecover,
				"Scaling complete. %s is online.", tier.Name))
		}
	case s.Crashed:
		next.TotalDowntime++
		if s.CrashRebootRoundsLeft > 0 {
			next.CrashRebootRoundsLeft = s.CrashRebootRoundsLeft - 1
			sat -= sr.RebootDecay
			events = append(events, entry(s.Round, models.LogCrash,
				"Downtime: rebooting (%d rounds left).", next.CrashRebootRoundsLeft))
			if next.CrashRebootRoundsLeft == 0 {
				next.Crashed = false
				stab = st.RebootRecovery
				events = append(events, entry(s.Round, models.LogRecover, "Reboot finished. System online."))
			}
		} else {
			sat -= sr.WaitingDecay
			events = append(events, entry(s.Round, models.LogCrash, "System is offline. Restart required."))
		}
	}

	if !down && !crashed {
		sat += e.latencyAdjustment(latency)
	}

	next.ActiveUsers = users
	next.Satisfaction = utils.Round(utils.ClampFloat64(sat, 0, 1), 2)
	next.Stability = utils.ClampFloat64(stab, 0, 100)
	next.ConsecutiveHighLoadRounds = streak
	if viral {
		next.ViralTriggered = true
	}

	if next.Budget < 0 {
		next.Budget = 0
		next.TerminationReason = models.TerminationBudgetExhausted
	} else if users <= 0 {
		next.TerminationReason = models.TerminationNoUsers
	}

	sign := "+"
	if net < 0 {
		sign = "-"
	}
	next.Log = append(next.Log, entry(s.Round, models.LogNormal,
		"Round %d: users %d -> %d (net %s$%d)", s.Round, s.ActiveUsers, users, sign, utils.Abs(net)))
	if viral {
		next.Log = append(next.Log, entry(s.Round, models.LogViral,
			"Viral success! A popular post doubled this round's sign-ups."))
	}
	if churnLog != nil {
		next.Log = append(next.Log, *churnLog)
	}
	next.Log = append(next.Log, events...)
	switch next.TerminationReason {
	case models.TerminationBudgetExhausted:
		next.Log = append(next.Log, entry(s.Round, models.LogTerminal, "Out of money. Operating costs exceeded revenue."))
	case models.TerminationNoUsers:
		next.Log = append(next.Log, entry(s.Round, models.LogTerminal, "Every user has left the platform."))
	}

	next.Round = s.Round + 1
	next.LatencyMs = e.ResponseTime(e.Utilization(next))
	return next, nil
}

// churn evaluates the churn cascade; the first matching branch wins
func (e *Engine) churn(s models.State, pool int, down bool, util float64, latency int) (int, *models.LogEntry) {
	c := e.catalog.Rules.Churn
	p := float64(pool)

	switch {
	case down:
		rate := c.OutageMin + e.rng.Float64()*c.OutageSpread
		n := utils.CeilInt(p * rate)
		return n, entryPtr(s.Round, models.LogDowntime, "%d users left while the site was offline.", n)
	case util >= 1:
		n := utils.CeilInt(p * c.OverloadRate)
		return n, entryPtr(s.Round, models.LogWarnOverload,
			"System overloaded! %d users (%.0f%%) gave up.", n, c.OverloadRate*100)
	case latency > c.SlownessLatencyMs:
		n := utils.CeilInt(p * ((util-c.SlownessBand)*c.SlownessSlope + c.SlownessBase))
		return n, entryPtr(s.Round, models.LogWarnSlow, "%d users lost to slow responses (%dms).", n, latency)
	case s.Satisfaction < c.DissatisfactionFloor:
		n := utils.CeilInt((1 - s.Satisfaction) * c.DissatisfactionRate * p)
		if n == 0 {
			return 0, nil
		}
		return n, entryPtr(s.Round, models.LogWarnDissatisfied, "%d users quit over low satisfaction.", n)
	}
	return 0, nil
}

// latencyAdjustment returns the satisfaction change for a healthy round
func (e *Engine) latencyAdjustment(latency int) float64 {
	sr := e.catalog.Rules.Satisfaction
	for _, p := range sr.LatencyPenalties {
		if latency > p.AboveMs {
			return -p.Penalty
		}
	}
	if latency < sr.LowLatencyMs {
		return sr.LowLatencyBonus
	}
	return 0
}

func entry(round int, kind models.LogKind, format string, args ...any) models.LogEntry {
	return models.LogEntry{Round: round, Kind: kind, Text: fmt.Sprintf(format, args...)}
}

func entryPtr(round int, kind models.LogKind, format string, args ...any) *models.LogEntry {
	e := entry(round, kind, format, args...)
	return &e
}
