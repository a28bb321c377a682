package advisor

import (
	"fmt"
	"strings"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/engine"
	"github.com/GoSim-25-26J-441/infra-scaler/internal/outcome"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
)

// Snapshot is everything a prompt is built from
type Snapshot struct {
	State       models.State
	MaxRounds   int
	Tier        config.Tier
	NextTier    *config.Tier
	Utilization float64
	Scenario    config.ScenarioModifier
	Outcome     *models.Outcome // set once the run is over
}

// NewSnapshot captures s as seen through e
func NewSnapshot(e *engine.Engine, s models.State) Snapshot {
	cat := e.Catalog()
	snap := Snapshot{
		State:       s.Clone(),
		MaxRounds:   cat.Rules.MaxRounds,
		Tier:        e.CurrentTier(s),
		Utilization: e.Utilization(s),
		Scenario:    cat.ScenarioFor(s.Round),
	}
	if next, ok := e.NextTier(s); ok {
		snap.NextTier = &next
	}
	if e.IsTerminal(s) {
		o := outcome.Classify(cat.Rules.Outcome, s)
		snap.Outcome = &o
	}
	return snap
}

// Terminal reports whether the snapshot is of a finished run
func (s Snapshot) Terminal() bool {
	return s.Outcome != nil
}

// BuildPrompt returns the in-run advice prompt, or the post-mortem prompt
// for a finished run.
func BuildPrompt(s Snapshot) string {
	if s.Terminal() {
		return postMortemPrompt(s)
	}
	return advicePrompt(s)
}

func advicePrompt(s Snapshot) string {
	st := s.State
	var b strings.Builder

	b.WriteString("You are a senior site reliability engineer coaching a startup founder who runs a web app on a single server.\n")
	b.WriteString("Give one or two sentences of practical advice for the next round. Be concrete and mention numbers.\n\n")
	fmt.Fprintf(&b, "Round: %d of %d\n", st.Round, s.MaxRounds)
	fmt.Fprintf(&b, "Scenario: %s. %s\n", s.Scenario.Title, s.Scenario.Narrative)
	fmt.Fprintf(&b, "Current tier: %s (%s), capacity %d users, maintenance $%d per round\n",
		s.Tier.Name, s.Tier.Specs(), s.Tier.Capacity, s.Tier.MaintenanceCost)
	if s.NextTier != nil {
		fmt.Fprintf(&b, "Next tier: %s (%s), capacity %d users, upgrade $%d, maintenance $%d per round\n",
			s.NextTier.Name, s.NextTier.Specs(), s.NextTier.Capacity, s.NextTier.UpgradeCost, s.NextTier.MaintenanceCost)
	} else {
		b.WriteString("Next tier: none, already on the largest server\n")
	}
	fmt.Fprintf(&b, "Active users: %d\n", st.ActiveUsers)
	fmt.Fprintf(&b, "Utilization: %.0f%%\n", s.Utilization*100)
	fmt.Fprintf(&b, "Response time: %dms\n", st.LatencyMs)
	fmt.Fprintf(&b, "Stability: %.0f/100\n", st.Stability)
	fmt.Fprintf(&b, "Satisfaction: %.0f%%\n", st.Satisfaction*100)
	fmt.Fprintf(&b, "Budget: $%d\n", st.Budget)

	switch {
	case st.AwaitingRestart():
		b.WriteString("Status: the server has crashed and is waiting for a manual restart\n")
	case st.Rebooting():
		fmt.Fprintf(&b, "Status: rebooting, %d rounds left\n", st.CrashRebootRoundsLeft)
	case st.Scaling():
		fmt.Fprintf(&b, "Status: migrating to a bigger server, %d rounds of downtime left\n", st.DowntimeRoundsLeft)
	default:
		b.WriteString("Status: online\n")
	}
	return b.String()
}

func postMortemPrompt(s Snapshot) string {
	st := s.State
	var b strings.Builder

	b.WriteString("You are a senior site reliability engineer writing a short post-mortem for a startup founder whose run just ended.\n")
	b.WriteString("In three sentences, say what went well, what went wrong and one lesson for next time.\n\n")
	fmt.Fprintf(&b, "Outcome: %s (grade %s). %s\n", s.Outcome.Label, s.Outcome.Grade, s.Outcome.Narrative)
	fmt.Fprintf(&b, "Ended: %s in round %d of %d\n", st.TerminationReason, st.Round, s.MaxRounds)
	fmt.Fprintf(&b, "Final tier: %s (%s)\n", s.Tier.Name, s.Tier.Specs())
	fmt.Fprintf(&b, "Final users: %d\n", st.ActiveUsers)
	fmt.Fprintf(&b, "Final budget: $%d\n", st.Budget)
	fmt.Fprintf(&b, "Satisfaction: %.0f%%\n", st.Satisfaction*100)
	fmt.Fprintf(&b, "Crashes: %d\n", st.TotalCrashes)
	fmt.Fprintf(&b, "Rounds of downtime: %d\n", st.TotalDowntime)
	fmt.Fprintf(&b, "Upgrades: %d\n", st.Upgrades)
	if st.ViralTriggered {
		b.WriteString("The app went viral during the run.\n")
	}
	return b.String()
}
