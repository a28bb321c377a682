package advisor

import (
	"context"
	"fmt"
)

// Heuristic answers from the snapshot alone. The daemon uses it when no
// text generation endpoint is configured.
type Heuristic struct{}

// Advise returns a canned hint chosen from the snapshot
func (Heuristic) Advise(ctx context.Context, snap Snapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	st := snap.State

	if snap.Terminal() {
		return fmt.Sprintf("%s. %d crashes and %d rounds of downtime over the run; upgrade before utilization passes 85%% next time.",
			snap.Outcome.Label, st.TotalCrashes, st.TotalDowntime), nil
	}

	switch {
	case st.AwaitingRestart():
		return "The server is down and users are leaving every round. Restart it now.", nil
	case st.IsDown():
		return "Hold tight while the server comes back. Budget still pays maintenance during downtime.", nil
	case snap.NextTier != nil && snap.Utilization >= 0.85 && st.Budget >= snap.NextTier.UpgradeCost:
		return fmt.Sprintf("Utilization is %.0f%% and latency %dms. Upgrade to %s for $%d before the server tips over.",
			snap.Utilization*100, st.LatencyMs, snap.NextTier.Name, snap.NextTier.UpgradeCost), nil
	case snap.NextTier != nil && snap.Utilization >= 0.85:
		return fmt.Sprintf("Utilization is %.0f%% but %s costs $%d and you have $%d. Ride it out and watch stability (%.0f).",
			snap.Utilization*100, snap.NextTier.Name, snap.NextTier.UpgradeCost, st.Budget, st.Stability), nil
	case st.Stability < 50:
		return fmt.Sprintf("Stability is %.0f, so a crash is likely. Ease load below 70%% utilization to let it recover.", st.Stability), nil
	default:
		return fmt.Sprintf("Running at %.0f%% utilization with %dms responses. Keep growing and bank the revenue.",
			snap.Utilization*100, st.LatencyMs), nil
	}
}
