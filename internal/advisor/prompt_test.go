package advisor

import (
	"context"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/engine"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/utils"
)

func newTestEngine() *engine.Engine {
	return engine.New(config.DefaultCatalog(), utils.NewSequenceSource(0.99))
}

func TestAdvicePrompt(t *testing.T) {
	e := newTestEngine()
	snap := NewSnapshot(e, e.NewState())

	if snap.Terminal() {
		t.Fatal("start state must not be terminal")
	}
	if snap.NextTier == nil || snap.NextTier.Name != "Standard Instance" {
		t.Fatalf("expected next tier Standard Instance, got %+v", snap.NextTier)
	}

	prompt := BuildPrompt(snap)
	for _, want := range []string{
		"Round: 1 of 20",
		"Launch Week",
		"Current tier: Micro Instance",
		"Next tier: Standard Instance",
		"upgrade $2000",
		"Active users: 30",
		"Utilization: 38%",
		"Response time: 195ms",
		"Budget: $5000",
		"Status: online",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("advice prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "Outcome:") {
		t.Errorf("in-run prompt must not contain an outcome:\n%s", prompt)
	}
}

func TestAdvicePromptTopTierAndCrash(t *testing.T) {
	e := newTestEngine()
	s := e.NewState()
	s.TierIndex = 2
	s.Crashed = true

	prompt := BuildPrompt(NewSnapshot(e, s))
	if !strings.Contains(prompt, "already on the largest server") {
		t.Errorf("expected top tier note:\n%s", prompt)
	}
	if !strings.Contains(prompt, "waiting for a manual restart") {
		t.Errorf("expected crash status:\n%s", prompt)
	}
}

func TestPostMortemPrompt(t *testing.T) {
	e := newTestEngine()
	s := e.NewState()
	s.Round = 7
	s.Budget = 0
	s.TotalCrashes = 2
	s.TotalDowntime = 5
	s.TerminationReason = models.TerminationBudgetExhausted

	snap := NewSnapshot(e, s)
	if !snap.Terminal() {
		t.Fatal("expected terminal snapshot")
	}
	if snap.Outcome.Grade != models.GradeF {
		t.Fatalf("expected grade F, got %s", snap.Outcome.Grade)
	}

	prompt := BuildPrompt(snap)
	for _, want := range []string{
		"Outcome: Bankrupt (grade F)",
		"Ended: budget-exhausted in round 7 of 20",
		"Crashes: 2",
		"Rounds of downtime: 5",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("post-mortem prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	e := newTestEngine()
	s, err := e.Advance(e.NewState())
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	snap := NewSnapshot(e, s)
	s.Log[0].Text = "changed"
	if snap.State.Log[0].Text == "changed" {
		t.Error("snapshot must not share the log with the live state")
	}
}

func TestHeuristic(t *testing.T) {
	e := newTestEngine()
	base := e.NewState()

	tests := []struct {
		name  string
		state func() models.State
		want  string
	}{
		{"healthy", func() models.State { return base }, "Keep growing"},
		{"awaiting restart", func() models.State {
			s := base
			s.Crashed = true
			return s
		}, "Restart it now"},
		{"scaling", func() models.State {
			s := base
			s.DowntimeRoundsLeft = 1
			return s
		}, "Hold tight"},
		{"hot and affordable", func() models.State {
			s := base
			s.ActiveUsers = 75
			return s
		}, "Upgrade to Standard"},
		{"hot and broke", func() models.State {
			s := base
			s.ActiveUsers = 75
			s.Budget = 100
			return s
		}, "Ride it out"},
		{"fragile", func() models.State {
			s := base
			s.Stability = 30
			return s
		}, "crash is likely"},
		{"finished", func() models.State {
			s := base
			s.TerminationReason = models.TerminationMaxRounds
			return s
		}, "crashes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := Heuristic{}.Advise(context.Background(), NewSnapshot(e, tt.state()))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(text, tt.want) {
				t.Errorf("expected %q in %q", tt.want, text)
			}
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (Heuristic{}).Advise(ctx, NewSnapshot(e, base)); err == nil {
		t.Error("expected error for cancelled context")
	}
}
