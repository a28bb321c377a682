package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
)

func TestScaleUp(t *testing.T) {
	e := newTestEngine()
	s := e.NewState()

	next, err := e.ScaleUp(s, 1)
	if err != nil {
		t.Fatalf("ScaleUp failed: %v", err)
	}
	if next.Budget != s.Budget-2000 {
		t.Errorf("expected budget to drop by exactly 2000, got %d", next.Budget)
	}
	if next.TierIndex != 1 {
		t.Errorf("expected tier 1, got %d", next.TierIndex)
	}
	if next.DowntimeRoundsLeft != 2 {
		t.Errorf("expected 2 downtime rounds, got %d", next.DowntimeRoundsLeft)
	}
	if next.Upgrades != 1 || next.TotalDowntime != 1 {
		t.Errorf("expected counters 1/1, got %d/%d", next.Upgrades, next.TotalDowntime)
	}
	if next.Round != s.Round {
		t.Errorf("scale-up must not advance the round")
	}
	added := NewEntries(s, next)
	if len(added) != 1 || added[0].Kind != models.LogDowntime {
		t.Errorf("expected one downtime entry, got %+v", added)
	}
}

func TestScaleUpSkippingTier(t *testing.T) {
	e := newTestEngine()
	s := e.NewState()

	next, err := e.ScaleUp(s, 2)
	if err != nil {
		t.Fatalf("ScaleUp failed: %v", err)
	}
	if next.Budget != 1000 || next.TierIndex != 2 {
		t.Errorf("expected tier 2 with budget 1000, got tier %d budget %d", next.TierIndex, next.Budget)
	}
}

func TestScaleUpRejected(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name    string
		state   func() models.State
		target  int
		wantErr error
	}{
		{
			name:    "Insufficient budget",
			state:   func() models.State { s := e.NewState(); s.Budget = 1999; return s },
			target:  1,
			wantErr: ErrInsufficientBudget,
		},
		{
			name:    "Same tier",
			state:   e.NewState,
			target:  0,
			wantErr: ErrNotUpgrade,
		},
		{
			name:    "Downgrade",
			state:   func() models.State { s := e.NewState(); s.TierIndex = 2; return s },
			target:  1,
			wantErr: ErrNotUpgrade,
		},
		{
			name:    "Out of range",
			state:   e.NewState,
			target:  3,
			wantErr: ErrTierOutOfRange,
		},
		{
			name:    "Negative index",
			state:   e.NewState,
			target:  -1,
			wantErr: ErrTierOutOfRange,
		},
		{
			name:    "While scaling",
			state:   func() models.State { s := e.NewState(); s.TierIndex = 1; s.DowntimeRoundsLeft = 1; return s },
			target:  2,
			wantErr: ErrSystemDown,
		},
		{
			name:    "While crashed",
			state:   func() models.State { s := e.NewState(); s.Crashed = true; return s },
			target:  1,
			wantErr: ErrSystemDown,
		},
		{
			name:    "Terminal",
			state:   func() models.State { s := e.NewState(); s.TerminationReason = models.TerminationMaxRounds; return s },
			target:  1,
			wantErr: ErrTerminal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.state()
			next, err := e.ScaleUp(s, tt.target)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if !reflect.DeepEqual(next, s) {
				t.Errorf("rejected scale-up changed the state")
			}
		})
	}
}

func TestRestartRejected(t *testing.T) {
	e := newTestEngine()

	up := e.NewState()
	if _, err := e.Restart(up); !errors.Is(err, ErrNotAwaitingRestart) {
		t.Errorf("expected ErrNotAwaitingRestart for a healthy system, got %v", err)
	}

	done := e.NewState()
	done.Crashed = true
	done.TerminationReason = models.TerminationBudgetExhausted
	if _, err := e.Restart(done); !errors.Is(err, ErrTerminal) {
		t.Errorf("expected ErrTerminal, got %v", err)
	}
}
