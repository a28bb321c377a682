package autopilot

import (
	"context"
	"fmt"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/engine"
	"github.com/GoSim-25-26J-441/infra-scaler/internal/outcome"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
)

// Result is a finished headless run
type Result struct {
	Strategy string         `json:"strategy"`
	Seed     int64          `json:"seed"`
	Final    models.State   `json:"final"`
	Outcome  models.Outcome `json:"outcome"`
	Actions  []Action       `json:"actions"`
}

// Observer sees every state the pilot produces, in order
type Observer func(s models.State)

// Pilot drives an engine with a strategy
type Pilot struct {
	engine   *engine.Engine
	strategy Strategy
	observer Observer
}

// NewPilot creates a pilot. observer may be nil.
func NewPilot(e *engine.Engine, strategy Strategy, observer Observer) *Pilot {
	return &Pilot{
		engine:   e,
		strategy: strategy,
		observer: observer,
	}
}

// Step applies the strategy's next action to s
func (p *Pilot) Step(s models.State) (models.State, Action, error) {
	act := p.strategy.Decide(p.engine, s)

	var next models.State
	var err error
	switch act.Kind {
	case ActionRestart:
		next, err = p.engine.Restart(s)
	case ActionScaleUp:
		next, err = p.engine.ScaleUp(s, act.Target)
	default:
		next, err = p.engine.Advance(s)
	}
	if err != nil {
		return s, act, fmt.Errorf("%s in round %d: %w", act.Kind, act.Round, err)
	}
	return next, act, nil
}

// Run plays s to the end. The number of steps is bounded: every round allows
// at most one restart and one scale-up besides the advance.
func (p *Pilot) Run(ctx context.Context, s models.State) (*Result, error) {
	maxSteps := 3 * (p.engine.Catalog().Rules.MaxRounds + 1)
	res := &Result{Strategy: p.strategy.Name()}

	for step := 0; !p.engine.IsTerminal(s); step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if step >= maxSteps {
			return nil, fmt.Errorf("strategy %s did not finish within %d steps", p.strategy.Name(), maxSteps)
		}

		next, act, err := p.Step(s)
		if err != nil {
			// A rejected action is a strategy bug, not an engine failure
			if engine.IsPreconditionError(err) {
				return nil, fmt.Errorf("strategy %s chose an invalid action: %w", p.strategy.Name(), err)
			}
			return nil, err
		}
		res.Actions = append(res.Actions, act)
		s = next
		if p.observer != nil {
			p.observer(s)
		}
	}

	res.Final = s
	res.Outcome = outcome.Classify(p.engine.Catalog().Rules.Outcome, s)
	return res, nil
}
