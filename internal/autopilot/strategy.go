// Package autopilot plays whole runs without a human: a Strategy picks one
// action per step and a Pilot applies it to the engine until the run ends.
package autopilot

import (
	"fmt"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/engine"
	"github.com/GoSim-25-26J-441/infra-scaler/internal/policy"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
)

// ActionKind is one of the player's entry points
type ActionKind string

const (
	ActionAdvance ActionKind = "advance"
	ActionScaleUp ActionKind = "scale-up"
	ActionRestart ActionKind = "restart"
)

// Action is a single decision taken in a round
type Action struct {
	Round  int        `json:"round"`
	Kind   ActionKind `json:"kind"`
	Target int        `json:"target,omitempty"` // tier index for scale-up
}

// Strategy decides what to do with a non-terminal state
type Strategy interface {
	Name() string
	Decide(e *engine.Engine, s models.State) Action
}

// StrategyType names a built-in strategy
type StrategyType string

const (
	// StrategyAutopilot restarts crashed servers and scales per the scaling policy
	StrategyAutopilot StrategyType = "autopilot"
	// StrategyIdle only ever advances
	StrategyIdle StrategyType = "idle"
)

// UnknownStrategyError is returned for an unrecognised strategy name
type UnknownStrategyError struct {
	Name string
}

func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("unknown strategy %q (want %q or %q)", e.Name, StrategyAutopilot, StrategyIdle)
}

// NewStrategy creates a built-in strategy by name
func NewStrategy(name string, scaling policy.ScalingPolicy) (Strategy, error) {
	switch StrategyType(name) {
	case StrategyAutopilot:
		if scaling == nil {
			return nil, fmt.Errorf("autopilot strategy requires a scaling policy")
		}
		return &PolicyStrategy{scaling: scaling}, nil
	case StrategyIdle:
		return IdleStrategy{}, nil
	default:
		return nil, &UnknownStrategyError{Name: name}
	}
}

// IdleStrategy never scales and never restarts
type IdleStrategy struct{}

func (IdleStrategy) Name() string { return string(StrategyIdle) }

func (IdleStrategy) Decide(_ *engine.Engine, s models.State) Action {
	return Action{Round: s.Round, Kind: ActionAdvance}
}

// PolicyStrategy restarts as soon as a crash needs it and asks the scaling
// policy whether to buy the next tier before each round.
type PolicyStrategy struct {
	scaling policy.ScalingPolicy
}

// NewPolicyStrategy wraps a scaling policy
func NewPolicyStrategy(scaling policy.ScalingPolicy) *PolicyStrategy {
	return &PolicyStrategy{scaling: scaling}
}

func (p *PolicyStrategy) Name() string { return string(StrategyAutopilot) }

func (p *PolicyStrategy) Decide(e *engine.Engine, s models.State) Action {
	if s.AwaitingRestart() {
		return Action{Round: s.Round, Kind: ActionRestart}
	}
	if p.scaling.ShouldScaleUp(Signal(e, s)) {
		return Action{Round: s.Round, Kind: ActionScaleUp, Target: s.TierIndex + 1}
	}
	return Action{Round: s.Round, Kind: ActionAdvance}
}

// Signal summarises s for a scaling policy
func Signal(e *engine.Engine, s models.State) policy.ScalingSignal {
	sig := policy.ScalingSignal{
		Utilization:          e.Utilization(s),
		ProjectedUtilization: e.ProjectedUtilization(s),
		Budget:               s.Budget,
		RoundsLeft:           e.Catalog().Rules.MaxRounds - s.Round,
		Down:                 s.IsDown(),
	}
	if next, ok := e.NextTier(s); ok {
		sig.HasNextTier = true
		sig.UpgradeCost = next.UpgradeCost
		sig.NextMaintenance = next.MaintenanceCost
	}
	return sig
}
