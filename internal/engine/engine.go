package engine

import (
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
)

// Rejected actions return the input state unchanged together with one of these.
var (
	ErrTerminal           = errors.New("simulation is over")
	ErrTierOutOfRange     = errors.New("tier index out of range")
	ErrNotUpgrade         = errors.New("target tier is not an upgrade")
	ErrSystemDown         = errors.New("system is down")
	ErrInsufficientBudget = errors.New("insufficient budget")
	ErrNotAwaitingRestart = errors.New("system is not awaiting a restart")
)

// Random is the source of the engine's random draws, uniform in [0,1).
// utils.RandSource and utils.SequenceSource satisfy it.
type Random interface {
	Float64() float64
}

// Engine resolves rounds and player actions against a catalog.
// It holds no run state: every operation takes a State and returns a new one.
type Engine struct {
	catalog *config.Catalog
	rng     Random
}

// New creates an engine. The catalog must already be validated.
func New(catalog *config.Catalog, rng Random) *Engine {
	return &Engine{
		catalog: catalog,
		rng:     rng,
	}
}

// Catalog returns the catalog the engine reads from
func (e *Engine) Catalog() *config.Catalog {
	return e.catalog
}

// NewState returns the fixed start state of a run
func (e *Engine) NewState() models.State {
	r := e.catalog.Rules
	s := models.State{
		Round:             1,
		TierIndex:         0,
		ActiveUsers:       r.InitialUsers,
		Budget:            r.InitialBudget,
		Satisfaction:      1,
		Stability:         100,
		Log:               []models.LogEntry{},
		TerminationReason: models.TerminationNone,
	}
	s.LatencyMs = e.ResponseTime(e.Utilization(s))
	return s
}

// Reset discards s and returns a fresh start state
func (e *Engine) Reset(models.State) models.State {
	return e.NewState()
}

// IsTerminal reports whether no further rounds may be played
func (e *Engine) IsTerminal(s models.State) bool {
	return s.Round > e.catalog.Rules.MaxRounds ||
		(s.TerminationReason != "" && s.TerminationReason != models.TerminationNone) ||
		(s.Round > 1 && s.ActiveUsers <= 0)
}

// CurrentTier returns the tier the state runs on
func (e *Engine) CurrentTier(s models.State) config.Tier {
	t, ok := e.catalog.Tier(s.TierIndex)
	if !ok {
		panic(fmt.Sprintf("state references unknown tier %d", s.TierIndex))
	}
	return t
}

// NextTier returns the tier after the current one, if any
func (e *Engine) NextTier(s models.State) (config.Tier, bool) {
	return e.catalog.Tier(s.TierIndex + 1)
}

// CanScaleUp reports whether ScaleUp(s, target) would be accepted
func (e *Engine) CanScaleUp(s models.State, target int) error {
	if e.IsTerminal(s) {
		return ErrTerminal
	}
	tier, ok := e.catalog.Tier(target)
	if !ok {
		return fmt.Errorf("%w: %d", ErrTierOutOfRange, target)
	}
	if target <= s.TierIndex {
		return fmt.Errorf("%w: %d <= %d", ErrNotUpgrade, target, s.TierIndex)
	}
	if s.IsDown() {
		return ErrSystemDown
	}
	if s.Budget < tier.UpgradeCost {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientBudget, tier.UpgradeCost, s.Budget)
	}
	return nil
}

// IsPreconditionError reports whether err is a rejected action
func IsPreconditionError(err error) bool {
	return errors.Is(err, ErrTerminal) ||
		errors.Is(err, ErrTierOutOfRange) ||
		errors.Is(err, ErrNotUpgrade) ||
		errors.Is(err, ErrSystemDown) ||
		errors.Is(err, ErrInsufficientBudget) ||
		errors.Is(err, ErrNotAwaitingRestart)
}
