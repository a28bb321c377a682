package improvement

import (
	"fmt"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/autopilot"
	"github.com/GoSim-25-26J-441/infra-scaler/internal/policy"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
)

// Params are the tunable knobs of the autopilot scaling policy
type Params struct {
	TargetUtilization float64 `json:"target_utilization"`
	ReserveRounds     int     `json:"reserve_rounds"`
	MinRoundsLeft     int     `json:"min_rounds_left"`
}

// ParamsFromConfig reads the autopilot section of the daemon config
func ParamsFromConfig(cfg config.AutopilotConfig) Params {
	return Params{
		TargetUtilization: cfg.TargetUtilization,
		ReserveRounds:     cfg.ReserveRounds,
		MinRoundsLeft:     cfg.MinRoundsLeft,
	}
}

// Config returns p as an autopilot config section
func (p Params) Config() config.AutopilotConfig {
	return config.AutopilotConfig{
		TargetUtilization: p.TargetUtilization,
		ReserveRounds:     p.ReserveRounds,
		MinRoundsLeft:     p.MinRoundsLeft,
	}
}

// Strategy builds the autopilot strategy that plays with p
func (p Params) Strategy() autopilot.Strategy {
	cfg := p.Config()
	return autopilot.NewPolicyStrategy(policy.NewAutoscalingPolicyFromConfig(&cfg))
}

// key identifies p for memoized evaluation; utilization is rounded to 1e-4
func (p Params) key() string {
	return fmt.Sprintf("%.4f/%d/%d", p.TargetUtilization, p.ReserveRounds, p.MinRoundsLeft)
}
