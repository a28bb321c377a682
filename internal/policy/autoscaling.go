package policy

import (
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
)

// autoscalingPolicy implements ScalingPolicy with a utilization target and a cash reserve
type autoscalingPolicy struct {
	enabled       bool
	targetUtil    float64
	reserveRounds int
	minRoundsLeft int
}

// NewAutoscalingPolicyFromConfig creates a scaling policy from config
func NewAutoscalingPolicyFromConfig(cfg *config.AutopilotConfig) ScalingPolicy {
	return &autoscalingPolicy{
		enabled:       cfg.TargetUtilization > 0,
		targetUtil:    cfg.TargetUtilization,
		reserveRounds: cfg.ReserveRounds,
		minRoundsLeft: cfg.MinRoundsLeft,
	}
}

// NewAutoscalingPolicy creates a scaling policy with explicit parameters
func NewAutoscalingPolicy(enabled bool, targetUtil float64, reserveRounds, minRoundsLeft int) ScalingPolicy {
	return &autoscalingPolicy{
		enabled:       enabled,
		targetUtil:    targetUtil,
		reserveRounds: reserveRounds,
		minRoundsLeft: minRoundsLeft,
	}
}

func (p *autoscalingPolicy) Enabled() bool {
	return p.enabled
}

func (p *autoscalingPolicy) Name() string {
	return "autoscaling"
}

func (p *autoscalingPolicy) ShouldScaleUp(sig ScalingSignal) bool {
	if !p.enabled || sig.Down || !sig.HasNextTier {
		return false
	}
	if sig.RoundsLeft <= p.minRoundsLeft {
		return false
	}
	if sig.ProjectedUtilization <= p.targetUtil && sig.Utilization <= p.targetUtil {
		return false
	}
	// Keep enough cash to carry the bigger bill through the downtime
	reserve := p.reserveRounds * sig.NextMaintenance
	return sig.Budget-sig.UpgradeCost >= reserve
}
