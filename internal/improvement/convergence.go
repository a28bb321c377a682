package improvement

import (
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/infra-scaler/pkg/utils"
)

// ConvergenceStrategy defines how to detect convergence
type ConvergenceStrategy interface {
	// CheckConvergence checks if optimization has converged based on history
	CheckConvergence(history []OptimizationStep) (bool, string)
	// Name returns the name of the convergence strategy
	Name() string
}

// ConvergenceConfig holds configuration for convergence detection
type ConvergenceConfig struct {
	// NoImprovementIterations is the number of iterations without improvement before stopping
	NoImprovementIterations int
	// ScoreTolerance is the absolute tolerance for score changes to be considered equal
	ScoreTolerance float64
	// MinIterations is the minimum number of iterations before convergence can be detected
	MinIterations int
	// PlateauIterations is the number of iterations with similar scores (plateau) before stopping
	PlateauIterations int
}

// DefaultConvergenceConfig returns a default convergence configuration
func DefaultConvergenceConfig() *ConvergenceConfig {
	return &ConvergenceConfig{
		NoImprovementIterations: 3,
		ScoreTolerance:          1e-6,
		MinIterations:           2,
		PlateauIterations:       4,
	}
}

// NoImprovementStrategy detects convergence when there's no improvement for N iterations
type NoImprovementStrategy struct {
	config *ConvergenceConfig
}

// NewNoImprovementStrategy creates a new no-improvement convergence strategy
func NewNoImprovementStrategy(config *ConvergenceConfig) *NoImprovementStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &NoImprovementStrategy{config: config}
}

func (s *NoImprovementStrategy) Name() string {
	return "no_improvement"
}

func (s *NoImprovementStrategy) CheckConvergence(history []OptimizationStep) (converged bool, reason string) {
	if len(history) < s.config.MinIterations {
		return false, ""
	}

	bestScore := math.MaxFloat64
	bestIteration := -1
	for i, step := range history {
		if step.Score < bestScore-s.config.ScoreTolerance {
			bestScore = step.Score
			bestIteration = i
		}
	}
	if bestIteration < 0 {
		return false, ""
	}

	iterationsSinceBest := len(history) - 1 - bestIteration
	if iterationsSinceBest >= s.config.NoImprovementIterations {
		return true, fmt.Sprintf("no improvement for %d iterations (best at iteration %d)", iterationsSinceBest, bestIteration)
	}
	return false, ""
}

// PlateauStrategy detects convergence when scores have plateaued (similar scores)
type PlateauStrategy struct {
	config *ConvergenceConfig
}

// NewPlateauStrategy creates a new plateau convergence strategy
func NewPlateauStrategy(config *ConvergenceConfig) *PlateauStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &PlateauStrategy{config: config}
}

func (s *PlateauStrategy) Name() string {
	return "plateau"
}

func (s *PlateauStrategy) CheckConvergence(history []OptimizationStep) (converged bool, reason string) {
	if len(history) < s.config.MinIterations || len(history) < s.config.PlateauIterations {
		return false, ""
	}

	recent := history[len(history)-s.config.PlateauIterations:]
	scores := make([]float64, len(recent))
	for i, step := range recent {
		scores[i] = step.Score
	}
	minScore, maxScore := utils.MinMax(scores)

	if scoreRange := maxScore - minScore; scoreRange <= s.config.ScoreTolerance {
		return true, fmt.Sprintf("score plateaued for %d iterations (range: %.6f)", s.config.PlateauIterations, scoreRange)
	}
	return false, ""
}

// CombinedStrategy converges as soon as any of its strategies does
type CombinedStrategy struct {
	strategies []ConvergenceStrategy
}

// NewCombinedStrategy creates a strategy combining no-improvement and plateau detection
func NewCombinedStrategy(config *ConvergenceConfig) *CombinedStrategy {
	if config == nil {
		config = DefaultConvergenceConfig()
	}
	return &CombinedStrategy{
		strategies: []ConvergenceStrategy{
			NewNoImprovementStrategy(config),
			NewPlateauStrategy(config),
		},
	}
}

func (s *CombinedStrategy) Name() string {
	return "combined"
}

func (s *CombinedStrategy) CheckConvergence(history []OptimizationStep) (converged bool, reason string) {
	for _, strategy := range s.strategies {
		if converged, reason := strategy.CheckConvergence(history); converged {
			return true, fmt.Sprintf("%s: %s", strategy.Name(), reason)
		}
	}
	return false, ""
}
