package improvement

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// minStepSize stops step halving once utilization moves drop below 0.05*1/8
const minStepSize = 0.125

// EvaluateFunc scores a parameter set; lower is better
type EvaluateFunc func(ctx context.Context, p Params) (float64, error)

// ProgressReporter is called after every iteration with the best score so far
type ProgressReporter func(iteration int, bestScore float64)

// Optimizer implements a hill-climbing optimization algorithm over Params
type Optimizer struct {
	maxIterations int
	stepSize      float64
	explorer      ParameterExplorer
	convergence   ConvergenceStrategy
	progress      ProgressReporter

	mu         sync.RWMutex
	bestScore  float64
	bestParams Params
	iteration  int
	history    []OptimizationStep
	cache      map[string]float64
}

// OptimizationStep represents a single optimization step
type OptimizationStep struct {
	Iteration int     `json:"iteration"`
	Score     float64 `json:"score"`
	Params    Params  `json:"params"`
}

// OptimizationResult contains the final optimization result
type OptimizationResult struct {
	BestParams        Params             `json:"best_params"`
	BestScore         float64            `json:"best_score"`
	Iterations        int                `json:"iterations"`
	Evaluations       int                `json:"evaluations"`
	History           []OptimizationStep `json:"history"`
	Converged         bool               `json:"converged"`
	ConvergenceReason string             `json:"convergence_reason"`
}

// NewOptimizer creates a new hill-climbing optimizer
func NewOptimizer(maxIterations int, stepSize float64) *Optimizer {
	if stepSize <= 0 {
		stepSize = 1.0
	}
	return &Optimizer{
		maxIterations: maxIterations,
		stepSize:      stepSize,
		explorer:      NewDefaultExplorer(),
		convergence:   NewCombinedStrategy(nil),
		bestScore:     math.MaxFloat64,
	}
}

// WithExplorer sets a custom parameter exploration strategy
func (o *Optimizer) WithExplorer(explorer ParameterExplorer) *Optimizer {
	o.explorer = explorer
	return o
}

// WithConvergence sets the convergence strategy
func (o *Optimizer) WithConvergence(c ConvergenceStrategy) *Optimizer {
	o.convergence = c
	return o
}

// WithProgressReporter sets a callback invoked after each iteration
func (o *Optimizer) WithProgressReporter(fn ProgressReporter) *Optimizer {
	o.progress = fn
	return o
}

// Optimize climbs from initial to the best neighbouring parameters. When no
// neighbour improves the step is halved; the climb ends when the step gets
// too small, convergence is detected or maxIterations is reached.
// Each distinct parameter set is evaluated once.
func (o *Optimizer) Optimize(ctx context.Context, initial Params, evaluate EvaluateFunc) (*OptimizationResult, error) {
	if evaluate == nil {
		return nil, fmt.Errorf("evaluation function is required")
	}

	o.mu.Lock()
	o.bestParams = initial
	o.iteration = 0
	o.history = make([]OptimizationStep, 0, o.maxIterations+1)
	o.cache = make(map[string]float64)
	o.mu.Unlock()

	initialScore, err := o.score(ctx, initial, evaluate)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate initial parameters: %w", err)
	}

	o.mu.Lock()
	o.bestScore = initialScore
	o.history = append(o.history, OptimizationStep{Iteration: 0, Score: initialScore, Params: initial})
	o.mu.Unlock()

	current, currentScore := initial, initialScore
	step := o.stepSize

	for iteration := 1; iteration <= o.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		o.mu.Lock()
		o.iteration = iteration
		o.mu.Unlock()

		neighbors := o.explorer.GenerateNeighbors(current, step)
		if len(neighbors) == 0 {
			return o.buildResult(true, "no valid neighbors"), nil
		}

		bestNeighbor := current
		bestNeighborScore := math.MaxFloat64
		for _, n := range neighbors {
			s, err := o.score(ctx, n, evaluate)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				// Skip parameter sets that cannot be evaluated
				continue
			}
			if s < bestNeighborScore {
				bestNeighbor, bestNeighborScore = n, s
			}
		}

		improved := bestNeighborScore < currentScore
		if improved {
			current, currentScore = bestNeighbor, bestNeighborScore
		}

		o.mu.Lock()
		if currentScore < o.bestScore {
			o.bestScore = currentScore
			o.bestParams = current
		}
		o.history = append(o.history, OptimizationStep{Iteration: iteration, Score: currentScore, Params: current})
		best := o.bestScore
		history := o.history
		o.mu.Unlock()

		if o.progress != nil {
			o.progress(iteration, best)
		}

		if !improved {
			// Refine around the current point
			step /= 2
			if step < minStepSize {
				return o.buildResult(true, "local optimum: no neighbor improves"), nil
			}
		}
		if o.convergence != nil {
			if converged, reason := o.convergence.CheckConvergence(history); converged {
				return o.buildResult(true, reason), nil
			}
		}
	}

	return o.buildResult(false, "max iterations reached"), nil
}

// score evaluates p once and memoizes the result
func (o *Optimizer) score(ctx context.Context, p Params, evaluate EvaluateFunc) (float64, error) {
	k := p.key()
	o.mu.RLock()
	s, ok := o.cache[k]
	o.mu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := evaluate(ctx, p)
	if err != nil {
		return 0, err
	}
	o.mu.Lock()
	o.cache[k] = s
	o.mu.Unlock()
	return s, nil
}

// buildResult constructs the optimization result
func (o *Optimizer) buildResult(converged bool, reason string) *OptimizationResult {
	o.mu.RLock()
	defer o.mu.RUnlock()

	history := make([]OptimizationStep, len(o.history))
	copy(history, o.history)
	return &OptimizationResult{
		BestParams:        o.bestParams,
		BestScore:         o.bestScore,
		Iterations:        o.iteration,
		Evaluations:       len(o.cache),
		History:           history,
		Converged:         converged,
		ConvergenceReason: reason,
	}
}
