package improvement

import (
	"context"
	"fmt"
	"sync"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/autopilot"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/logger"
)

// Orchestrator tunes the autopilot: every candidate parameter set is played
// over the same seeds and scored by the objective.
type Orchestrator struct {
	catalog     *config.Catalog
	seeds       []int64
	maxParallel int
	objective   ObjectiveFunction
	optimizer   *Optimizer

	mu      sync.Mutex
	batches map[string]*autopilot.BatchResult
}

// TuneResult is the outcome of a tuning experiment
type TuneResult struct {
	Objective  string             `json:"objective"`
	Seeds      int                `json:"seeds"`
	Initial    Params             `json:"initial"`
	Best       Params             `json:"best"`
	BestScore  float64            `json:"best_score"` // in the objective's own units
	BestBatch  *BatchSummary      `json:"best_batch"`
	Iterations int                `json:"iterations"`
	Evaluated  int                `json:"evaluated"`
	Converged  bool               `json:"converged"`
	Reason     string             `json:"reason"`
	History    []OptimizationStep `json:"history"`
}

// BatchSummary is a BatchResult without the individual runs
type BatchSummary struct {
	GradeCounts map[string]int `json:"grade_counts"`
	MeanBudget  float64        `json:"mean_budget"`
	MeanUsers   float64        `json:"mean_users"`
}

// NewOrchestrator creates an orchestrator playing seeds with at most maxParallel runs at a time
func NewOrchestrator(catalog *config.Catalog, seeds []int64, maxParallel int, optimizer *Optimizer, objective ObjectiveFunction) *Orchestrator {
	return &Orchestrator{
		catalog:     catalog,
		seeds:       seeds,
		maxParallel: maxParallel,
		objective:   objective,
		optimizer:   optimizer,
		batches:     make(map[string]*autopilot.BatchResult),
	}
}

// Evaluate plays p over every seed and returns its score (lower is better)
func (o *Orchestrator) Evaluate(ctx context.Context, p Params) (float64, error) {
	batch, err := autopilot.RunBatch(ctx, o.catalog, p.Strategy(), o.seeds, o.maxParallel)
	if err != nil {
		return 0, fmt.Errorf("failed to play batch for %s: %w", p.key(), err)
	}
	score, err := o.objective.Evaluate(batch)
	if err != nil {
		return 0, fmt.Errorf("failed to score batch for %s: %w", p.key(), err)
	}

	o.mu.Lock()
	o.batches[p.key()] = batch
	o.mu.Unlock()

	logger.Debug("parameters evaluated",
		"target_utilization", p.TargetUtilization,
		"reserve_rounds", p.ReserveRounds,
		"min_rounds_left", p.MinRoundsLeft,
		"objective", o.objective.Name(),
		"score", NaturalScore(o.objective, score))
	return score, nil
}

// RunExperiment tunes from initial and returns the best parameters found
func (o *Orchestrator) RunExperiment(ctx context.Context, initial Params) (*TuneResult, error) {
	if len(o.seeds) == 0 {
		return nil, fmt.Errorf("no seeds provided")
	}
	if o.optimizer == nil || o.objective == nil {
		return nil, fmt.Errorf("optimizer and objective are required")
	}

	logger.Info("tuning started",
		"objective", o.objective.Name(),
		"seeds", len(o.seeds),
		"initial_target", initial.TargetUtilization)

	res, err := o.optimizer.Optimize(ctx, initial, o.Evaluate)
	if err != nil {
		return nil, fmt.Errorf("optimization failed: %w", err)
	}

	out := &TuneResult{
		Objective:  o.objective.Name(),
		Seeds:      len(o.seeds),
		Initial:    initial,
		Best:       res.BestParams,
		BestScore:  NaturalScore(o.objective, res.BestScore),
		Iterations: res.Iterations,
		Evaluated:  res.Evaluations,
		Converged:  res.Converged,
		Reason:     res.ConvergenceReason,
		History:    res.History,
	}
	o.mu.Lock()
	if b, ok := o.batches[res.BestParams.key()]; ok {
		out.BestBatch = summarizeBatch(b)
	}
	o.mu.Unlock()

	logger.Info("tuning finished",
		"objective", out.Objective,
		"best_score", out.BestScore,
		"iterations", out.Iterations,
		"reason", out.Reason)
	return out, nil
}

func summarizeBatch(b *autopilot.BatchResult) *BatchSummary {
	counts := make(map[string]int, len(b.GradeCounts))
	for g, n := range b.GradeCounts {
		counts[string(g)] = n
	}
	return &BatchSummary{
		GradeCounts: counts,
		MeanBudget:  b.MeanBudget,
		MeanUsers:   b.MeanUsers,
	}
}
