package improvement

import (
	"context"
	"testing"

	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
)

func TestOrchestratorRunExperiment(t *testing.T) {
	obj := &GradeObjective{}
	seeds := []int64{1, 2, 3, 4}
	orch := NewOrchestrator(config.DefaultCatalog(), seeds, 2, NewOptimizer(3, 1.0), obj)

	initial := ParamsFromConfig(config.DefaultServerConfig().Autopilot)
	initialScore, err := orch.Evaluate(context.Background(), initial)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}

	res, err := orch.RunExperiment(context.Background(), initial)
	if err != nil {
		t.Fatalf("RunExperiment error: %v", err)
	}
	if res.Objective != "grade_points" || res.Seeds != len(seeds) {
		t.Errorf("unexpected header: %+v", res)
	}
	if res.Initial != initial {
		t.Errorf("expected initial params echoed back")
	}
	// Natural units: higher grade points are better and tuning never loses ground
	if res.BestScore < NaturalScore(obj, initialScore) {
		t.Errorf("best %v is worse than initial %v", res.BestScore, NaturalScore(obj, initialScore))
	}
	if res.BestBatch == nil {
		t.Fatal("expected the best batch summary")
	}
	total := 0
	for _, n := range res.BestBatch.GradeCounts {
		total += n
	}
	if total != len(seeds) {
		t.Errorf("expected %d graded runs, got %d", len(seeds), total)
	}
}

func TestOrchestratorIsDeterministic(t *testing.T) {
	run := func() *TuneResult {
		orch := NewOrchestrator(config.DefaultCatalog(), []int64{5, 6}, 2, NewOptimizer(2, 1.0), &BudgetObjective{})
		res, err := orch.RunExperiment(context.Background(), Params{TargetUtilization: 0.8, ReserveRounds: 2, MinRoundsLeft: 3})
		if err != nil {
			t.Fatalf("RunExperiment error: %v", err)
		}
		return res
	}

	a, b := run(), run()
	if a.Best != b.Best || a.BestScore != b.BestScore {
		t.Errorf("expected identical tuning results, got %+v and %+v", a.Best, b.Best)
	}
}

func TestOrchestratorValidation(t *testing.T) {
	orch := NewOrchestrator(config.DefaultCatalog(), nil, 1, NewOptimizer(1, 1), &GradeObjective{})
	if _, err := orch.RunExperiment(context.Background(), Params{TargetUtilization: 0.8}); err == nil {
		t.Error("expected error without seeds")
	}

	orch = NewOrchestrator(config.DefaultCatalog(), []int64{1}, 1, nil, &GradeObjective{})
	if _, err := orch.RunExperiment(context.Background(), Params{TargetUtilization: 0.8}); err == nil {
		t.Error("expected error without optimizer")
	}
}

func TestParamsRoundTrip(t *testing.T) {
	cfg := config.AutopilotConfig{TargetUtilization: 0.75, ReserveRounds: 4, MinRoundsLeft: 1}
	p := ParamsFromConfig(cfg)
	if p.Config() != cfg {
		t.Errorf("expected %+v, got %+v", cfg, p.Config())
	}
	if p.Strategy().Name() != "autopilot" {
		t.Errorf("expected the autopilot strategy, got %s", p.Strategy().Name())
	}
}
