package autopilot

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/engine"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/utils"
)

// BatchResult summarises one strategy over many seeds
type BatchResult struct {
	Strategy    string               `json:"strategy"`
	Runs        []*Result            `json:"runs"`
	GradeCounts map[models.Grade]int `json:"grade_counts"`
	MeanBudget  float64              `json:"mean_budget"`
	MeanUsers   float64              `json:"mean_users"`
	Best        *Result              `json:"best"`
}

// RunBatch plays one run per seed, at most maxParallel at a time. Each run
// gets its own engine and random source, so results depend only on the seed.
func RunBatch(ctx context.Context, catalog *config.Catalog, strategy Strategy, seeds []int64, maxParallel int) (*BatchResult, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("no seeds provided")
	}
	if maxParallel <= 0 {
		maxParallel = 1
	}

	semaphore := make(chan struct{}, maxParallel)
	var wg sync.WaitGroup
	results := make([]*Result, len(seeds))
	errs := make([]error, len(seeds))

	for i, seed := range seeds {
		wg.Add(1)
		go func(idx int, seed int64) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			res, err := RunSeed(ctx, catalog, strategy, seed, nil)
			results[idx] = res
			errs[idx] = err
		}(i, seed)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("run with seed %d failed: %w", seeds[i], err)
		}
	}
	return summarize(strategy.Name(), results), nil
}

// RunSeed plays a single run from the start state with a seeded random source
func RunSeed(ctx context.Context, catalog *config.Catalog, strategy Strategy, seed int64, observer Observer) (*Result, error) {
	e := engine.New(catalog, utils.NewRandSource(seed))
	res, err := NewPilot(e, strategy, observer).Run(ctx, e.NewState())
	if err != nil {
		return nil, err
	}
	res.Seed = seed
	return res, nil
}

func summarize(name string, runs []*Result) *BatchResult {
	out := &BatchResult{
		Strategy:    name,
		Runs:        runs,
		GradeCounts: make(map[models.Grade]int),
	}
	var budget, users float64
	for _, r := range runs {
		out.GradeCounts[r.Outcome.Grade]++
		budget += float64(r.Final.Budget)
		users += float64(r.Final.ActiveUsers)
		if out.Best == nil || better(r, out.Best) {
			out.Best = r
		}
	}
	out.MeanBudget = budget / float64(len(runs))
	out.MeanUsers = users / float64(len(runs))
	return out
}

// better ranks by grade, then final budget, then lowest seed
func better(a, b *Result) bool {
	if a.Outcome.Grade != b.Outcome.Grade {
		return a.Outcome.Grade < b.Outcome.Grade
	}
	if a.Final.Budget != b.Final.Budget {
		return a.Final.Budget > b.Final.Budget
	}
	return a.Seed < b.Seed
}

// SortedGrades returns the grades present in counts, best first
func SortedGrades(counts map[models.Grade]int) []models.Grade {
	grades := make([]models.Grade, 0, len(counts))
	for g := range counts {
		grades = append(grades, g)
	}
	sort.Slice(grades, func(i, j int) bool { return grades[i] < grades[j] })
	return grades
}
