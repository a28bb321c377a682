package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/improvement"
)

type tuneOptions struct {
	objective     string
	seeds         int
	firstSeed     int64
	maxIterations int
	step          float64
	parallel      int
	catalogPath   string
}

func newTuneCmd(root *rootOptions) *cobra.Command {
	opts := &tuneOptions{}
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Search autopilot parameters that score best over a set of seeds",
		Long: "tune hill-climbs the autopilot's target utilization, reserve rounds and " +
			"late-game cutoff, starting from the configured values, and prints the best set as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if opts.seeds < 1 {
				return fmt.Errorf("--seeds must be at least 1")
			}
			if !cmd.Flags().Changed("catalog") {
				opts.catalogPath = cfg.CatalogPath
			}
			catalog, err := loadCatalog(opts.catalogPath)
			if err != nil {
				return err
			}

			objective, err := improvement.NewObjectiveFunction(opts.objective)
			if err != nil {
				return err
			}

			seeds := make([]int64, opts.seeds)
			for i := range seeds {
				seeds[i] = opts.firstSeed + int64(i)
			}

			optimizer := improvement.NewOptimizer(opts.maxIterations, opts.step)
			orch := improvement.NewOrchestrator(catalog, seeds, opts.parallel, optimizer, objective)
			res, err := orch.RunExperiment(cmd.Context(), improvement.ParamsFromConfig(cfg.Autopilot))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	cmd.Flags().StringVar(&opts.objective, "objective", "grade_points", "objective: mean_budget, mean_users, grade_points or bankruptcy_rate")
	cmd.Flags().IntVar(&opts.seeds, "seeds", 8, "number of consecutive seeds played per candidate")
	cmd.Flags().Int64Var(&opts.firstSeed, "seed", 1, "first seed")
	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", 10, "hill-climbing iterations")
	cmd.Flags().Float64Var(&opts.step, "step", 1.0, "initial step size")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 4, "runs played at the same time")
	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "", "tier catalog YAML (defaults to the built-in catalog)")
	return cmd
}
