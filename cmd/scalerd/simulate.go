package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/infra-scaler/internal/autopilot"
	"github.com/GoSim-25-26J-441/infra-scaler/internal/policy"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/logger"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/models"
)

type simulateOptions struct {
	seed        int64
	strategy    string
	runs        int
	parallel    int
	catalogPath string
	trace       bool
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play headless runs with a built-in strategy",
		Long: "simulate plays one run (or --runs consecutive seeds) with the autopilot or idle " +
			"strategy and prints the result as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("catalog") {
				opts.catalogPath = cfg.CatalogPath
			}
			catalog, err := loadCatalog(opts.catalogPath)
			if err != nil {
				return err
			}

			pm := policy.NewPolicyManager(cfg)
			strategy, err := autopilot.NewStrategy(opts.strategy, pm.GetScaling())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.runs <= 1 {
				var observer autopilot.Observer
				if opts.trace {
					observer = traceObserver(out)
				}
				res, err := autopilot.RunSeed(cmd.Context(), catalog, strategy, opts.seed, observer)
				if err != nil {
					return err
				}
				logger.Info("run finished",
					"strategy", res.Strategy,
					"seed", res.Seed,
					"grade", res.Outcome.Grade,
					"reason", res.Final.TerminationReason)
				return writeJSON(out, res)
			}

			seeds := make([]int64, opts.runs)
			for i := range seeds {
				seeds[i] = opts.seed + int64(i)
			}
			batch, err := autopilot.RunBatch(cmd.Context(), catalog, strategy, seeds, opts.parallel)
			if err != nil {
				return err
			}
			logger.Info("batch finished",
				"strategy", batch.Strategy,
				"runs", len(batch.Runs),
				"mean_budget", batch.MeanBudget)
			return writeJSON(out, batch)
		},
	}

	cmd.Flags().Int64Var(&opts.seed, "seed", 1, "random seed (first seed of a batch)")
	cmd.Flags().StringVar(&opts.strategy, "strategy", string(autopilot.StrategyAutopilot), "strategy: autopilot or idle")
	cmd.Flags().IntVar(&opts.runs, "runs", 1, "number of consecutive seeds to play")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 4, "runs played at the same time in a batch")
	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "", "tier catalog YAML (defaults to the built-in catalog)")
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "print every state as a JSON line before the result")
	return cmd
}

// traceObserver writes one compact JSON line per observed state
func traceObserver(w io.Writer) autopilot.Observer {
	enc := json.NewEncoder(w)
	return func(s models.State) {
		line := s
		line.Log = nil
		if err := enc.Encode(line); err != nil {
			logger.Warn("failed to write trace line", "error", err)
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
