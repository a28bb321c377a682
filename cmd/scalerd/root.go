package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
	"github.com/GoSim-25-26J-441/infra-scaler/pkg/logger"
)

type rootOptions struct {
	configFile string
	logLevel   string
	logFormat  string
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "scalerd",
		Short:         "Infra-Scaler vertical scaling simulation",
		Long:          "scalerd hosts Infra-Scaler sessions over HTTP and gRPC, plays headless runs and inspects tier catalogs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (YAML); SCALERD_* env vars override it")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (json, text)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newSimulateCmd(opts))
	cmd.AddCommand(newCatalogCmd(opts))
	cmd.AddCommand(newTuneCmd(opts))
	return cmd
}

// load reads the daemon config and installs the default logger
func (o *rootOptions) load(cmd *cobra.Command) (*config.ServerConfig, error) {
	v, err := config.NewViper(o.configFile)
	if err != nil {
		return nil, err
	}
	if err := bindLogFlags(cmd, v); err != nil {
		return nil, err
	}
	cfg, err := config.LoadServerConfig(v)
	if err != nil {
		return nil, err
	}
	logger.SetDefault(logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr()))
	return cfg, nil
}

// bindLogFlags lets explicitly set flags win over file and env values
func bindLogFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.Flags()
	for key, name := range map[string]string{
		"logging.level":  "log-level",
		"logging.format": "log-format",
	} {
		f := flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// loadCatalog returns the catalog at path, or the built-in one
func loadCatalog(path string) (*config.Catalog, error) {
	cat, err := config.LoadCatalogOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return cat, nil
}
