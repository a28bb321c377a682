package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoSim-25-26J-441/infra-scaler/pkg/config"
)

func newCatalogCmd(root *rootOptions) *cobra.Command {
	var (
		file   string
		asJSON bool
		raw    bool
	)
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Validate and print a tier catalog",
		Long: "catalog validates --file (or the built-in catalog) and prints the normalised " +
			"result. Invalid catalogs exit with an error naming the first problem.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := root.load(cmd); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if raw && file == "" {
				_, err := out.Write(config.DefaultCatalogYAML())
				return err
			}

			cat, err := loadCatalog(file)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, cat)
			}
			data, err := config.MarshalCatalogYAML(cat)
			if err != nil {
				return err
			}
			if _, err := out.Write(data); err != nil {
				return fmt.Errorf("failed to write catalog: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "catalog YAML to validate (defaults to the built-in catalog)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of YAML")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the built-in catalog file as shipped, comments included")
	return cmd
}
