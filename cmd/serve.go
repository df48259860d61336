package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jobradar/jobradar/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the HTTP API server",
		Long: `Serves the aggregation API: trigger runs, browse run history, and
query ranked postings. Runs until interrupted.`,
		RunE: serve,
	}
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.Build(cmd.Context(), &cfg)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}

	if err := a.Run(cmd.Context()); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
