package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/app"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Executes a single pipeline run and exits",
		Long: `Collects postings from every enabled source, deduplicates and scores
them against the configured profile, persists the ranked results, and
prints the run summary.`,
		RunE: runOnce,
	}
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, &cfg)
	if err != nil {
		return fmt.Errorf("build application: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if cerr := a.Close(closeCtx); cerr != nil {
			a.Logger().Warn("close failed", zap.Error(cerr))
		}
	}()

	run, err := a.Service().Execute(ctx)
	if err != nil {
		return fmt.Errorf("run %s failed: %w", run.ID, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(),
		"run %s completed: %d collected, %d unique, took %s\n",
		run.ID, run.TotalRecords, run.UniqueRecords, run.Duration().Round(time.Millisecond),
	)
	return nil
}
