package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/hivecast/ingestd/internal/eviction"
)

func newEvictCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "evict",
		Short: "Run one retention sweep and print its report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var sweeper *eviction.Scheduler
			app := fx.New(
				infraModule(*configPath),
				domainModule,
				fx.Populate(&sweeper),
				fx.NopLogger,
			)
			if err := app.Err(); err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := app.Start(ctx); err != nil {
				return err
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = app.Stop(stopCtx)
			}()

			report, err := sweeper.Run(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "selected:  %d\n", report.Selected)
			fmt.Fprintf(out, "succeeded: %d\n", report.Succeeded)
			fmt.Fprintf(out, "failed:    %d\n", report.Failed)
			fmt.Fprintf(out, "reclaimed: %s\n", humanize.IBytes(uint64(report.BytesReclaimed)))
			fmt.Fprintf(out, "took:      %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
			return nil
		},
	}
}
