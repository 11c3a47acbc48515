package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kapu/subtitle-translator-go/internal/app"
	"github.com/kapu/subtitle-translator-go/internal/config"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the translation cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheSweepCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show translation cache usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStorage(cmd.Context(), func(cfg *config.Config, storage *app.Storage) error {
				count, err := storage.Store.Count(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Backend:   %s\n", cfg.Cache.Backend)
				fmt.Fprintf(out, "Entries:   %s\n", humanize.Comma(count))
				fmt.Fprintf(out, "Retention: %s\n", cfg.Cache.Retention)
				fmt.Fprintf(out, "Sweep:     %s\n", cfg.Cache.SweepSchedule)
				return nil
			})
		},
	}
}

func newCacheSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete translations older than the retention period now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStorage(cmd.Context(), func(cfg *config.Config, storage *app.Storage) error {
				removed, err := storage.Sweeper.SweepOnce(cmd.Context())
				if err != nil {
					return err
				}
				if removed == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No expired translations")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s expired translations\n", humanize.Comma(removed))
				return nil
			})
		},
	}
}
