package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kapu/subtitle-translator-go/internal/app"
	"github.com/kapu/subtitle-translator-go/internal/config"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}

	dbCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the account and cache tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the storage applies the schema.
			return ctx.withStorage(cmd.Context(), func(cfg *config.Config, storage *app.Storage) error {
				fmt.Fprintf(cmd.OutOrStdout(), "Schema ready (%s)\n", storage.Database.Driver())
				return nil
			})
		},
	})

	return dbCmd
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show account and cache totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStorage(cmd.Context(), func(cfg *config.Config, storage *app.Storage) error {
				stats, err := storage.Accounts.Stats(cmd.Context())
				if err != nil {
					return err
				}
				cached, err := storage.Store.Count(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Metric", "Value"},
					[][]string{
						{"Users", humanize.Comma(stats.TotalUsers)},
						{"Active subscriptions", humanize.Comma(stats.ActiveSubscriptions)},
						{"Translations served", humanize.Comma(stats.TotalTranslations)},
						{"Cached translations", humanize.Comma(cached)},
					},
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
