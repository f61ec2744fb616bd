package main

import (
	"log/slog"

	"github.com/jengzang/crime-lisa-go/internal/app"
	"github.com/jengzang/crime-lisa-go/internal/ingest"
	"github.com/jengzang/crime-lisa-go/internal/models"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and seed the crime taxonomy",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
	importCmd = &cobra.Command{
		Use:   "import [csv...]",
		Short: "Import ISTAT SDMX CSV exports",
		Long:  `Imports one or more SDMX CSV exports. Rows are upserted on (area, crime type, year, measure).`,
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	return withApp(func(a *app.App) error {
		return a.SeedCatalog(cmd.Context())
	})
}

func runImport(cmd *cobra.Command, args []string) error {
	measure, err := models.ParseMeasure(flagMeasure)
	if err != nil {
		return err
	}

	return withApp(func(a *app.App) error {
		if err := a.SeedCatalog(cmd.Context()); err != nil {
			return err
		}

		importer := ingest.NewImporter(a.Observations)
		all := make([]ingest.Stats, 0, len(args))
		for _, path := range args {
			stats, err := importer.ImportFile(cmd.Context(), path, measure)
			if err != nil {
				return err
			}
			slog.Info("file imported",
				slog.String("path", path),
				slog.Int("imported", stats.Imported),
				slog.Int("skipped", stats.Skipped))
			all = append(all, stats)
		}
		return printJSON(cmd.OutOrStdout(), all)
	})
}
