// Command lisactl imports ISTAT crime data and runs LISA analyses offline.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jengzang/crime-lisa-go/internal/app"
	"github.com/jengzang/crime-lisa-go/internal/config"
	"github.com/jengzang/crime-lisa-go/internal/database"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "lisactl",
		Short: "Spatial autocorrelation of Italian crime data",
		Long: `lisactl imports ISTAT SDMX exports and computes global and local Moran's I,
LISA cluster maps, period transitions and baseline variation from the command line.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	flagLevel   string
	flagMeasure string
	flagCrime   string
	flagSeed    uint64
	flagPerms   int

	cfg *config.Config

	errNoSecret = errors.New("JWT_SECRET is not set")
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagLevel, "level", "provinces", "geo level: macro, regions or provinces")
	pf.StringVar(&flagMeasure, "measure", "count", "measure: count or rate")
	pf.StringVar(&flagCrime, "crime", "TOT", "crime type code")
	pf.Uint64Var(&flagSeed, "seed", 0, "permutation seed (0 draws a fresh one)")
	pf.IntVar(&flagPerms, "permutations", 0, "permutations per test (0 uses the configured value)")

	rootCmd.AddCommand(migrateCmd, importCmd, lisaCmd, moranCmd, transitionsCmd, variationCmd, tokenCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and logging before every subcommand
func setup(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Analysis.Seed = flagSeed
	}
	if flagPerms > 0 {
		cfg.Analysis.Permutations = flagPerms
	}
	config.SetupLogging(cmd.ErrOrStderr(), cfg)
	return nil
}

// withApp opens the database and builds the component graph
func withApp(fn func(a *app.App) error) error {
	if err := database.Init(database.Config{Path: cfg.DBPath, Migrate: true}); err != nil {
		return err
	}
	defer database.Close()

	a, err := app.New(cfg, database.GetDB())
	if err != nil {
		return err
	}
	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
