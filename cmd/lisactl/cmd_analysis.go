package main

import (
	"fmt"
	"time"

	"github.com/jengzang/crime-lisa-go/internal/app"
	"github.com/jengzang/crime-lisa-go/internal/middleware"
	"github.com/jengzang/crime-lisa-go/internal/models"
	"github.com/spf13/cobra"
)

var (
	lisaCmd = &cobra.Command{
		Use:   "lisa [period]",
		Short: "Compute local Moran's I and cluster labels for one period",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLisa,
	}
	moranCmd = &cobra.Command{
		Use:   "moran",
		Short: "Compare global Moran's I across every configured period",
		Args:  cobra.NoArgs,
		RunE:  runMoran,
	}
	transitionsCmd = &cobra.Command{
		Use:   "transitions <from> <to>",
		Short: "Classify cluster changes between two periods",
		Args:  cobra.ExactArgs(2),
		RunE:  runTransitions,
	}
	variationCmd = &cobra.Command{
		Use:   "variation <period>",
		Short: "Percentage change of each unit against the baseline",
		Args:  cobra.ExactArgs(1),
		RunE:  runVariation,
	}
	tokenCmd = &cobra.Command{
		Use:   "token <subject>",
		Short: "Issue a bearer token for the task API",
		Args:  cobra.ExactArgs(1),
		RunE:  runToken,
	}

	tokenTTL time.Duration
)

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}

func runLisa(cmd *cobra.Command, args []string) error {
	filter := models.LisaFilter{Level: flagLevel, Measure: flagMeasure, Crime: flagCrime}
	if len(args) == 1 {
		filter.Period = args[0]
	}
	return withApp(func(a *app.App) error {
		result, err := a.Lisa.ComputePeriod(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	})
}

func runMoran(cmd *cobra.Command, _ []string) error {
	filter := models.MoranFilter{Level: flagLevel, Measure: flagMeasure, Crime: flagCrime}
	return withApp(func(a *app.App) error {
		overview, err := a.Lisa.CompareGlobal(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), overview)
	})
}

func runTransitions(cmd *cobra.Command, args []string) error {
	filter := models.TransitionFilter{
		Level:   flagLevel,
		Measure: flagMeasure,
		Crime:   flagCrime,
		From:    args[0],
		To:      args[1],
	}
	return withApp(func(a *app.App) error {
		report, err := a.Lisa.Transitions(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	})
}

func runVariation(cmd *cobra.Command, args []string) error {
	filter := models.VariationFilter{
		Level:   flagLevel,
		Measure: flagMeasure,
		Crime:   flagCrime,
		Period:  args[0],
	}
	return withApp(func(a *app.App) error {
		report, err := a.Variation.Variation(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	})
}

func runToken(cmd *cobra.Command, args []string) error {
	if cfg.JWTSecret == "" {
		return errNoSecret
	}
	token, err := middleware.IssueToken([]byte(cfg.JWTSecret), args[0], tokenTTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
