package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jengzang/crime-lisa-go/internal/analysis"
	"github.com/jengzang/crime-lisa-go/internal/analysis/temporal"
	"github.com/jengzang/crime-lisa-go/internal/config"
	"github.com/jengzang/crime-lisa-go/internal/models"
)

// NameProvider resolves unit codes to display names
type NameProvider interface {
	Names(ctx context.Context, level models.GeoLevel) (map[string]string, error)
}

// VariationService compares period means against the baseline
type VariationService struct {
	values   analysis.ValueProvider
	names    NameProvider
	analysis config.AnalysisConfig
}

// NewVariationService creates a new variation service
func NewVariationService(values analysis.ValueProvider, names NameProvider, cfg config.AnalysisConfig) *VariationService {
	return &VariationService{values: values, names: names, analysis: cfg}
}

// VariationReport holds per-unit variations of one period against the baseline
type VariationReport struct {
	Level     models.GeoLevel           `json:"level"`
	Measure   models.Measure            `json:"measure"`
	CrimeType string                    `json:"crime_type"`
	Baseline  models.Period             `json:"baseline"`
	Target    models.Period             `json:"target"`
	Records   []models.VariationRecord  `json:"records"`
	Summary   temporal.VariationSummary `json:"summary"`
}

// Variation computes VAR = (target - baseline) / baseline * 100 per unit
func (s *VariationService) Variation(ctx context.Context, f models.VariationFilter) (*VariationReport, error) {
	scope, err := ParseScope(f.Level, f.Measure, f.Crime)
	if err != nil {
		return nil, err
	}
	target, ok := s.analysis.Period(f.Period)
	if !ok {
		return nil, fmt.Errorf("%w: unknown period %q", models.ErrInvalidInput, f.Period)
	}
	baseline := s.analysis.BaselinePeriod()

	span := models.YearRange{
		Start: min(baseline.Years.Start, target.Years.Start),
		End:   max(baseline.Years.End, target.Years.End),
	}
	series, err := s.values.GetObservations(ctx, models.ObservationQuery{
		Measure:   scope.Measure,
		CrimeType: scope.CrimeType,
		Years:     span,
		Level:     scope.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load observations: %w", err)
	}

	records := temporal.Variation(
		temporal.PeriodMean(series, baseline.Years),
		temporal.PeriodMean(series, target.Years),
	)

	if s.names != nil {
		names, err := s.names.Names(ctx, scope.Level)
		if err != nil {
			slog.Warn("unit names unavailable",
				slog.String("component", "variation"),
				slog.String("level", string(scope.Level)),
				slog.String("error", err.Error()))
		}
		for i := range records {
			records[i].Name = names[records[i].ID]
		}
	}

	return &VariationReport{
		Level:     scope.Level,
		Measure:   scope.Measure,
		CrimeType: scope.CrimeType,
		Baseline:  baseline,
		Target:    target,
		Records:   records,
		Summary:   temporal.SummarizeVariation(records),
	}, nil
}
