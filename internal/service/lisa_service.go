package service

import (
	"context"
	"fmt"

	"github.com/jengzang/crime-lisa-go/internal/analysis"
	"github.com/jengzang/crime-lisa-go/internal/analysis/cluster"
	"github.com/jengzang/crime-lisa-go/internal/config"
	"github.com/jengzang/crime-lisa-go/internal/models"
)

// LisaService handles the spatial autocorrelation use cases
type LisaService struct {
	engine   *analysis.Engine
	analysis config.AnalysisConfig
}

// NewLisaService creates a new LISA service
func NewLisaService(engine *analysis.Engine, cfg config.AnalysisConfig) *LisaService {
	return &LisaService{engine: engine, analysis: cfg}
}

// Periods returns the configured periods in order
func (s *LisaService) Periods() []models.Period {
	return append([]models.Period(nil), s.analysis.Periods...)
}

// Scope is a parsed (level, measure, crime) triple
type Scope struct {
	Level     models.GeoLevel
	Measure   models.Measure
	CrimeType string
}

// ParseScope validates the common query parameters
func ParseScope(level, measure, crime string) (Scope, error) {
	l, err := models.ParseGeoLevel(level)
	if err != nil {
		return Scope{}, err
	}
	m, err := models.ParseMeasure(measure)
	if err != nil {
		return Scope{}, err
	}
	if crime == "" {
		return Scope{}, fmt.Errorf("%w: crime type is required", models.ErrInvalidInput)
	}
	return Scope{Level: l, Measure: m, CrimeType: crime}, nil
}

// period resolves a period key; empty means the first configured period
func (s *LisaService) period(key string) (models.Period, error) {
	if key == "" && len(s.analysis.Periods) > 0 {
		return s.analysis.Periods[0], nil
	}
	p, ok := s.analysis.Period(key)
	if !ok {
		return models.Period{}, fmt.Errorf("%w: unknown period %q", models.ErrInvalidInput, key)
	}
	return p, nil
}

// ComputePeriod runs LISA for a single period
func (s *LisaService) ComputePeriod(ctx context.Context, f models.LisaFilter) (*analysis.PeriodResult, error) {
	scope, err := ParseScope(f.Level, f.Measure, f.Crime)
	if err != nil {
		return nil, err
	}
	p, err := s.period(f.Period)
	if err != nil {
		return nil, err
	}
	return s.engine.ComputePeriodResult(ctx, scope.Level, scope.Measure, scope.CrimeType, p)
}

// MoranOverview compares global autocorrelation across every period
type MoranOverview struct {
	Level      models.GeoLevel           `json:"level"`
	Measure    models.Measure            `json:"measure"`
	CrimeType  string                    `json:"crime_type"`
	Comparison analysis.GlobalComparison `json:"comparison"`
	Periods    []analysis.PeriodOutcome  `json:"periods"`
}

// CompareGlobal computes every configured period and compares their global I
func (s *LisaService) CompareGlobal(ctx context.Context, f models.MoranFilter) (*MoranOverview, error) {
	scope, err := ParseScope(f.Level, f.Measure, f.Crime)
	if err != nil {
		return nil, err
	}

	outcomes, err := s.engine.ComputeAllPeriods(ctx, scope.Level, scope.Measure, scope.CrimeType, s.analysis.Periods)
	if err != nil {
		return nil, err
	}
	return &MoranOverview{
		Level:      scope.Level,
		Measure:    scope.Measure,
		CrimeType:  scope.CrimeType,
		Comparison: analysis.CompareGlobal(outcomes, s.engine.Options().Alpha),
		Periods:    outcomes,
	}, nil
}

// TransitionReport is the label change between two periods
type TransitionReport struct {
	From    models.Period             `json:"from"`
	To      models.Period             `json:"to"`
	Records []models.TransitionRecord `json:"records"`
	Matrix  cluster.TransitionMatrix  `json:"matrix"`
	Summary cluster.TransitionSummary `json:"summary"`
	Global  []analysis.GlobalChange   `json:"global"`
}

// Transitions computes both periods and classifies each unit's change
func (s *LisaService) Transitions(ctx context.Context, f models.TransitionFilter) (*TransitionReport, error) {
	scope, err := ParseScope(f.Level, f.Measure, f.Crime)
	if err != nil {
		return nil, err
	}
	from, err := s.period(f.From)
	if err != nil {
		return nil, err
	}
	to, err := s.period(f.To)
	if err != nil {
		return nil, err
	}
	if from.Key == to.Key {
		return nil, fmt.Errorf("%w: from and to must differ", models.ErrInvalidInput)
	}

	outcomes, err := s.engine.ComputeAllPeriods(ctx, scope.Level, scope.Measure, scope.CrimeType, []models.Period{from, to})
	if err != nil {
		return nil, err
	}
	for _, o := range outcomes {
		if o.Err != nil {
			return nil, fmt.Errorf("period %s: %w", o.Period.Key, o.Err)
		}
	}

	records, err := s.engine.ComputeTransition(outcomes[0].Result, outcomes[1].Result)
	if err != nil {
		return nil, err
	}
	return &TransitionReport{
		From:    from,
		To:      to,
		Records: records,
		Matrix:  cluster.Matrix(records),
		Summary: cluster.Summarize(records),
		Global:  analysis.CompareGlobal(outcomes, s.engine.Options().Alpha).Changes,
	}, nil
}
