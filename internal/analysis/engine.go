package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/jengzang/crime-lisa-go/internal/analysis/cluster"
	"github.com/jengzang/crime-lisa-go/internal/analysis/temporal"
	"github.com/jengzang/crime-lisa-go/internal/metrics"
	"github.com/jengzang/crime-lisa-go/internal/models"
	"github.com/jengzang/crime-lisa-go/internal/spatial"
	"github.com/jengzang/crime-lisa-go/internal/stats"
	"golang.org/x/sync/errgroup"
)

// ValueProvider returns yearly observations for one crime type, already
// restricted to a geo level and year range
type ValueProvider interface {
	GetObservations(ctx context.Context, q models.ObservationQuery) (*models.ObservationSeries, error)
}

// GeometryProvider returns the boundaries of every unit of a geo level,
// with historical codes already remapped
type GeometryProvider interface {
	GetGeometry(ctx context.Context, level models.GeoLevel) ([]models.SpatialUnit, error)
}

// Options tunes the inference of every period computation
type Options struct {
	Alpha        float64
	Permutations int
	Seed         uint64
}

// DefaultOptions returns alpha 0.05 and 999 permutations with a fresh seed per run
func DefaultOptions() Options {
	return Options{
		Alpha:        cluster.DefaultAlpha,
		Permutations: stats.DefaultPermutations,
	}
}

// Engine computes per-period LISA results. It holds no per-request state;
// the weights cache is the only structure shared between computations.
type Engine struct {
	values   ValueProvider
	geometry GeometryProvider
	cache    *spatial.WeightsCache
	opts     Options
}

// NewEngine creates an engine. A nil cache gets a default-sized one.
func NewEngine(values ValueProvider, geometry GeometryProvider, cache *spatial.WeightsCache, opts Options) *Engine {
	if cache == nil {
		cache = spatial.NewWeightsCache(spatial.DefaultCacheSize, spatial.QueenOptions{})
	}
	if opts.Alpha <= 0 || opts.Alpha > 1 {
		opts.Alpha = cluster.DefaultAlpha
	}
	if opts.Permutations <= 0 {
		opts.Permutations = stats.DefaultPermutations
	}
	return &Engine{
		values:   values,
		geometry: geometry,
		cache:    cache,
		opts:     opts,
	}
}

// Options returns the inference options in effect
func (e *Engine) Options() Options {
	return e.opts
}

// Cache exposes the weights cache for stats reporting
func (e *Engine) Cache() *spatial.WeightsCache {
	return e.cache
}

// PeriodResult is the classified outcome of one (level, measure, crime, period)
type PeriodResult struct {
	Level         models.GeoLevel         `json:"level"`
	Measure       models.Measure          `json:"measure"`
	CrimeType     string                  `json:"crime_type"`
	Period        models.Period           `json:"period"`
	Global        models.MoranResult      `json:"global"`
	Units         []models.ClassifiedUnit `json:"units"`
	Distribution  []cluster.LabelCount    `json:"distribution"`
	Excluded      []string                `json:"excluded"` // units with geometry or values but not both
	Islands       []string                `json:"islands"`
	MeanNeighbors float64                 `json:"mean_neighbors"`
	Alpha         float64                 `json:"alpha"`
	Seed          uint64                  `json:"seed"`
}

// ComputePeriodResult aggregates the period, joins values with geometry in
// geometry order and runs Moran inference and LISA classification.
// Too few joined units fail with models.ErrInsufficientData and constant
// values with models.ErrDegenerateInput.
func (e *Engine) ComputePeriodResult(ctx context.Context, level models.GeoLevel, measure models.Measure, crimeType string, period models.Period) (result *PeriodResult, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = models.ErrorCode(err)
		}
		metrics.PeriodComputations.WithLabelValues(string(level), outcome).Inc()
		metrics.PeriodDuration.WithLabelValues(string(level)).Observe(time.Since(start).Seconds())
	}()

	if err := period.Years.Validate(); err != nil {
		return nil, err
	}

	series, err := e.values.GetObservations(ctx, models.ObservationQuery{
		Measure:   measure,
		CrimeType: crimeType,
		Years:     period.Years,
		Level:     level,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load observations: %w", err)
	}
	values := temporal.PeriodMean(series, period.Years)

	units, err := e.geometry.GetGeometry(ctx, level)
	if err != nil {
		return nil, fmt.Errorf("failed to load geometry: %w", err)
	}

	joined, excluded := joinUnits(units, values)
	if len(joined) < stats.MinUnits {
		return nil, fmt.Errorf("%w: %d units with data for %s/%s, need at least %d",
			models.ErrInsufficientData, len(joined), crimeType, period.Key, stats.MinUnits)
	}

	w, err := e.cache.Get(level, joined)
	if err != nil {
		return nil, err
	}

	y := make([]float64, len(joined))
	for i, u := range joined {
		y[i] = values[u.ID]
	}

	res, err := stats.Compute(w, y, stats.Options{Permutations: e.opts.Permutations, Seed: e.opts.Seed})
	if err != nil {
		return nil, err
	}
	labels, err := cluster.Classify(res.Local, e.opts.Alpha)
	if err != nil {
		return nil, err
	}

	classified := make([]models.ClassifiedUnit, len(joined))
	for i, u := range joined {
		classified[i] = models.ClassifiedUnit{
			ID:          u.ID,
			Name:        u.Name,
			Level:       level,
			Value:       y[i],
			StdValue:    res.Z[i],
			Lag:         res.Lag[i],
			LocalI:      res.Local.Is[i],
			Quadrant:    res.Local.Quadrants[i],
			Label:       labels[i],
			PValue:      res.Local.PValues[i],
			Significant: res.Local.PValues[i] < e.opts.Alpha,
			Neighbors:   w.Cardinality(i),
		}
	}

	islands := w.Islands()
	if islands == nil {
		islands = []string{}
	}

	slog.Debug("period computed",
		slog.String("component", "engine"),
		slog.String("level", string(level)),
		slog.String("crime", crimeType),
		slog.String("period", period.Key),
		slog.Int("units", len(classified)),
		slog.Float64("moran_i", res.Global.I),
		slog.Float64("p_value", res.Global.PValue),
		slog.Duration("elapsed", time.Since(start)))

	return &PeriodResult{
		Level:         level,
		Measure:       measure,
		CrimeType:     crimeType,
		Period:        period,
		Global:        res.Global,
		Units:         classified,
		Distribution:  cluster.Distribution(classified),
		Excluded:      excluded,
		Islands:       islands,
		MeanNeighbors: w.MeanNeighbors(),
		Alpha:         e.opts.Alpha,
		Seed:          res.Seed,
	}, nil
}

// joinUnits keeps geometry units that carry a value, in geometry order.
// The second return lists unit codes present on one side only.
func joinUnits(units []models.SpatialUnit, values models.PeriodValue) ([]models.SpatialUnit, []string) {
	joined := make([]models.SpatialUnit, 0, len(units))
	seen := make(map[string]struct{}, len(units))
	excluded := []string{}

	for _, u := range units {
		seen[u.ID] = struct{}{}
		if _, ok := values[u.ID]; ok {
			joined = append(joined, u)
		} else {
			excluded = append(excluded, u.ID)
		}
	}
	for id := range values {
		if _, ok := seen[id]; !ok {
			excluded = append(excluded, id)
		}
	}
	sort.Strings(excluded)
	return joined, excluded
}

// ComputeTransition joins two period results of the same level by unit ID
func (e *Engine) ComputeTransition(from, to *PeriodResult) ([]models.TransitionRecord, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("%w: both period results are required", models.ErrInvalidInput)
	}
	if from.Level != to.Level {
		return nil, fmt.Errorf("%w: cannot compare %s with %s", models.ErrInvalidInput, from.Level, to.Level)
	}
	return cluster.Transitions(from.Units, to.Units), nil
}

// PeriodOutcome is the result of one period in a batch; exactly one of
// Result and Err is set
type PeriodOutcome struct {
	Period models.Period `json:"period"`
	Result *PeriodResult `json:"result,omitempty"`
	Err    error         `json:"-"`
	Code   string        `json:"error_code,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// Skipped reports whether the period failed for lack of usable data
func (o PeriodOutcome) Skipped() bool {
	return o.Err != nil && models.IsSkippable(o.Err)
}

// ProgressFunc is called once per finished period; calls are serialised
type ProgressFunc func(done, total int, outcome PeriodOutcome)

// ComputeAllPeriods runs every period concurrently. A failing period never
// aborts its siblings; only context cancellation returns an error.
func (e *Engine) ComputeAllPeriods(ctx context.Context, level models.GeoLevel, measure models.Measure, crimeType string, periods []models.Period) ([]PeriodOutcome, error) {
	return e.ComputeAllPeriodsWithProgress(ctx, level, measure, crimeType, periods, nil)
}

// ComputeAllPeriodsWithProgress is ComputeAllPeriods with a progress callback
func (e *Engine) ComputeAllPeriodsWithProgress(ctx context.Context, level models.GeoLevel, measure models.Measure, crimeType string, periods []models.Period, progress ProgressFunc) ([]PeriodOutcome, error) {
	outcomes := make([]PeriodOutcome, len(periods))

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range periods {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.ComputePeriodResult(gctx, level, measure, crimeType, p)
			out := PeriodOutcome{Period: p, Result: res, Err: err}
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				out.Result = nil
				out.Code = models.ErrorCode(err)
				out.Error = err.Error()
				logPeriodFailure(level, crimeType, p, err)
			}
			outcomes[i] = out

			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(periods), out)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func logPeriodFailure(level models.GeoLevel, crimeType string, p models.Period, err error) {
	attrs := []any{
		slog.String("component", "engine"),
		slog.String("level", string(level)),
		slog.String("crime", crimeType),
		slog.String("period", p.Key),
		slog.String("error", err.Error()),
	}
	if models.IsSkippable(err) {
		slog.Info("period skipped", attrs...)
		return
	}
	slog.Warn("period failed", attrs...)
}
