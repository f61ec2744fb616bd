package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jengzang/crime-lisa-go/internal/models"
)

// Analyzer is the interface of a batch job tracked as an analysis task
type Analyzer interface {
	// Analyze runs the task to completion and records its status
	Analyze(ctx context.Context, task *models.AnalysisTask) error

	// GetName returns the name of the analyzer
	GetName() string
}

// TaskStore persists task status transitions
type TaskStore interface {
	MarkAsRunning(ctx context.Context, id int64, totalPeriods int) error
	UpdateProgress(ctx context.Context, id int64, processed, skipped, percent int) error
	MarkAsCompleted(ctx context.Context, id int64, skipped int, resultSummary string) error
	MarkAsFailed(ctx context.Context, id int64, errorMessage string) error
}

// BaseAnalyzer provides the status bookkeeping shared by analyzers
type BaseAnalyzer struct {
	Store TaskStore
	Name  string
}

// NewBaseAnalyzer creates a new base analyzer
func NewBaseAnalyzer(store TaskStore, name string) *BaseAnalyzer {
	return &BaseAnalyzer{
		Store: store,
		Name:  name,
	}
}

// GetName returns the analyzer name
func (a *BaseAnalyzer) GetName() string {
	return a.Name
}

// UpdateTaskProgress records processed/skipped counts and the derived percentage
func (a *BaseAnalyzer) UpdateTaskProgress(ctx context.Context, taskID int64, processed, total, skipped int) error {
	percent := 0
	if total > 0 {
		percent = processed * 100 / total
	}
	return a.Store.UpdateProgress(ctx, taskID, processed, skipped, percent)
}

// MarkTaskAsRunning marks a task as running
func (a *BaseAnalyzer) MarkTaskAsRunning(ctx context.Context, taskID int64, total int) error {
	return a.Store.MarkAsRunning(ctx, taskID, total)
}

// MarkTaskAsCompleted marks a task as completed with a JSON summary
func (a *BaseAnalyzer) MarkTaskAsCompleted(ctx context.Context, taskID int64, skipped int, summary any) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode result summary: %w", err)
	}
	return a.Store.MarkAsCompleted(ctx, taskID, skipped, string(data))
}

// MarkTaskAsFailed marks a task as failed with an error message
func (a *BaseAnalyzer) MarkTaskAsFailed(ctx context.Context, taskID int64, errorMsg string) error {
	return a.Store.MarkAsFailed(ctx, taskID, errorMsg)
}

// PeriodSummary is the per-period entry of a batch result summary
type PeriodSummary struct {
	Period       string              `json:"period"`
	Years        models.YearRange    `json:"years"`
	Units        int                 `json:"units,omitempty"`
	Moran        *models.MoranResult `json:"moran,omitempty"`
	Pattern      string              `json:"pattern,omitempty"`
	Distribution map[string]int      `json:"distribution,omitempty"`
	Skipped      string              `json:"skipped,omitempty"`
}

// BatchSummary is stored as the result summary of a completed batch task
type BatchSummary struct {
	Periods []PeriodSummary `json:"periods"`
	Changes []GlobalChange  `json:"changes"`
	Elapsed string          `json:"elapsed"`
}

// BatchAnalyzer computes every configured period of one (level, measure,
// crime) scope and records progress in the task store
type BatchAnalyzer struct {
	*BaseAnalyzer
	engine  *Engine
	periods []models.Period
}

// NewBatchAnalyzer creates a batch analyzer over the given periods
func NewBatchAnalyzer(store TaskStore, engine *Engine, periods []models.Period) *BatchAnalyzer {
	return &BatchAnalyzer{
		BaseAnalyzer: NewBaseAnalyzer(store, "lisa_batch"),
		engine:       engine,
		periods:      periods,
	}
}

// Analyze runs every period. Skipped periods are counted, not fatal; the
// task fails only when the run itself cannot finish.
func (a *BatchAnalyzer) Analyze(ctx context.Context, task *models.AnalysisTask) error {
	logger := slog.With(slog.String("component", a.Name), slog.Int64("task_id", task.ID))
	logger.Info("starting analysis",
		slog.String("level", string(task.Level)),
		slog.String("measure", string(task.Measure)),
		slog.String("crime", task.CrimeType),
		slog.Int("periods", len(a.periods)))

	start := time.Now()
	if err := a.MarkTaskAsRunning(ctx, task.ID, len(a.periods)); err != nil {
		return fmt.Errorf("failed to mark task as running: %w", err)
	}

	skipped := 0
	outcomes, err := a.engine.ComputeAllPeriodsWithProgress(ctx, task.Level, task.Measure, task.CrimeType, a.periods,
		func(done, total int, o PeriodOutcome) {
			if o.Err != nil {
				skipped++
			}
			if err := a.UpdateTaskProgress(ctx, task.ID, done, total, skipped); err != nil {
				logger.Warn("failed to update progress", slog.String("error", err.Error()))
			}
		})
	if err != nil {
		if markErr := a.MarkTaskAsFailed(context.WithoutCancel(ctx), task.ID, err.Error()); markErr != nil {
			logger.Error("failed to mark task as failed", slog.String("error", markErr.Error()))
		}
		return fmt.Errorf("analysis interrupted: %w", err)
	}

	summary := summarizeBatch(outcomes, a.engine.Options().Alpha)
	summary.Elapsed = time.Since(start).Round(time.Millisecond).String()
	if err := a.MarkTaskAsCompleted(ctx, task.ID, skipped, summary); err != nil {
		return fmt.Errorf("failed to mark task as completed: %w", err)
	}

	logger.Info("analysis completed", slog.Int("skipped", skipped), slog.String("elapsed", summary.Elapsed))
	return nil
}

func summarizeBatch(outcomes []PeriodOutcome, alpha float64) BatchSummary {
	cmp := CompareGlobal(outcomes, alpha)
	summary := BatchSummary{
		Periods: make([]PeriodSummary, len(outcomes)),
		Changes: cmp.Changes,
	}
	for i, o := range outcomes {
		ps := PeriodSummary{
			Period:  o.Period.Key,
			Years:   o.Period.Years,
			Moran:   cmp.Periods[i].Moran,
			Pattern: cmp.Periods[i].Pattern,
			Skipped: cmp.Periods[i].Skipped,
		}
		if o.Result != nil {
			ps.Units = len(o.Result.Units)
			ps.Distribution = make(map[string]int, len(o.Result.Distribution))
			for _, row := range o.Result.Distribution {
				ps.Distribution[row.Label.String()] = row.Count
			}
		}
		summary.Periods[i] = ps
	}
	return summary
}
