package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jengzang/crime-lisa-go/internal/analysis"
	"github.com/jengzang/crime-lisa-go/internal/models"
	"github.com/jengzang/crime-lisa-go/internal/repository"
)

// AnalysisTaskService handles batch analysis tasks
type AnalysisTaskService struct {
	repo     *repository.AnalysisTaskRepository
	analyzer analysis.Analyzer
	periods  int

	wg sync.WaitGroup
}

// NewAnalysisTaskService creates a new analysis task service
func NewAnalysisTaskService(repo *repository.AnalysisTaskRepository, analyzer analysis.Analyzer, periods int) *AnalysisTaskService {
	return &AnalysisTaskService{
		repo:     repo,
		analyzer: analyzer,
		periods:  periods,
	}
}

// CreateTask records a pending task and starts the analyzer in the background
func (s *AnalysisTaskService) CreateTask(ctx context.Context, level, measure, crime, createdBy string) (*models.AnalysisTask, error) {
	scope, err := ParseScope(level, measure, crime)
	if err != nil {
		return nil, err
	}

	task := &models.AnalysisTask{
		Level:        scope.Level,
		Measure:      scope.Measure,
		CrimeType:    scope.CrimeType,
		Status:       models.TaskStatusPending,
		TotalPeriods: s.periods,
		CreatedBy:    createdBy,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go func(task models.AnalysisTask) {
		defer s.wg.Done()
		s.executeAnalysis(&task)
	}(*task)

	return task, nil
}

// executeAnalysis runs the analyzer detached from the request context
func (s *AnalysisTaskService) executeAnalysis(task *models.AnalysisTask) {
	logger := slog.With(slog.String("component", "tasks"), slog.Int64("task_id", task.ID))
	logger.Info("executing analysis", slog.String("analyzer", s.analyzer.GetName()))

	if err := s.analyzer.Analyze(context.Background(), task); err != nil {
		logger.Error("analysis failed", slog.String("error", err.Error()))
		if markErr := s.repo.MarkAsFailed(context.Background(), task.ID, err.Error()); markErr != nil {
			logger.Error("failed to mark task as failed", slog.String("error", markErr.Error()))
		}
	}
}

// Wait blocks until every started task has finished
func (s *AnalysisTaskService) Wait() {
	s.wg.Wait()
}

// GetTask retrieves a task by ID
func (s *AnalysisTaskService) GetTask(ctx context.Context, id int64) (*models.AnalysisTask, error) {
	return s.repo.GetByID(ctx, id)
}

// ListTasks retrieves tasks with an optional status filter
func (s *AnalysisTaskService) ListTasks(ctx context.Context, f models.TaskFilter) ([]*models.AnalysisTask, error) {
	f.Normalize()
	return s.repo.List(ctx, f.Status, f.Limit, f.Offset)
}
