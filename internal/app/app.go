// Package app wires repositories, the LISA engine and services from a Config.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jengzang/crime-lisa-go/internal/analysis"
	"github.com/jengzang/crime-lisa-go/internal/config"
	"github.com/jengzang/crime-lisa-go/internal/repository"
	"github.com/jengzang/crime-lisa-go/internal/service"
	"github.com/jengzang/crime-lisa-go/internal/spatial"
)

// App holds the long-lived components shared by the server and the CLI
type App struct {
	Config  *config.Config
	Catalog *config.Catalog

	Observations *repository.ObservationRepository
	Geometry     *repository.GeometryRepository
	Tasks        *repository.AnalysisTaskRepository

	Engine *analysis.Engine

	Lisa          *service.LisaService
	Variation     *service.VariationService
	CatalogSvc    *service.CatalogService
	TaskService   *service.AnalysisTaskService
	BatchAnalyzer *analysis.BatchAnalyzer
}

// New builds the component graph on an open database
func New(cfg *config.Config, db *sql.DB) (*App, error) {
	catalog, err := config.LoadCatalog(cfg.TaxonomyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load crime taxonomy: %w", err)
	}

	a := &App{
		Config:       cfg,
		Catalog:      catalog,
		Observations: repository.NewObservationRepository(db),
		Geometry:     repository.NewGeometryRepository(cfg.Geometry.Paths(), cfg.Geometry.Country),
		Tasks:        repository.NewAnalysisTaskRepository(db),
	}

	cache := spatial.NewWeightsCache(cfg.Analysis.CacheSize, spatial.QueenOptions{Tolerance: cfg.Analysis.Tolerance})
	a.Engine = analysis.NewEngine(a.Observations, a.Geometry, cache, analysis.Options{
		Alpha:        cfg.Analysis.Alpha,
		Permutations: cfg.Analysis.Permutations,
		Seed:         cfg.Analysis.Seed,
	})

	a.Lisa = service.NewLisaService(a.Engine, cfg.Analysis)
	a.Variation = service.NewVariationService(a.Observations, a.Geometry, cfg.Analysis)
	a.CatalogSvc = service.NewCatalogService(catalog, a.Observations)
	a.BatchAnalyzer = analysis.NewBatchAnalyzer(a.Tasks, a.Engine, cfg.Analysis.Periods)
	a.TaskService = service.NewAnalysisTaskService(a.Tasks, a.BatchAnalyzer, len(cfg.Analysis.Periods))

	return a, nil
}

// SeedCatalog stores the taxonomy names so queries can join on them
func (a *App) SeedCatalog(ctx context.Context) error {
	if a.Catalog.Len() == 0 {
		return nil
	}
	if err := a.Observations.UpsertCrimeTypes(ctx, a.Catalog.CrimeTypes()); err != nil {
		return fmt.Errorf("failed to seed crime types: %w", err)
	}
	slog.Info("crime taxonomy loaded", slog.Int("crime_types", a.Catalog.Len()))
	return nil
}
