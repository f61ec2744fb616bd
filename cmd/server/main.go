package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jengzang/crime-lisa-go/internal/api"
	"github.com/jengzang/crime-lisa-go/internal/app"
	"github.com/jengzang/crime-lisa-go/internal/config"
	"github.com/jengzang/crime-lisa-go/internal/database"
	"github.com/jengzang/crime-lisa-go/internal/handler"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := config.SetupLogging(os.Stdout, cfg)

	if err := database.Init(database.Config{Path: cfg.DBPath, Migrate: true}); err != nil {
		return err
	}
	defer database.Close()

	a, err := app.New(cfg, database.GetDB())
	if err != nil {
		return err
	}
	if err := a.SeedCatalog(context.Background()); err != nil {
		return err
	}

	router := api.SetupRouter(cfg, logger, api.Handlers{
		Lisa:      handler.NewLisaHandler(a.Lisa),
		Variation: handler.NewVariationHandler(a.Variation),
		Catalog:   handler.NewCatalogHandler(a.CatalogSvc),
		Tasks:     handler.NewAnalysisTaskHandler(a.TaskService),
	})

	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", cfg.Port), slog.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case sig := <-quit:
		logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	a.TaskService.Wait()
	logger.Info("server exited")
	return nil
}
