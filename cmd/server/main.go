package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vallesolidario/huellero/internal/config"
	"github.com/vallesolidario/huellero/internal/reconcile"
	"github.com/vallesolidario/huellero/internal/repository/mongodb"
	"github.com/vallesolidario/huellero/internal/repository/sheets"
	"github.com/vallesolidario/huellero/internal/scheduler"
	"github.com/vallesolidario/huellero/internal/server/handlers"
	"github.com/vallesolidario/huellero/internal/server/router"
	"github.com/vallesolidario/huellero/internal/service/attendance"
	"github.com/vallesolidario/huellero/pkg/clients/notify"
	"github.com/vallesolidario/huellero/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireStorage(); err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.NewWithLevel(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
	if err != nil {
		baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
	}

	mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB, logger.Named(baseLogger, "repo.mongodb"))
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	var notifier notify.Client
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewClient(cfg.Notify)
		baseLogger.Info("run notifications enabled")
	} else {
		baseLogger.Warn("notify webhook missing, run summaries will not be posted")
	}

	pipeline := reconcile.New(cfg.Pipeline.Reconcile(), logger.Named(baseLogger, "reconcile"))
	attendanceSvc := attendance.NewService(sheetsRepo, mongoRepo, notifier, pipeline, attendance.Options{
		Ranges:   cfg.Sheets,
		Location: cfg.Location(),
		Publish:  cfg.Reporting.PublishSheet,
	}, logger.Named(baseLogger, "svc.attendance"))

	runHandler := handlers.NewRunHandler(attendanceSvc, logger.Named(baseLogger, "handlers.runs"))
	engine := router.New(runHandler, logger.Named(baseLogger, "router"))

	sched := scheduler.NewScheduler(cfg.Reporting, cfg.Location(), attendanceSvc, logger.Named(baseLogger, "scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
