package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vallesolidario/huellero/internal/reconcile"
	"github.com/vallesolidario/huellero/internal/repository/mongodb"
	"github.com/vallesolidario/huellero/internal/repository/sheets"
	"github.com/vallesolidario/huellero/internal/scheduler"
	"github.com/vallesolidario/huellero/internal/service/attendance"
	"github.com/vallesolidario/huellero/pkg/clients/notify"
	"github.com/vallesolidario/huellero/pkg/logger"
)

var (
	runFrom    string
	runTo      string
	runPublish bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile the punches stored in Google Sheets for a date window",
	Long: `Reads punches, schedules and roles from the configured spreadsheet, reconciles
the window [--from, --to] and stores the run in MongoDB. Without dates the
configured look-back window ending yesterday is used.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.RequireStorage(); err != nil {
			return err
		}

		loc := cfg.Location()
		from, to := scheduler.Window(time.Now(), cfg.Reporting.LookbackDays, loc)
		var err error
		if from, err = dateFlag(runFrom, from, loc); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		if to, err = dateFlag(runTo, to, loc); err != nil {
			return fmt.Errorf("--to: %w", err)
		}

		svc, closeFn, err := newAttendanceService(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		report, err := svc.Run(ctx, from, to)
		if err != nil {
			return err
		}

		zap.L().Info("run stored", zap.String("run_id", report.ID))
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report.Summary)
	},
}

func init() {
	runCmd.Flags().StringVar(&runFrom, "from", "", "first day to reconcile (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&runTo, "to", "", "last day to reconcile (YYYY-MM-DD)")
	runCmd.Flags().BoolVar(&runPublish, "publish", true, "write the report rows back to the spreadsheet")
	rootCmd.AddCommand(runCmd)
}

func newAttendanceService(ctx context.Context) (*attendance.Service, func(), error) {
	base := zap.L()

	sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, logger.Named(base, "repo.sheets"))
	if err != nil {
		return nil, nil, fmt.Errorf("init sheets repository: %w", err)
	}

	mongoRepo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB, logger.Named(base, "repo.mongodb"))
	if err != nil {
		return nil, nil, fmt.Errorf("init mongodb repository: %w", err)
	}

	var notifier notify.Client
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewClient(cfg.Notify)
	}

	pipeline := reconcile.New(cfg.Pipeline.Reconcile(), logger.Named(base, "reconcile"))
	svc := attendance.NewService(sheetsRepo, mongoRepo, notifier, pipeline, attendance.Options{
		Ranges:   cfg.Sheets,
		Location: cfg.Location(),
		Publish:  cfg.Reporting.PublishSheet && runPublish,
	}, logger.Named(base, "svc.attendance"))

	closeFn := func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			base.Error("failed to close mongodb connection", zap.Error(err))
		}
	}
	return svc, closeFn, nil
}

func dateFlag(value string, fallback time.Time, loc *time.Location) (time.Time, error) {
	if value == "" {
		return fallback, nil
	}
	return time.ParseInLocation(time.DateOnly, value, loc)
}
