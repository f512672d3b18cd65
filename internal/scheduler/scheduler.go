package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vallesolidario/huellero/internal/config"
	"github.com/vallesolidario/huellero/internal/domain/models"
)

// Runner reconciles a date window.
type Runner interface {
	Run(ctx context.Context, from, to time.Time) (*models.RunReport, error)
}

// Scheduler triggers the daily reconciliation run.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	cfg      config.ReportingConfig
	location *time.Location
	now      func() time.Time
	timeout  time.Duration
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance running in loc.
func NewScheduler(cfg config.ReportingConfig, loc *time.Location, runner Runner, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		runner:   runner,
		cfg:      cfg,
		location: loc,
		now:      time.Now,
		timeout:  5 * time.Minute,
		logger:   logger,
	}
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule), zap.String("timezone", s.location.String()))

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.runDaily); err != nil {
		return fmt.Errorf("schedule daily reconciliation %q: %w", s.cfg.CronSchedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// Window returns the look-back range ending yesterday, both days inclusive.
func Window(now time.Time, lookbackDays int, loc *time.Location) (time.Time, time.Time) {
	today := models.DateOf(now.In(loc))
	to := today.AddDate(0, 0, -1)
	from := to.AddDate(0, 0, -(lookbackDays - 1))
	return from, to
}

func (s *Scheduler) runDaily() {
	from, to := Window(s.now(), s.cfg.LookbackDays, s.location)
	log := s.logger.With(zap.String("from", from.Format(time.DateOnly)), zap.String("to", to.Format(time.DateOnly)))
	log.Info("running scheduled reconciliation")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.runner.Run(ctx, from, to)
	if err != nil {
		log.Error("scheduled reconciliation failed", zap.Error(err))
		return
	}

	log.Info("scheduled reconciliation finished",
		zap.String("run_id", report.ID),
		zap.Int("records", report.Summary.Records),
	)
}
