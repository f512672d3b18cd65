package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vallesolidario/huellero/internal/config"
	"github.com/vallesolidario/huellero/internal/domain/models"
	"github.com/vallesolidario/huellero/internal/reconcile"
	"github.com/vallesolidario/huellero/internal/repository/mongodb"
	"github.com/vallesolidario/huellero/internal/repository/sheets"
	"github.com/vallesolidario/huellero/pkg/clients/notify"
)

// ErrInvalidRange is returned when a run window ends before it starts.
var ErrInvalidRange = errors.New("invalid date range")

// Options configures where the service reads and publishes.
type Options struct {
	Ranges   config.SheetsConfig
	Location *time.Location
	Publish  bool
}

// Service loads punches from Sheets, reconciles them and stores the report.
type Service struct {
	sheets   sheets.Repository
	store    mongodb.Repository
	notifier notify.Client
	pipeline *reconcile.Pipeline
	opts     Options
	now      func() time.Time
	logger   *zap.Logger
}

// NewService wires a new attendance service instance. store and notifier may be nil.
func NewService(repo sheets.Repository, store mongodb.Repository, notifier notify.Client, pipeline *reconcile.Pipeline, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		sheets:   repo,
		store:    store,
		notifier: notifier,
		pipeline: pipeline,
		opts:     opts,
		now:      time.Now,
		logger:   logger,
	}
}

// Location is the timezone punches are interpreted in.
func (s *Service) Location() *time.Location {
	return s.opts.Location
}

// Run reconciles the punches dated within [from, to], both days inclusive.
func (s *Service) Run(ctx context.Context, from, to time.Time) (*models.RunReport, error) {
	from = models.DateOf(from.In(s.opts.Location))
	to = models.DateOf(to.In(s.opts.Location))
	if to.Before(from) {
		return nil, fmt.Errorf("%s after %s: %w", from.Format(time.DateOnly), to.Format(time.DateOnly), ErrInvalidRange)
	}

	input, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	total := len(input.Punches)
	input.Punches = withinWindow(input.Punches, from, to.AddDate(0, 0, 1))

	s.logger.Info("punches loaded",
		zap.Int("rows", total),
		zap.Int("in_window", len(input.Punches)),
		zap.String("from", from.Format(time.DateOnly)),
		zap.String("to", to.Format(time.DateOnly)),
	)

	res, err := s.pipeline.Run(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("reconcile punches: %w", err)
	}

	report := models.RunReport{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Summary:   res.Summary,
		Records:   res.Records,
		CreatedAt: s.now().UTC(),
	}

	if s.store != nil {
		if err := s.store.SaveRun(ctx, report); err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
	}

	if s.opts.Publish {
		if err := s.publish(ctx, report); err != nil {
			return nil, err
		}
	}

	s.notify(ctx, report)

	return &report, nil
}

// Get returns a stored run report.
func (s *Service) Get(ctx context.Context, id string) (*models.RunReport, error) {
	if s.store == nil {
		return nil, models.ErrRunNotFound
	}
	report, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return report, nil
}

func (s *Service) load(ctx context.Context) (reconcile.Input, error) {
	var input reconcile.Input

	rows, err := s.sheets.ReadRange(ctx, s.opts.Ranges.PunchesRange)
	if err != nil {
		return input, fmt.Errorf("load punches range: %w", err)
	}
	if input.Punches, err = ParsePunches(rows, s.opts.Location); err != nil {
		return input, fmt.Errorf("parse punches: %w", err)
	}

	if rng := s.opts.Ranges.SchedulesRange; rng != "" {
		rows, err := s.sheets.ReadRange(ctx, rng)
		if err != nil {
			return input, fmt.Errorf("load schedules range: %w", err)
		}
		if input.Schedules, err = ParseSchedules(rows); err != nil {
			return input, fmt.Errorf("parse schedules: %w", err)
		}
	}

	if rng := s.opts.Ranges.RolesRange; rng != "" {
		rows, err := s.sheets.ReadRange(ctx, rng)
		if err != nil {
			return input, fmt.Errorf("load roles range: %w", err)
		}
		if input.Roles, err = ParseRoles(rows); err != nil {
			return input, fmt.Errorf("parse roles: %w", err)
		}
	}

	return input, nil
}

func (s *Service) publish(ctx context.Context, report models.RunReport) error {
	rng := s.opts.Ranges.ReportRange
	if err := s.sheets.ClearRange(ctx, rng); err != nil {
		return fmt.Errorf("clear report range: %w", err)
	}
	if err := s.sheets.AppendRows(ctx, rng, ReportRows(report.Records)); err != nil {
		return fmt.Errorf("publish report rows: %w", err)
	}
	s.logger.Info("report published", zap.String("run_id", report.ID), zap.String("range", rng))
	return nil
}

// notify is best effort; a failed notification never fails the run.
func (s *Service) notify(ctx context.Context, report models.RunReport) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Send(ctx, notify.Message{Text: SummaryMessage(report), RunID: report.ID})
	switch {
	case err == nil:
		s.logger.Info("run notification sent", zap.String("run_id", report.ID))
	case errors.Is(err, notify.ErrDisabled):
	default:
		s.logger.Warn("run notification failed", zap.String("run_id", report.ID), zap.Error(err))
	}
}

func withinWindow(punches []models.Punch, from, until time.Time) []models.Punch {
	out := punches[:0:0]
	for _, p := range punches {
		if p.Timestamp.Before(from) || !p.Timestamp.Before(until) {
			continue
		}
		out = append(out, p)
	}
	return out
}
