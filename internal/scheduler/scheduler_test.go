package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vallesolidario/huellero/internal/config"
	"github.com/vallesolidario/huellero/internal/domain/models"
)

type fakeRunner struct {
	from, to time.Time
	calls    int
	err      error
}

func (f *fakeRunner) Run(_ context.Context, from, to time.Time) (*models.RunReport, error) {
	f.calls++
	f.from, f.to = from, to
	if f.err != nil {
		return nil, f.err
	}
	return &models.RunReport{ID: "run-1"}, nil
}

func TestWindow(t *testing.T) {
	loc := time.FixedZone("COT", -5*60*60)
	// 03:00 UTC on the 15th is still the 14th in Bogota.
	now := time.Date(2026, 1, 15, 3, 0, 0, 0, time.UTC)

	from, to := Window(now, 7, loc)

	assert.Equal(t, time.Date(2026, 1, 7, 0, 0, 0, 0, loc), from)
	assert.Equal(t, time.Date(2026, 1, 13, 0, 0, 0, 0, loc), to)

	from, to = Window(now, 1, loc)
	assert.Equal(t, from, to)
}

func TestRunDaily(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(config.ReportingConfig{CronSchedule: "0 6 * * *", LookbackDays: 2}, time.UTC, runner, zap.NewNop())
	s.now = func() time.Time { return time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC) }

	s.runDaily()

	require.Equal(t, 1, runner.calls)
	assert.Equal(t, time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC), runner.from)
	assert.Equal(t, time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC), runner.to)

	runner.err = errors.New("sheets down")
	assert.NotPanics(t, s.runDaily)
	assert.Equal(t, 2, runner.calls)
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewScheduler(config.ReportingConfig{CronSchedule: "every day"}, nil, &fakeRunner{}, nil)

	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(config.ReportingConfig{CronSchedule: "0 6 * * *", LookbackDays: 1}, time.UTC, &fakeRunner{}, nil)

	require.NoError(t, s.Start())
	s.Stop()
}
