package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vallesolidario/huellero/internal/domain/models"
)

func batch(t *testing.T) []models.Punch {
	t.Helper()
	return []models.Punch{
		punch(t, 2, "2026-01-13 22:00", models.DirectionEntry),
		punch(t, 1, "2026-01-12 08:00", models.DirectionEntry),
		punch(t, 1, "2026-01-12 07:55", models.DirectionEntry),
		punch(t, 1, "2026-01-12 17:00", models.DirectionExit),
		punch(t, 99, "2026-01-12 08:00", models.DirectionEntry),
		punch(t, 2, "2026-01-14 04:30", models.DirectionExit),
		punch(t, 1, "2026-01-15 07:00", models.DirectionUnknown),
		punch(t, 2, "2026-01-14 12:30", models.DirectionUnknown),
		punch(t, 1, "2026-01-15 16:00", models.DirectionExit),
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ExcludedCodes = []int{99}
	cfg.Workers = 4
	return cfg
}

func TestPipelineRun_Summary(t *testing.T) {
	p := New(testConfig(), zap.NewNop())

	res, err := p.Run(context.Background(), Input{Punches: batch(t)})
	require.NoError(t, err)

	s := res.Summary
	assert.Equal(t, 2, s.Employees)
	assert.Equal(t, 9, s.InputPunches)
	assert.Equal(t, 1, s.ExcludedPunches)
	assert.Equal(t, 1, s.DuplicatesRemoved)
	assert.Equal(t, 2, s.Inferred)
	assert.Equal(t, 1, s.InferredByMethod[models.MethodTimeOfDay])
	assert.Equal(t, 1, s.InferredByMethod[models.MethodContext])
	assert.Equal(t, 0, s.Undetermined)
	assert.Equal(t, 3, s.ShiftsComplete)
	assert.Equal(t, 1, s.ShiftsIncomplete)
	assert.Equal(t, 2, s.Placeholders)
	assert.Equal(t, len(res.Records), s.Records)

	for _, r := range res.Records {
		assert.NotEqual(t, 99, r.EmployeeCode)
	}
}

func TestPipelineRun_NoDataLoss(t *testing.T) {
	cfg := testConfig()
	p := New(cfg, nil)
	input := batch(t)

	res, err := p.Run(context.Background(), Input{Punches: input})
	require.NoError(t, err)

	want := len(input) - res.Summary.ExcludedPunches - res.Summary.DuplicatesRemoved
	assert.Equal(t, want, consumed(res.Shifts, res.Unmatched))
}

func TestPipelineRun_Completeness(t *testing.T) {
	p := New(testConfig(), zap.NewNop())
	input := batch(t)

	res, err := p.Run(context.Background(), Input{Punches: input})
	require.NoError(t, err)

	present := make(map[dayKey]bool)
	for _, r := range res.Records {
		present[keyOf(r.EmployeeCode, r.Date)] = true
	}

	first := make(map[int]time.Time)
	last := make(map[int]time.Time)
	for _, pu := range input {
		if pu.EmployeeCode == 99 {
			continue
		}
		if f, ok := first[pu.EmployeeCode]; !ok || pu.Timestamp.Before(f) {
			first[pu.EmployeeCode] = pu.Timestamp
		}
		if l, ok := last[pu.EmployeeCode]; !ok || pu.Timestamp.After(l) {
			last[pu.EmployeeCode] = pu.Timestamp
		}
	}
	for code, from := range first {
		for d := models.DateOf(from); !d.After(last[code]); d = d.AddDate(0, 0, 1) {
			assert.True(t, present[keyOf(code, d)], "missing row for %d on %s", code, d.Format(time.DateOnly))
		}
	}
}

func TestPipelineRun_Rows(t *testing.T) {
	p := New(testConfig(), zap.NewNop())

	res, err := p.Run(context.Background(), Input{Punches: batch(t)})
	require.NoError(t, err)

	var rows []string
	for _, r := range res.Records {
		rows = append(rows, r.Date.Format("02/01")+" "+r.EntryTime+"-"+r.ExitTime)
	}
	assert.Equal(t, []string{
		"12/01 08:00-17:00",
		"13/01 -",
		"14/01 -",
		"15/01 07:00-16:00",
		"13/01 22:00-00:00",
		"14/01 00:00-04:30",
		"14/01 12:30-",
	}, rows)

	assert.Equal(t, "Inferred state (Entry)", res.Records[3].Observation)
	assert.True(t, res.Records[4].HasObservation(ObsNightShift))
}

func TestPipelineRun_Deterministic(t *testing.T) {
	sequential := testConfig()
	sequential.Workers = 1
	parallel := testConfig()
	parallel.Workers = 8

	a, err := New(sequential, nil).Run(context.Background(), Input{Punches: batch(t)})
	require.NoError(t, err)
	b, err := New(parallel, nil).Run(context.Background(), Input{Punches: batch(t)})
	require.NoError(t, err)

	assert.Equal(t, a.Records, b.Records)
	assert.Equal(t, a.Summary, b.Summary)
}

func TestPipelineRun_InputOrderIrrelevant(t *testing.T) {
	p := New(testConfig(), nil)
	input := batch(t)
	reversed := make([]models.Punch, len(input))
	for i, pu := range input {
		reversed[len(input)-1-i] = pu
	}

	a, err := p.Run(context.Background(), Input{Punches: input})
	require.NoError(t, err)
	b, err := p.Run(context.Background(), Input{Punches: reversed})
	require.NoError(t, err)

	assert.Equal(t, a.Records, b.Records)
}

func TestPipelineRun_Schedules(t *testing.T) {
	p := New(DefaultConfig(), nil)

	res, err := p.Run(context.Background(), Input{
		Punches: []models.Punch{
			punch(t, 5, "2026-01-13 22:05", models.DirectionEntry),
			punch(t, 5, "2026-01-14 04:00", models.DirectionUnknown),
		},
		Schedules: models.ScheduleLookup{5: {{StartMinute: 22 * 60, EndMinute: 6 * 60}}},
	})
	require.NoError(t, err)

	require.Len(t, res.Inferences, 1)
	assert.Equal(t, models.DirectionExit, res.Inferences[0].Punch.Direction)
	require.Len(t, res.Shifts, 1)
	assert.True(t, res.Shifts[0].Complete)
	assert.True(t, res.Shifts[0].ExitInferred)
}

func TestPipelineRun_InvalidPunch(t *testing.T) {
	p := New(DefaultConfig(), nil)

	tests := []struct {
		name  string
		punch models.Punch
	}{
		{name: "missing code", punch: models.Punch{Timestamp: time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)}},
		{name: "missing timestamp", punch: models.Punch{EmployeeCode: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Run(context.Background(), Input{Punches: []models.Punch{entry(t, "2026-01-12 08:00"), tt.punch}})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPunch))
			assert.Contains(t, err.Error(), "row 2")
		})
	}
}

func TestPipelineRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testConfig(), nil).Run(ctx, Input{Punches: batch(t)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestPipelineRun_Empty(t *testing.T) {
	res, err := New(DefaultConfig(), nil).Run(context.Background(), Input{})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 0, res.Summary.Employees)
}
