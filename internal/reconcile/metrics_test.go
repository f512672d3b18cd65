package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vallesolidario/huellero/internal/domain/models"
)

func closedShift(t *testing.T, code int, from, to string) models.Shift {
	t.Helper()
	in := at(t, from)
	s := models.Shift{
		EmployeeCode: code,
		EmployeeName: "EMPLOYEE",
		Date:         models.DateOf(in),
		Entry:        &in,
		PunchCount:   2,
	}
	s.Close(at(t, to))
	return s
}

func observationCodes(r models.MetricRecord) []string {
	var codes []string
	for _, o := range r.Observations {
		codes = append(codes, o.Code)
	}
	return codes
}

func TestCalculateMetrics_MidnightSplit(t *testing.T) {
	s := closedShift(t, 1, "2026-01-13 16:39", "2026-01-14 04:44")
	s.NightShift = true

	res := CalculateMetrics(MetricsInput{
		Shifts: []models.Shift{s},
		Punches: []models.Punch{
			entry(t, "2026-01-13 16:39"),
			exit(t, "2026-01-14 04:44"),
		},
	}, DefaultConfig())

	require.Len(t, res.Records, 2)
	first, second := res.Records[0], res.Records[1]

	assert.Equal(t, "13/01/2026", first.Date.Format("02/01/2006"))
	assert.Equal(t, "16:39", first.EntryTime)
	assert.Equal(t, "00:00", first.ExitTime)
	require.NotNil(t, first.Hours)
	assert.InDelta(t, 7.35, *first.Hours, 0.001)
	assert.Equal(t, models.RecordSplitStart, first.Kind)
	assert.Equal(t, 1, *first.PMPunches)

	assert.Equal(t, "14/01/2026", second.Date.Format("02/01/2006"))
	assert.Equal(t, "00:00", second.EntryTime)
	assert.Equal(t, "04:44", second.ExitTime)
	require.NotNil(t, second.Hours)
	assert.InDelta(t, 4.73, *second.Hours, 0.001)
	assert.Equal(t, 0, *second.AMPunches)
	assert.Equal(t, 0, *second.PMPunches)
	assert.Equal(t, models.RecordSplitEnd, second.Kind)

	assert.InDelta(t, *s.Hours, *first.Hours+*second.Hours, 0.011)
}

func TestCalculateMetrics_ExitAtMidnightIsNotSplit(t *testing.T) {
	s := closedShift(t, 1, "2026-01-13 16:00", "2026-01-14 00:00")
	s.NightShift = true

	res := CalculateMetrics(MetricsInput{Shifts: []models.Shift{s}}, DefaultConfig())

	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Equal(t, models.RecordShift, r.Kind)
	assert.Equal(t, at(t, "2026-01-13 00:00"), r.Date)
	assert.Equal(t, "16:00", r.EntryTime)
	assert.Equal(t, "00:00", r.ExitTime)
	require.NotNil(t, r.Hours)
	assert.InDelta(t, 8.0, *r.Hours, 0.001)
}

func TestCalculateMetrics_GapFill(t *testing.T) {
	res := CalculateMetrics(MetricsInput{
		Shifts: []models.Shift{
			closedShift(t, 1, "2026-01-10 08:00", "2026-01-10 16:00"),
			closedShift(t, 1, "2026-01-13 08:00", "2026-01-13 16:00"),
		},
	}, DefaultConfig())

	require.Len(t, res.Records, 4)
	assert.Equal(t, 2, res.Placeholders)
	for i, day := range []string{"2026-01-10", "2026-01-11", "2026-01-12", "2026-01-13"} {
		assert.Equal(t, day, res.Records[i].Date.Format("2006-01-02"))
	}
	gap := res.Records[1]
	assert.Equal(t, models.RecordPlaceholder, gap.Kind)
	assert.Equal(t, "No punches recorded", gap.Observation)
	assert.Nil(t, gap.Hours)
	assert.Nil(t, gap.AMPunches)
	assert.Equal(t, "EMPLOYEE", gap.EmployeeName)
}

func TestCalculateMetrics_GapFillUsesSpan(t *testing.T) {
	res := CalculateMetrics(MetricsInput{
		Shifts: []models.Shift{closedShift(t, 1, "2026-01-12 08:00", "2026-01-12 16:00")},
		Spans: map[int]EmployeeSpan{
			1: {Name: "EMPLOYEE", From: at(t, "2026-01-11 23:55"), To: at(t, "2026-01-12 16:00")},
		},
	}, DefaultConfig())

	require.Len(t, res.Records, 2)
	assert.Equal(t, models.RecordPlaceholder, res.Records[0].Kind)
	assert.Equal(t, "2026-01-11", res.Records[0].Date.Format("2006-01-02"))
}

func TestCalculateMetrics_OK(t *testing.T) {
	res := CalculateMetrics(MetricsInput{
		Shifts: []models.Shift{closedShift(t, 1, "2026-01-12 08:00", "2026-01-12 16:00")},
		Punches: []models.Punch{
			entry(t, "2026-01-12 08:00"),
			exit(t, "2026-01-12 16:00"),
		},
	}, DefaultConfig())

	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Equal(t, LabelOK, r.Observation)
	assert.Equal(t, "Monday", r.Weekday)
	assert.Equal(t, "08:00", r.EntryTime)
	assert.Equal(t, "16:00", r.ExitTime)
	assert.Equal(t, 1, *r.AMPunches)
	assert.Equal(t, 1, *r.PMPunches)
}

func TestCalculateMetrics_ObservationOrder(t *testing.T) {
	in := at(t, "2026-01-11 08:00")
	s := models.Shift{
		EmployeeCode:  1234,
		EmployeeName:  "PEREZ 1234",
		Date:          models.DateOf(in),
		Entry:         &in,
		EntryInferred: true,
		PunchCount:    1,
	}

	res := CalculateMetrics(MetricsInput{Shifts: []models.Shift{s}}, DefaultConfig())

	require.Len(t, res.Records, 1)
	r := res.Records[0]
	assert.Equal(t, []string{ObsMissingExit, ObsInferredEntry, ObsSuspiciousData, ObsSunday}, observationCodes(r))
	assert.Equal(t, "Exit not recorded | Inferred state (Entry) | ALERT: employee data requires correction | Sunday work", r.Observation)
}

func TestCalculateMetrics_HourLimits(t *testing.T) {
	tests := []struct {
		name string
		to   string
		want []string
	}{
		{name: "too long", to: "2026-01-13 01:00", want: []string{ObsTooLong}},
		{name: "exceeds daily limit", to: "2026-01-12 18:00", want: []string{ObsExceedsDaily}},
		{name: "too short", to: "2026-01-12 11:00", want: []string{ObsTooShort}},
		{name: "within limits", to: "2026-01-12 16:00", want: nil},
	}

	cfg := DefaultConfig()
	cfg.MaxShiftHours = 16
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := closedShift(t, 1, "2026-01-12 08:00", tt.to)
			res := CalculateMetrics(MetricsInput{Shifts: []models.Shift{s}}, cfg)

			require.NotEmpty(t, res.Records)
			assert.Equal(t, tt.want, observationCodes(res.Records[0]))
		})
	}
}

func TestCalculateMetrics_Duplicates(t *testing.T) {
	res := CalculateMetrics(MetricsInput{
		Shifts: []models.Shift{closedShift(t, 1, "2026-01-12 08:00", "2026-01-12 16:00")},
		Punches: []models.Punch{
			entry(t, "2026-01-12 08:00"),
			exit(t, "2026-01-12 16:00"),
		},
		Discarded: []DiscardedPunch{{Punch: entry(t, "2026-01-12 07:55")}},
	}, DefaultConfig())

	require.Len(t, res.Records, 1)
	assert.Equal(t, "Duplicates removed (1)", res.Records[0].Observation)
}

func TestCalculateMetrics_ManualReview(t *testing.T) {
	undetermined := models.Punch{
		EmployeeCode: 1,
		EmployeeName: "EMPLOYEE",
		Timestamp:    at(t, "2026-01-12 12:00"),
		Direction:    models.DirectionUndetermined,
	}
	lonely := models.Punch{
		EmployeeCode: 1,
		EmployeeName: "EMPLOYEE",
		Timestamp:    at(t, "2026-01-13 12:00"),
		Direction:    models.DirectionUndetermined,
	}

	res := CalculateMetrics(MetricsInput{
		Shifts:  []models.Shift{closedShift(t, 1, "2026-01-12 08:00", "2026-01-12 16:00")},
		Punches: []models.Punch{undetermined, lonely},
		Unmatched: []models.UnmatchedPunch{
			{Punch: undetermined, Reason: models.UnmatchUndetermined},
			{Punch: lonely, Reason: models.UnmatchUndetermined},
		},
	}, DefaultConfig())

	require.Len(t, res.Records, 2)
	assert.Equal(t, 1, res.Reviews)
	assert.Equal(t, 0, res.Placeholders)

	assert.Equal(t, models.RecordShift, res.Records[0].Kind)
	assert.True(t, res.Records[0].HasObservation(ObsManualReview))

	review := res.Records[1]
	assert.Equal(t, models.RecordReview, review.Kind)
	assert.True(t, review.HasObservation(ObsManualReview))
	assert.Equal(t, 1, *review.PMPunches)
	assert.Contains(t, review.Observation, "requires manual review")
}

func TestCalculateMetrics_RoleLimit(t *testing.T) {
	roles := models.RoleLookup{1: {Document: "1020304050", Role: "Operator", DailyHours: 8}}

	res := CalculateMetrics(MetricsInput{
		Shifts: []models.Shift{
			closedShift(t, 1, "2026-01-12 08:00", "2026-01-12 18:00"),
			closedShift(t, 1, "2026-01-14 08:00", "2026-01-14 16:00"),
		},
		Roles: roles,
	}, DefaultConfig())

	require.Len(t, res.Records, 3)
	over := res.Records[0]
	assert.Equal(t, []string{ObsRoleLimit}, observationCodes(over))
	assert.Equal(t, "1020304050", over.Document)
	assert.Equal(t, "Operator", over.Role)
	require.NotNil(t, over.DailyLimit)
	assert.InDelta(t, 8.0, *over.DailyLimit, 0.001)

	// Placeholders carry master data too.
	assert.Equal(t, models.RecordPlaceholder, res.Records[1].Kind)
	assert.Equal(t, "1020304050", res.Records[1].Document)

	assert.Equal(t, LabelOK, res.Records[2].Observation)
}

func TestCalculateMetrics_SortedByEmployeeThenDate(t *testing.T) {
	res := CalculateMetrics(MetricsInput{
		Shifts: []models.Shift{
			closedShift(t, 2, "2026-01-12 08:00", "2026-01-12 16:00"),
			closedShift(t, 1, "2026-01-13 08:00", "2026-01-13 16:00"),
			closedShift(t, 1, "2026-01-12 08:00", "2026-01-12 16:00"),
		},
	}, DefaultConfig())

	require.Len(t, res.Records, 3)
	assert.Equal(t, 1, res.Records[0].EmployeeCode)
	assert.Equal(t, "2026-01-12", res.Records[0].Date.Format("2006-01-02"))
	assert.Equal(t, 1, res.Records[1].EmployeeCode)
	assert.Equal(t, 2, res.Records[2].EmployeeCode)
}
