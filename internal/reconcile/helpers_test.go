package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vallesolidario/huellero/internal/domain/models"
)

const tsLayout = "2006-01-02 15:04"

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation(tsLayout, value, time.UTC)
	require.NoError(t, err)
	return ts
}

func punch(t *testing.T, code int, value string, d models.Direction) models.Punch {
	t.Helper()
	return models.Punch{
		EmployeeCode: code,
		EmployeeName: "EMPLOYEE",
		Timestamp:    at(t, value),
		Direction:    d,
	}
}

func entry(t *testing.T, value string) models.Punch {
	t.Helper()
	return punch(t, 1, value, models.DirectionEntry)
}

func exit(t *testing.T, value string) models.Punch {
	t.Helper()
	return punch(t, 1, value, models.DirectionExit)
}

func unknown(t *testing.T, value string) models.Punch {
	t.Helper()
	return punch(t, 1, value, models.DirectionUnknown)
}

// consumed counts the punches referenced by shifts plus the ones reported unmatched.
func consumed(shifts []models.Shift, unmatched []models.UnmatchedPunch) int {
	n := len(unmatched)
	for _, s := range shifts {
		n += s.PunchCount
	}
	return n
}
