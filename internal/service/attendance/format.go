package attendance

import (
	"fmt"
	"strconv"

	"github.com/vallesolidario/huellero/internal/domain/models"
)

const reportDateLayout = "02/01/2006"

// reportHeader matches the column order of reportRow.
var reportHeader = []interface{}{
	"Code", "Name", "Document", "Role", "Date", "Weekday", "AM punches", "PM punches",
	"Entry", "Exit", "Hours", "Daily limit", "Observation", "Kind",
}

// ReportRows renders records as sheet rows, header first.
func ReportRows(records []models.MetricRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(records)+1)
	rows = append(rows, reportHeader)
	for _, r := range records {
		rows = append(rows, reportRow(r))
	}
	return rows
}

func reportRow(r models.MetricRecord) []interface{} {
	return []interface{}{
		strconv.Itoa(r.EmployeeCode),
		r.EmployeeName,
		r.Document,
		r.Role,
		r.Date.Format(reportDateLayout),
		r.Weekday,
		optionalInt(r.AMPunches),
		optionalInt(r.PMPunches),
		r.EntryTime,
		r.ExitTime,
		optionalHours(r.Hours),
		optionalHours(r.DailyLimit),
		r.Observation,
		string(r.Kind),
	}
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optionalHours(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

// SummaryMessage is the one-line chat notification for a finished run.
func SummaryMessage(report models.RunReport) string {
	s := report.Summary
	return fmt.Sprintf(
		"Attendance run %s (%s - %s): %d employees, %d rows, %d duplicates removed, %d inferred, %d undetermined, %d incomplete shifts, %d days without punches.",
		report.ID,
		report.From.Format(reportDateLayout),
		report.To.Format(reportDateLayout),
		s.Employees,
		s.Records,
		s.DuplicatesRemoved,
		s.Inferred,
		s.Undetermined,
		s.ShiftsIncomplete,
		s.Placeholders,
	)
}
