package models

import (
	"errors"
	"strings"
	"time"
)

// Severity tags an observation for downstream formatting.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityAlert Severity = "alert"
)

// Observation is one annotation attached to a metric record.
type Observation struct {
	Code     string   `bson:"code" json:"code"`
	Text     string   `bson:"text" json:"text"`
	Severity Severity `bson:"severity" json:"severity"`
}

// RecordKind distinguishes regular rows from split halves and filler rows.
type RecordKind string

const (
	RecordShift       RecordKind = "shift"
	RecordSplitStart  RecordKind = "split_start"
	RecordSplitEnd    RecordKind = "split_end"
	RecordPlaceholder RecordKind = "placeholder"
	RecordReview      RecordKind = "review"
)

// MetricRecord is one employee-day output row.
type MetricRecord struct {
	EmployeeCode int           `bson:"employee_code" json:"employee_code"`
	EmployeeName string        `bson:"employee_name" json:"employee_name"`
	Document     string        `bson:"document,omitempty" json:"document,omitempty"`
	Role         string        `bson:"role,omitempty" json:"role,omitempty"`
	Date         time.Time     `bson:"date" json:"date"`
	Weekday      string        `bson:"weekday" json:"weekday"`
	AMPunches    *int          `bson:"am_punches,omitempty" json:"am_punches,omitempty"`
	PMPunches    *int          `bson:"pm_punches,omitempty" json:"pm_punches,omitempty"`
	EntryTime    string        `bson:"entry_time" json:"entry_time"`
	ExitTime     string        `bson:"exit_time" json:"exit_time"`
	Hours        *float64      `bson:"hours,omitempty" json:"hours,omitempty"`
	DailyLimit   *float64      `bson:"daily_limit,omitempty" json:"daily_limit,omitempty"`
	Observations []Observation `bson:"observations" json:"observations"`
	Observation  string        `bson:"observation" json:"observation"`
	Kind         RecordKind    `bson:"kind" json:"kind"`
}

// HasObservation reports whether an observation with the given code is attached.
func (r *MetricRecord) HasObservation(code string) bool {
	for _, o := range r.Observations {
		if o.Code == code {
			return true
		}
	}
	return false
}

// JoinObservations renders observations pipe-joined, or fallback when there are none.
func JoinObservations(obs []Observation, fallback string) string {
	if len(obs) == 0 {
		return fallback
	}
	parts := make([]string, 0, len(obs))
	for _, o := range obs {
		parts = append(parts, o.Text)
	}
	return strings.Join(parts, " | ")
}

// ShiftWindow is a candidate shift expressed in minutes since midnight.
// Overnight windows have EndMinute < StartMinute.
type ShiftWindow struct {
	StartMinute int `bson:"start_minute" json:"start_minute"`
	EndMinute   int `bson:"end_minute" json:"end_minute"`
}

// Overnight reports whether the window crosses midnight.
func (w ShiftWindow) Overnight() bool {
	return w.EndMinute < w.StartMinute
}

// Normalized returns start and end with overnight ends moved past 1440.
func (w ShiftWindow) Normalized() (int, int) {
	if w.Overnight() {
		return w.StartMinute, w.EndMinute + 1440
	}
	return w.StartMinute, w.EndMinute
}

// ScheduleLookup maps an employee code to the candidate windows of its role.
type ScheduleLookup map[int][]ShiftWindow

// EmployeeRole is the master data joined into the report when available.
type EmployeeRole struct {
	Document   string  `bson:"document" json:"document"`
	Role       string  `bson:"role" json:"role"`
	DailyHours float64 `bson:"daily_hours" json:"daily_hours"`
}

// RoleLookup maps an employee code to its master data.
type RoleLookup map[int]EmployeeRole

// RunSummary aggregates per-run statistics.
type RunSummary struct {
	Employees         int                     `bson:"employees" json:"employees"`
	InputPunches      int                     `bson:"input_punches" json:"input_punches"`
	ExcludedPunches   int                     `bson:"excluded_punches" json:"excluded_punches"`
	DuplicatesRemoved int                     `bson:"duplicates_removed" json:"duplicates_removed"`
	Corrected         int                     `bson:"corrected" json:"corrected"`
	Inferred          int                     `bson:"inferred" json:"inferred"`
	InferredByMethod  map[InferenceMethod]int `bson:"inferred_by_method" json:"inferred_by_method"`
	Undetermined      int                     `bson:"undetermined" json:"undetermined"`
	ShiftsComplete    int                     `bson:"shifts_complete" json:"shifts_complete"`
	ShiftsIncomplete  int                     `bson:"shifts_incomplete" json:"shifts_incomplete"`
	NightShifts       int                     `bson:"night_shifts" json:"night_shifts"`
	Unmatched         int                     `bson:"unmatched" json:"unmatched"`
	Records           int                     `bson:"records" json:"records"`
	Placeholders      int                     `bson:"placeholders" json:"placeholders"`
}

// RunReport is what a reconciliation run persists.
type RunReport struct {
	ID        string         `bson:"_id" json:"id"`
	From      time.Time      `bson:"from" json:"from"`
	To        time.Time      `bson:"to" json:"to"`
	Summary   RunSummary     `bson:"summary" json:"summary"`
	Records   []MetricRecord `bson:"-" json:"records,omitempty"`
	CreatedAt time.Time      `bson:"created_at" json:"created_at"`
}

// ErrRunNotFound is returned by report stores for unknown run ids.
var ErrRunNotFound = errors.New("run not found")
