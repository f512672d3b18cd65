package models

import "time"

// Direction enumerates the meaning of a clock punch.
type Direction string

const (
	DirectionEntry        Direction = "entry"
	DirectionExit         Direction = "exit"
	DirectionUnknown      Direction = "unknown"
	DirectionUndetermined Direction = "undetermined"
)

// Known reports whether the direction is a resolved Entry or Exit.
func (d Direction) Known() bool {
	return d == DirectionEntry || d == DirectionExit
}

// InferenceMethod names the rule that assigned a punch direction.
type InferenceMethod string

const (
	MethodNone              InferenceMethod = ""
	MethodCorrection        InferenceMethod = "correction"
	MethodSchedule          InferenceMethod = "schedule"
	MethodScheduleOvernight InferenceMethod = "schedule_overnight"
	MethodTimeOfDay         InferenceMethod = "time_of_day"
	MethodContext           InferenceMethod = "context"
	MethodNightPattern      InferenceMethod = "night_pattern"
)

// Punch is one fingerprint-clock event.
type Punch struct {
	EmployeeCode int             `bson:"employee_code" json:"employee_code"`
	EmployeeName string          `bson:"employee_name" json:"employee_name"`
	Timestamp    time.Time       `bson:"timestamp" json:"timestamp"`
	Direction    Direction       `bson:"direction" json:"direction"`
	Inferred     bool            `bson:"inferred" json:"inferred"`
	Method       InferenceMethod `bson:"method,omitempty" json:"method,omitempty"`
}

// DecimalHour returns the punch time of day as fractional hours (16:30 -> 16.5).
func (p Punch) DecimalHour() float64 {
	return float64(p.Timestamp.Hour()) + float64(p.Timestamp.Minute())/60
}

// Date returns local midnight of the punch's calendar day.
func (p Punch) Date() time.Time {
	return DateOf(p.Timestamp)
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
