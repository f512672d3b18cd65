package models

import (
	"math"
	"time"
)

// Shift is a reconciled work period built from zero, one or two punches.
type Shift struct {
	EmployeeCode int        `bson:"employee_code" json:"employee_code"`
	EmployeeName string     `bson:"employee_name" json:"employee_name"`
	Date         time.Time  `bson:"date" json:"date"`
	Entry        *time.Time `bson:"entry,omitempty" json:"entry,omitempty"`
	Exit         *time.Time `bson:"exit,omitempty" json:"exit,omitempty"`
	Hours        *float64   `bson:"hours,omitempty" json:"hours,omitempty"`
	NightShift   bool       `bson:"night_shift" json:"night_shift"`
	Complete     bool       `bson:"complete" json:"complete"`

	EntryInferred     bool `bson:"entry_inferred" json:"entry_inferred"`
	ExitInferred      bool `bson:"exit_inferred" json:"exit_inferred"`
	ExitCorrected     bool `bson:"exit_corrected" json:"exit_corrected"`
	NightProspective  bool `bson:"night_prospective" json:"night_prospective"`
	StandardNightExit bool `bson:"standard_night_exit" json:"standard_night_exit"`
	SpecialRule       bool `bson:"special_rule" json:"special_rule"`

	// PunchCount is the number of source punches this shift consumed.
	PunchCount int `bson:"punch_count" json:"punch_count"`
}

// EntryOnly reports whether the shift has an entry and is still waiting for its exit.
func (s *Shift) EntryOnly() bool {
	return !s.Complete && s.Entry != nil && s.Exit == nil
}

// Close sets the exit and recomputes hours and completeness.
func (s *Shift) Close(exit time.Time) {
	s.Exit = &exit
	s.Complete = s.Entry != nil
	if s.Entry != nil {
		h := RoundHours(exit.Sub(*s.Entry).Hours())
		s.Hours = &h
	}
}

// UnmatchReason explains why a punch is not referenced by any shift.
type UnmatchReason string

const (
	UnmatchUndetermined UnmatchReason = "undetermined_direction"
	UnmatchSkipped      UnmatchReason = "skipped_by_pairing"
)

// UnmatchedPunch is a punch reported instead of being referenced by a shift.
type UnmatchedPunch struct {
	Punch  Punch         `bson:"punch" json:"punch"`
	Reason UnmatchReason `bson:"reason" json:"reason"`
}

// RoundHours rounds to two decimals, the precision used in payroll reports.
func RoundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
