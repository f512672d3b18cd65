package reconcile

import (
	"runtime"
	"slices"
	"time"
)

// HourRange is a half-open range of whole clock hours [From, To).
type HourRange struct {
	From int
	To   int
}

// Contains reports whether hour falls inside the range.
func (r HourRange) Contains(hour int) bool {
	return r.From <= hour && hour < r.To
}

func anyContains(ranges []HourRange, hour int) bool {
	for _, r := range ranges {
		if r.Contains(hour) {
			return true
		}
	}
	return false
}

// Window is a closed range of decimal hours [From, To].
type Window struct {
	From float64
	To   float64
}

// Contains reports whether the decimal hour falls inside the window.
func (w Window) Contains(hour float64) bool {
	return w.From <= hour && hour <= w.To
}

// Corrections configures the pre-pass that flips implausible known directions.
type Corrections struct {
	Enabled bool
	// EntryToExit lists hours where a recorded Entry is treated as an Exit.
	EntryToExit []HourRange
	// ExitToEntry lists hours where a recorded Exit is treated as an Entry.
	ExitToEntry []HourRange
	// ExemptCodes skip the EntryToExit (afternoon) rule.
	ExemptCodes []int
}

// GuardRule configures the organization override for guard employees.
type GuardRule struct {
	Codes          []int
	AMWindow       Window
	PMWindow       Window
	InferredLength time.Duration
}

// Config is the immutable set of thresholds threaded through every stage.
type Config struct {
	EnableDedup     bool
	EnableInference bool
	EnableSunday    bool
	ValidateNames   bool

	DuplicateWindow time.Duration

	NightShiftStartHour   float64
	StandardNightExitHour int

	MinShiftHours   float64
	MaxShiftHours   float64
	DailyLimitHours float64

	AMHours HourRange
	PMHours HourRange

	EntryHours []HourRange
	ExitHours  []HourRange

	// EarlyMorningHour bounds the "madrugada" punches that may close a previous day shift.
	EarlyMorningHour int
	// EarlyEntryHour and ClearNightHour guard against pairing a madrugada Entry
	// with a same-day night Entry.
	EarlyEntryHour int
	ClearNightHour float64

	NightPatternEntry HourRange
	NightPatternExit  HourRange

	ScheduleToleranceMinutes int
	// OvernightCarryHour is the hour before which punches count as next-day for overnight windows.
	OvernightCarryHour int

	Corrections Corrections
	Guard       GuardRule

	ExcludedCodes []int
	Workers       int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		EnableDedup:     true,
		EnableInference: true,
		EnableSunday:    true,
		ValidateNames:   true,

		DuplicateWindow: 900 * time.Second,

		NightShiftStartHour:   16.33,
		StandardNightExitHour: 6,

		MinShiftHours:   4,
		MaxShiftHours:   16,
		DailyLimitHours: 9.8,

		AMHours: HourRange{From: 6, To: 12},
		PMHours: HourRange{From: 12, To: 24},

		EntryHours: []HourRange{{From: 3, To: 11}},
		ExitHours:  []HourRange{{From: 14, To: 20}},

		EarlyMorningHour: 10,
		EarlyEntryHour:   8,
		ClearNightHour:   19,

		NightPatternEntry: HourRange{From: 16, To: 24},
		NightPatternExit:  HourRange{From: 0, To: 7},

		ScheduleToleranceMinutes: 120,
		OvernightCarryHour:       8,

		Corrections: Corrections{
			Enabled:     true,
			EntryToExit: []HourRange{{From: 13, To: 20}},
			ExitToEntry: []HourRange{{From: 5, To: 11}, {From: 20, To: 24}},
		},
		Guard: GuardRule{
			AMWindow:       Window{From: 4.5, To: 7.5},
			PMWindow:       Window{From: 12.5, To: 19.5},
			InferredLength: 12 * time.Hour,
		},

		Workers: runtime.NumCPU(),
	}
}

func (c Config) isGuard(code int) bool {
	return slices.Contains(c.Guard.Codes, code)
}

func (c Config) isExcluded(code int) bool {
	return slices.Contains(c.ExcludedCodes, code)
}

func (c Config) isNight(hour float64) bool {
	return hour >= c.NightShiftStartHour
}
