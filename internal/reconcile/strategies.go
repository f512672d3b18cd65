package reconcile

import (
	"math"
	"time"

	"github.com/vallesolidario/huellero/internal/domain/models"
)

// proposal is a direction a strategy suggests for the punch at index.
type proposal struct {
	index     int
	direction models.Direction
	method    models.InferenceMethod
}

// inferenceStrategy proposes directions for the unknown punches of one employee.
// punches is a read-only snapshot sorted by timestamp.
type inferenceStrategy interface {
	propose(punches []models.Punch, cfg Config) []proposal
}

// strategiesFor returns the strategies in priority order.
func strategiesFor(windows []models.ShiftWindow) []inferenceStrategy {
	var out []inferenceStrategy
	if len(windows) > 0 {
		out = append(out, scheduleStrategy{windows: windows})
	}
	return append(out,
		timeOfDayStrategy{},
		contextStrategy{},
		nightPatternStrategy{},
	)
}

// scheduleStrategy fits each day's punches to the closest window of the employee's role.
type scheduleStrategy struct {
	windows []models.ShiftWindow
}

func (s scheduleStrategy) propose(punches []models.Punch, cfg Config) []proposal {
	var out []proposal
	for _, day := range groupByDay(punches) {
		if !hasUnknown(punches, day.indices) {
			continue
		}

		carry := s.previousNightEntry(punches, day.date, cfg)
		fit := make([]int, 0, len(day.indices))
		for _, i := range day.indices {
			p := punches[i]
			if carry && p.Timestamp.Hour() < cfg.OvernightCarryHour {
				if p.Direction == models.DirectionUnknown {
					out = append(out, proposal{index: i, direction: models.DirectionExit, method: models.MethodScheduleOvernight})
				}
				continue
			}
			fit = append(fit, i)
		}

		minutes := make([]int, len(fit))
		for k, i := range fit {
			minutes[k] = minuteOfDay(punches[i].Timestamp)
		}
		labels, ok := bestFit(minutes, s.windows, cfg)
		if !ok {
			continue
		}
		for k, i := range fit {
			if punches[i].Direction == models.DirectionUnknown {
				out = append(out, proposal{index: i, direction: labels[k], method: models.MethodSchedule})
			}
		}
	}
	return out
}

// previousNightEntry reports whether the day before date has a punch near the
// start of one of the overnight windows.
func (s scheduleStrategy) previousNightEntry(punches []models.Punch, date time.Time, cfg Config) bool {
	prev := date.AddDate(0, 0, -1)
	for _, w := range s.windows {
		if !w.Overnight() {
			continue
		}
		for _, p := range punches {
			if !models.SameDay(p.Timestamp, prev) {
				continue
			}
			if abs(minuteOfDay(p.Timestamp)-w.StartMinute) <= cfg.ScheduleToleranceMinutes {
				return true
			}
		}
	}
	return false
}

// bestFit picks the window with the lowest endpoint deviation and labels every
// minute as Entry or Exit by proximity. It fails when no window is within tolerance.
func bestFit(minutes []int, windows []models.ShiftWindow, cfg Config) ([]models.Direction, bool) {
	if len(minutes) == 0 || len(windows) == 0 {
		return nil, false
	}

	best := -1
	bestDev := math.MaxInt
	for wi, w := range windows {
		start, end := w.Normalized()
		adjusted := adjustMinutes(minutes, w, cfg)
		first, last := minMax(adjusted)

		var dev int
		if len(adjusted) >= 2 {
			dev = abs(first-start) + abs(last-end)
		} else {
			dev = min(abs(first-start), abs(first-end))
		}
		if dev < bestDev {
			best, bestDev = wi, dev
		}
	}

	endpoints := 2
	if len(minutes) == 1 {
		endpoints = 1
	}
	if bestDev > cfg.ScheduleToleranceMinutes*endpoints {
		return nil, false
	}

	w := windows[best]
	start, end := w.Normalized()
	labels := make([]models.Direction, len(minutes))
	for k, m := range adjustMinutes(minutes, w, cfg) {
		if abs(m-start) <= abs(m-end) {
			labels[k] = models.DirectionEntry
		} else {
			labels[k] = models.DirectionExit
		}
	}
	return labels, true
}

func adjustMinutes(minutes []int, w models.ShiftWindow, cfg Config) []int {
	out := make([]int, len(minutes))
	for k, m := range minutes {
		if w.Overnight() && m < cfg.OvernightCarryHour*60 {
			m += 1440
		}
		out[k] = m
	}
	return out
}

// timeOfDayStrategy maps fixed hour ranges to a direction.
type timeOfDayStrategy struct{}

func (timeOfDayStrategy) propose(punches []models.Punch, cfg Config) []proposal {
	var out []proposal
	for i, p := range punches {
		if p.Direction != models.DirectionUnknown {
			continue
		}
		hour := p.Timestamp.Hour()
		switch {
		case anyContains(cfg.EntryHours, hour):
			out = append(out, proposal{index: i, direction: models.DirectionEntry, method: models.MethodTimeOfDay})
		case anyContains(cfg.ExitHours, hour):
			out = append(out, proposal{index: i, direction: models.DirectionExit, method: models.MethodTimeOfDay})
		}
	}
	return out
}

// contextStrategy looks at the nearest resolved punches before and after.
type contextStrategy struct{}

func (contextStrategy) propose(punches []models.Punch, cfg Config) []proposal {
	var out []proposal
	for i, p := range punches {
		if p.Direction != models.DirectionUnknown {
			continue
		}
		before := nearestKnown(punches, i, -1)
		after := nearestKnown(punches, i, +1)

		var d models.Direction
		switch {
		case before == models.DirectionEntry && (after == "" || after == models.DirectionEntry):
			d = models.DirectionExit
		case before == models.DirectionExit && (after == "" || after == models.DirectionExit):
			d = models.DirectionEntry
		case before == "" && after == models.DirectionExit:
			d = models.DirectionEntry
		case before == "" && after == models.DirectionEntry && p.Timestamp.Hour() < cfg.EarlyMorningHour:
			d = models.DirectionExit
		default:
			continue
		}
		out = append(out, proposal{index: i, direction: d, method: models.MethodContext})
	}
	return out
}

func nearestKnown(punches []models.Punch, from, step int) models.Direction {
	for i := from + step; i >= 0 && i < len(punches); i += step {
		if punches[i].Direction.Known() {
			return punches[i].Direction
		}
	}
	return ""
}

// nightPatternStrategy classifies employees whose mean entry hour is at night.
type nightPatternStrategy struct{}

func (nightPatternStrategy) propose(punches []models.Punch, cfg Config) []proposal {
	var sum float64
	var entries int
	for _, p := range punches {
		if p.Direction == models.DirectionEntry {
			sum += p.DecimalHour()
			entries++
		}
	}
	if entries == 0 || !cfg.isNight(sum/float64(entries)) {
		return nil
	}

	var out []proposal
	for i, p := range punches {
		if p.Direction != models.DirectionUnknown {
			continue
		}
		hour := p.Timestamp.Hour()
		switch {
		case cfg.NightPatternEntry.Contains(hour):
			out = append(out, proposal{index: i, direction: models.DirectionEntry, method: models.MethodNightPattern})
		case cfg.NightPatternExit.Contains(hour):
			out = append(out, proposal{index: i, direction: models.DirectionExit, method: models.MethodNightPattern})
		}
	}
	return out
}

type dayGroup struct {
	date    time.Time
	indices []int
}

// groupByDay splits sorted punches into calendar days, oldest first.
func groupByDay(punches []models.Punch) []dayGroup {
	var days []dayGroup
	for i, p := range punches {
		if n := len(days); n > 0 && models.SameDay(days[n-1].date, p.Timestamp) {
			days[n-1].indices = append(days[n-1].indices, i)
			continue
		}
		days = append(days, dayGroup{date: p.Date(), indices: []int{i}})
	}
	return days
}

func hasUnknown(punches []models.Punch, indices []int) bool {
	for _, i := range indices {
		if punches[i].Direction == models.DirectionUnknown {
			return true
		}
	}
	return false
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func minMax(values []int) (int, int) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
