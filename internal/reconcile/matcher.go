package reconcile

import (
	"time"

	"github.com/vallesolidario/huellero/internal/domain/models"
)

// MatchResult is the ShiftMatcher output for one employee.
type MatchResult struct {
	Shifts    []models.Shift
	Unmatched []models.UnmatchedPunch
}

// matcher walks one employee's resolved punches with a single forward cursor.
type matcher struct {
	cfg     Config
	punches []models.Punch
	guard   bool

	shifts []models.Shift
	used   []bool
}

// MatchShifts pairs resolved punches of one employee into shifts.
func MatchShifts(punches []models.Punch, cfg Config) MatchResult {
	if len(punches) == 0 {
		return MatchResult{}
	}

	m := &matcher{
		cfg:     cfg,
		punches: punches,
		guard:   cfg.isGuard(punches[0].EmployeeCode),
		used:    make([]bool, len(punches)),
	}

	for i := 0; i < len(punches); {
		switch punches[i].Direction {
		case models.DirectionEntry:
			i = m.onEntry(i)
		case models.DirectionExit:
			m.onExit(i)
			i++
		default:
			i++
		}
	}

	m.closeOvernight()

	return MatchResult{Shifts: m.shifts, Unmatched: m.unmatched()}
}

// onEntry builds the shift that starts at punch i and returns the next cursor.
func (m *matcher) onEntry(i int) int {
	entry := m.punches[i]

	exitIdx, corrected, special := -1, false, false
	if m.guard && m.cfg.Guard.AMWindow.Contains(entry.DecimalHour()) {
		exitIdx, corrected = m.findGuardExit(i)
		special = exitIdx >= 0
	}
	if exitIdx < 0 {
		exitIdx, corrected = m.findExit(i)
	}

	if exitIdx >= 0 {
		exit := m.punches[exitIdx]
		shift := m.newShift(entry)
		shift.Close(exit.Timestamp)
		shift.NightShift = !special && m.cfg.isNight(entry.DecimalHour())
		shift.ExitInferred = exit.Inferred
		shift.ExitCorrected = corrected
		shift.SpecialRule = special
		shift.PunchCount = 2
		m.used[i], m.used[exitIdx] = true, true
		m.shifts = append(m.shifts, shift)
		return exitIdx + 1
	}

	shift := m.newShift(entry)
	shift.NightShift = m.cfg.isNight(entry.DecimalHour())
	shift.PunchCount = 1
	if m.guard {
		m.applyGuardInference(&shift, entry)
	}
	m.used[i] = true
	m.shifts = append(m.shifts, shift)
	return i + 1
}

// findGuardExit looks for a same-day punch in the guard PM window.
func (m *matcher) findGuardExit(i int) (int, bool) {
	entry := m.punches[i]
	for j := i + 1; j < len(m.punches); j++ {
		next := m.punches[j]
		if !models.SameDay(next.Timestamp, entry.Timestamp) {
			break
		}
		if !next.Direction.Known() || !m.cfg.Guard.PMWindow.Contains(next.DecimalHour()) {
			continue
		}
		if !m.validLength(entry.Timestamp, next.Timestamp) {
			continue
		}
		return j, next.Direction == models.DirectionEntry
	}
	return -1, false
}

// findExit is the generic pairing search. The second return value is true when a
// same-day Entry is reinterpreted as the Exit.
func (m *matcher) findExit(i int) (int, bool) {
	entry := m.punches[i]
	for j := i + 1; j < len(m.punches); j++ {
		next := m.punches[j]
		switch next.Direction {
		case models.DirectionExit:
			hours := next.Timestamp.Sub(entry.Timestamp).Hours()
			if hours <= 0 {
				continue
			}
			if hours > m.cfg.MaxShiftHours {
				return -1, false
			}
			return j, false
		case models.DirectionEntry:
			if !models.SameDay(next.Timestamp, entry.Timestamp) {
				return -1, false
			}
			// A madrugada entry followed by a night entry is the tail of the previous
			// night shift plus the start of a new one, not a single day shift.
			if entry.Timestamp.Hour() < m.cfg.EarlyEntryHour && next.DecimalHour() >= m.cfg.ClearNightHour {
				return -1, false
			}
			if !m.validLength(entry.Timestamp, next.Timestamp) {
				return -1, false
			}
			return j, true
		}
	}
	return -1, false
}

// applyGuardInference closes a lone guard punch at a fixed length. Only a
// paired AM/PM guard shift counts as the special rule.
func (m *matcher) applyGuardInference(shift *models.Shift, entry models.Punch) {
	hour := entry.DecimalHour()
	var night bool
	switch {
	case m.cfg.Guard.AMWindow.Contains(hour):
		night = false
	case m.cfg.Guard.PMWindow.Contains(hour):
		night = true
	default:
		return
	}
	shift.Close(entry.Timestamp.Add(m.cfg.Guard.InferredLength))
	shift.NightShift = night
	shift.ExitInferred = true
}

// onExit handles an Exit with no open Entry: it either closes yesterday's
// entry-only shift or becomes an orphan shift of its own.
func (m *matcher) onExit(i int) {
	exit := m.punches[i]
	m.used[i] = true

	if exit.Timestamp.Hour() < m.cfg.EarlyMorningHour {
		prev := models.DateOf(exit.Timestamp).AddDate(0, 0, -1)
		for k := len(m.shifts) - 1; k >= 0; k-- {
			s := &m.shifts[k]
			if !s.Date.Equal(prev) || !s.EntryOnly() {
				continue
			}
			// No length limit here; an overlong result is flagged by the hour checks.
			s.Close(exit.Timestamp)
			s.ExitInferred = exit.Inferred
			s.PunchCount++
			return
		}
	}

	m.shifts = append(m.shifts, models.Shift{
		EmployeeCode: exit.EmployeeCode,
		EmployeeName: exit.EmployeeName,
		Date:         exit.Date(),
		Exit:         timePtr(exit.Timestamp),
		ExitInferred: exit.Inferred,
		PunchCount:   1,
	})
}

// closeOvernight pairs trailing night entry-only shifts with a next-day morning
// entry, or defaults their exit to the standard night exit hour.
func (m *matcher) closeOvernight() {
	removed := make(map[int]bool)
	for t := range m.shifts {
		night := &m.shifts[t]
		if removed[t] || !night.EntryOnly() || !m.cfg.isNight(decimalHour(*night.Entry)) {
			continue
		}

		nextDay := night.Date.AddDate(0, 0, 1)
		closed := false
		for s := range m.shifts {
			if s == t || removed[s] {
				continue
			}
			morning := &m.shifts[s]
			if !morning.EntryOnly() || !morning.Date.Equal(nextDay) || morning.Entry.Hour() >= m.cfg.EarlyMorningHour {
				continue
			}
			night.Close(*morning.Entry)
			night.NightShift = true
			night.NightProspective = true
			night.PunchCount += morning.PunchCount
			removed[s] = true
			closed = true
			break
		}
		if closed {
			continue
		}

		exit := time.Date(nextDay.Year(), nextDay.Month(), nextDay.Day(), m.cfg.StandardNightExitHour, 0, 0, 0, nextDay.Location())
		night.Close(exit)
		night.NightShift = true
		night.StandardNightExit = true
		night.ExitInferred = true
	}

	if len(removed) == 0 {
		return
	}
	kept := m.shifts[:0]
	for k, s := range m.shifts {
		if !removed[k] {
			kept = append(kept, s)
		}
	}
	m.shifts = kept
}

func (m *matcher) unmatched() []models.UnmatchedPunch {
	var out []models.UnmatchedPunch
	for i, p := range m.punches {
		if m.used[i] {
			continue
		}
		reason := models.UnmatchSkipped
		if !p.Direction.Known() {
			reason = models.UnmatchUndetermined
		}
		out = append(out, models.UnmatchedPunch{Punch: p, Reason: reason})
	}
	return out
}

func (m *matcher) newShift(entry models.Punch) models.Shift {
	return models.Shift{
		EmployeeCode:  entry.EmployeeCode,
		EmployeeName:  entry.EmployeeName,
		Date:          entry.Date(),
		Entry:         timePtr(entry.Timestamp),
		EntryInferred: entry.Inferred,
	}
}

func (m *matcher) validLength(from, to time.Time) bool {
	hours := to.Sub(from).Hours()
	return hours > 0 && hours <= m.cfg.MaxShiftHours
}

func decimalHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

func timePtr(t time.Time) *time.Time {
	return &t
}
