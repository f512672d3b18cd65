package reconcile

import (
	"slices"
	"time"

	"github.com/vallesolidario/huellero/internal/domain/models"
)

const clockLayout = "15:04"

// EmployeeSpan is the calendar range covered by an employee's raw punches.
type EmployeeSpan struct {
	Name string
	From time.Time
	To   time.Time
}

// MetricsInput is everything MetricsCalculator needs for one batch.
type MetricsInput struct {
	Shifts    []models.Shift
	Punches   []models.Punch
	Discarded []DiscardedPunch
	Unmatched []models.UnmatchedPunch
	Spans     map[int]EmployeeSpan
	Roles     models.RoleLookup
}

// MetricsResult holds the report rows, sorted by employee code then date.
type MetricsResult struct {
	Records      []models.MetricRecord
	Placeholders int
	Reviews      int
}

type dayKey struct {
	code int
	day  string
}

func keyOf(code int, t time.Time) dayKey {
	return dayKey{code: code, day: t.Format(time.DateOnly)}
}

type calculator struct {
	cfg       Config
	roles     models.RoleLookup
	punches   map[dayKey][]models.Punch
	discarded map[dayKey]int
}

// CalculateMetrics turns matched shifts into employee-day report rows.
func CalculateMetrics(in MetricsInput, cfg Config) MetricsResult {
	c := &calculator{
		cfg:       cfg,
		roles:     in.Roles,
		punches:   make(map[dayKey][]models.Punch),
		discarded: make(map[dayKey]int),
	}
	for _, p := range in.Punches {
		k := keyOf(p.EmployeeCode, p.Timestamp)
		c.punches[k] = append(c.punches[k], p)
	}
	for _, d := range in.Discarded {
		c.discarded[keyOf(d.Punch.EmployeeCode, d.Punch.Timestamp)]++
	}

	var res MetricsResult
	for _, s := range in.Shifts {
		res.Records = append(res.Records, c.shiftRecords(s)...)
	}

	res.Reviews = c.attachReviews(&res.Records, in.Unmatched)
	res.Placeholders = c.fillGaps(&res.Records, in.Spans)

	for i := range res.Records {
		r := &res.Records[i]
		r.Observation = models.JoinObservations(r.Observations, LabelOK)
	}
	slices.SortStableFunc(res.Records, func(a, b models.MetricRecord) int {
		if a.EmployeeCode != b.EmployeeCode {
			return a.EmployeeCode - b.EmployeeCode
		}
		return a.Date.Compare(b.Date)
	})
	return res
}

func (c *calculator) shiftRecords(s models.Shift) []models.MetricRecord {
	k := keyOf(s.EmployeeCode, s.Date)
	day := c.punches[k]
	discarded := c.discarded[k]

	obs := shiftObservations(s, len(day)+discarded, discarded, c.cfg)
	obs = c.applyRoleLimit(s.EmployeeCode, s.Hours, obs)
	am, pm := c.countAMPM(day)

	if !s.Complete || s.Entry == nil || s.Exit == nil || !crossesMidnight(*s.Entry, *s.Exit) {
		r := c.record(s.EmployeeCode, s.EmployeeName, s.Date, models.RecordShift)
		r.AMPunches, r.PMPunches = &am, &pm
		r.EntryTime = clock(s.Entry)
		r.ExitTime = clock(s.Exit)
		r.Hours = s.Hours
		r.Observations = obs
		return []models.MetricRecord{r}
	}

	entry, exit := *s.Entry, *s.Exit
	midnight := lastDay(exit)
	first := models.RoundHours(midnight.Sub(entry).Hours())
	second := models.RoundHours(exit.Sub(midnight).Hours())
	zero := 0

	start := c.record(s.EmployeeCode, s.EmployeeName, models.DateOf(entry), models.RecordSplitStart)
	start.AMPunches, start.PMPunches = &am, &pm
	start.EntryTime = entry.Format(clockLayout)
	start.ExitTime = "00:00"
	start.Hours = &first
	start.Observations = obs

	end := c.record(s.EmployeeCode, s.EmployeeName, midnight, models.RecordSplitEnd)
	end.AMPunches, end.PMPunches = &zero, &zero
	end.EntryTime = "00:00"
	end.ExitTime = exit.Format(clockLayout)
	end.Hours = &second
	end.Observations = slices.Clone(obs)

	return []models.MetricRecord{start, end}
}

// attachReviews flags employee-days holding unmatched punches. The flag goes on
// the first row of that day, or on a dedicated review row when there is none.
func (c *calculator) attachReviews(records *[]models.MetricRecord, unmatched []models.UnmatchedPunch) int {
	counts := make(map[dayKey]int)
	var order []dayKey
	first := make(map[dayKey]models.Punch)
	for _, u := range unmatched {
		k := keyOf(u.Punch.EmployeeCode, u.Punch.Timestamp)
		if counts[k] == 0 {
			order = append(order, k)
			first[k] = u.Punch
		}
		counts[k]++
	}

	rows := make(map[dayKey]int, len(*records))
	for i := len(*records) - 1; i >= 0; i-- {
		r := (*records)[i]
		rows[keyOf(r.EmployeeCode, r.Date)] = i
	}

	created := 0
	for _, k := range order {
		obs := reviewObservation(counts[k])
		if i, ok := rows[k]; ok {
			(*records)[i].Observations = append((*records)[i].Observations, obs)
			continue
		}

		p := first[k]
		am, pm := c.countAMPM(c.punches[k])
		r := c.record(p.EmployeeCode, p.EmployeeName, p.Date(), models.RecordReview)
		r.AMPunches, r.PMPunches = &am, &pm
		r.Observations = []models.Observation{obs}
		*records = append(*records, r)
		rows[k] = len(*records) - 1
		created++
	}
	return created
}

// fillGaps adds a placeholder row for every calendar day of an employee's range
// that has no row yet.
func (c *calculator) fillGaps(records *[]models.MetricRecord, spans map[int]EmployeeSpan) int {
	ranges := make(map[int]EmployeeSpan)
	present := make(map[dayKey]bool)
	for _, r := range *records {
		present[keyOf(r.EmployeeCode, r.Date)] = true
		span, ok := ranges[r.EmployeeCode]
		if !ok {
			ranges[r.EmployeeCode] = EmployeeSpan{Name: r.EmployeeName, From: r.Date, To: r.Date}
			continue
		}
		if r.Date.Before(span.From) {
			span.From = r.Date
		}
		if r.Date.After(span.To) {
			span.To = r.Date
		}
		ranges[r.EmployeeCode] = span
	}
	for code, s := range spans {
		from, to := models.DateOf(s.From), models.DateOf(s.To)
		span, ok := ranges[code]
		if !ok {
			ranges[code] = EmployeeSpan{Name: s.Name, From: from, To: to}
			continue
		}
		if from.Before(span.From) {
			span.From = from
		}
		if to.After(span.To) {
			span.To = to
		}
		ranges[code] = span
	}

	codes := make([]int, 0, len(ranges))
	for code := range ranges {
		codes = append(codes, code)
	}
	slices.Sort(codes)

	filled := 0
	for _, code := range codes {
		span := ranges[code]
		for d := span.From; !d.After(span.To); d = d.AddDate(0, 0, 1) {
			if present[keyOf(code, d)] {
				continue
			}
			r := c.record(code, span.Name, d, models.RecordPlaceholder)
			r.Observations = []models.Observation{noRecordsObservation()}
			*records = append(*records, r)
			filled++
		}
	}
	return filled
}

// applyRoleLimit swaps the generic daily limit check for the role limit when
// master data carries one.
func (c *calculator) applyRoleLimit(code int, hours *float64, obs []models.Observation) []models.Observation {
	role, ok := c.roles[code]
	if !ok || role.DailyHours <= 0 {
		return obs
	}
	obs = slices.DeleteFunc(obs, func(o models.Observation) bool {
		return o.Code == ObsExceedsDaily
	})
	if hours != nil && *hours > role.DailyHours && *hours <= c.cfg.MaxShiftHours {
		obs = append(obs, roleLimitObservation(role.DailyHours))
	}
	return obs
}

func (c *calculator) record(code int, name string, date time.Time, kind models.RecordKind) models.MetricRecord {
	r := models.MetricRecord{
		EmployeeCode: code,
		EmployeeName: name,
		Date:         date,
		Weekday:      date.Weekday().String(),
		Kind:         kind,
	}
	if role, ok := c.roles[code]; ok {
		r.Document = role.Document
		r.Role = role.Role
		if role.DailyHours > 0 {
			limit := role.DailyHours
			r.DailyLimit = &limit
		}
	}
	return r
}

func (c *calculator) countAMPM(punches []models.Punch) (int, int) {
	var am, pm int
	for _, p := range punches {
		hour := p.Timestamp.Hour()
		switch {
		case c.cfg.AMHours.Contains(hour):
			am++
		case c.cfg.PMHours.Contains(hour):
			pm++
		}
	}
	return am, pm
}

// lastDay is the calendar day an exit belongs to. An exit at exactly 00:00
// still belongs to the previous day.
func lastDay(exit time.Time) time.Time {
	return models.DateOf(exit.Add(-time.Nanosecond))
}

func crossesMidnight(entry, exit time.Time) bool {
	return lastDay(exit).After(models.DateOf(entry))
}

func clock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(clockLayout)
}
