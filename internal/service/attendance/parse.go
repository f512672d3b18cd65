package attendance

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/vallesolidario/huellero/internal/domain/models"
)

// ErrMalformedRow is returned when a sheet row has an unparseable required field.
var ErrMalformedRow = errors.New("malformed row")

var timestampLayouts = []string{
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	"2/1/2006 15:04",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

var directionLabels = map[string]models.Direction{
	"entrada": models.DirectionEntry,
	"ingreso": models.DirectionEntry,
	"entry":   models.DirectionEntry,
	"in":      models.DirectionEntry,
	"c/in":    models.DirectionEntry,
	"e":       models.DirectionEntry,
	"salida":  models.DirectionExit,
	"egreso":  models.DirectionExit,
	"exit":    models.DirectionExit,
	"out":     models.DirectionExit,
	"c/out":   models.DirectionExit,
	"s":       models.DirectionExit,
}

// ParsePunches converts clock export rows (code, name, timestamp, direction)
// into punches. A leading header row is skipped; blank rows are ignored.
func ParsePunches(rows [][]interface{}, loc *time.Location) ([]models.Punch, error) {
	punches := make([]models.Punch, 0, len(rows))
	for i, row := range rows {
		if blank(row) || header(i, row) {
			continue
		}

		code, err := parseCode(cell(row, 0))
		if err != nil {
			return nil, fmt.Errorf("row %d: employee code %q: %w", i+1, cell(row, 0), ErrMalformedRow)
		}

		ts, err := parseTimestamp(cell(row, 2), loc)
		if err != nil {
			return nil, fmt.Errorf("row %d: timestamp %q: %w", i+1, cell(row, 2), ErrMalformedRow)
		}

		direction, _ := ParseDirection(cell(row, 3))
		punches = append(punches, models.Punch{
			EmployeeCode: code,
			EmployeeName: cell(row, 1),
			Timestamp:    ts,
			Direction:    direction,
		})
	}
	return punches, nil
}

// ParseDirection maps a clock label to a direction, ignoring case and accents.
// Blank labels are unknown; the boolean is false for unrecognised labels.
func ParseDirection(label string) (models.Direction, bool) {
	folded := fold(label)
	if folded == "" {
		return models.DirectionUnknown, true
	}
	d, ok := directionLabels[folded]
	if !ok {
		return models.DirectionUnknown, false
	}
	return d, true
}

// ParseSchedules reads (code, start HH:MM, end HH:MM) rows into candidate windows.
func ParseSchedules(rows [][]interface{}) (models.ScheduleLookup, error) {
	lookup := make(models.ScheduleLookup)
	for i, row := range rows {
		if blank(row) || header(i, row) {
			continue
		}

		code, err := parseCode(cell(row, 0))
		if err != nil {
			return nil, fmt.Errorf("schedule row %d: employee code %q: %w", i+1, cell(row, 0), ErrMalformedRow)
		}
		start, err := parseClock(cell(row, 1))
		if err != nil {
			return nil, fmt.Errorf("schedule row %d: start %q: %w", i+1, cell(row, 1), ErrMalformedRow)
		}
		end, err := parseClock(cell(row, 2))
		if err != nil {
			return nil, fmt.Errorf("schedule row %d: end %q: %w", i+1, cell(row, 2), ErrMalformedRow)
		}

		lookup[code] = append(lookup[code], models.ShiftWindow{StartMinute: start, EndMinute: end})
	}
	return lookup, nil
}

// ParseRoles reads (code, document, role, daily hours) master data rows.
func ParseRoles(rows [][]interface{}) (models.RoleLookup, error) {
	lookup := make(models.RoleLookup)
	for i, row := range rows {
		if blank(row) || header(i, row) {
			continue
		}

		code, err := parseCode(cell(row, 0))
		if err != nil {
			return nil, fmt.Errorf("role row %d: employee code %q: %w", i+1, cell(row, 0), ErrMalformedRow)
		}

		role := models.EmployeeRole{Document: cell(row, 1), Role: cell(row, 2)}
		if raw := cell(row, 3); raw != "" {
			hours, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
			if err != nil {
				return nil, fmt.Errorf("role row %d: daily hours %q: %w", i+1, raw, ErrMalformedRow)
			}
			role.DailyHours = hours
		}
		lookup[code] = role
	}
	return lookup, nil
}

// codeLabels are the folded titles clock exports and master sheets use for the
// employee code column.
var codeLabels = map[string]struct{}{
	"id":              {},
	"ac-no.":          {},
	"no.":             {},
	"cod":             {},
	"cod.":            {},
	"codigo":          {},
	"codigo empleado": {},
	"code":            {},
	"employee code":   {},
	"employee_code":   {},
	"empleado":        {},
	"employee":        {},
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		out = strings.TrimSpace(s)
	}
	return cases.Fold().String(out)
}

func cell(row []interface{}, idx int) string {
	if idx >= len(row) || row[idx] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

func blank(row []interface{}) bool {
	for i := range row {
		if cell(row, i) != "" {
			return false
		}
	}
	return true
}

// header reports whether row is the title row of an export. Only the first row
// can be one, and only when its code column carries a known label.
func header(i int, row []interface{}) bool {
	if i != 0 {
		return false
	}
	_, ok := codeLabels[fold(cell(row, 0))]
	return ok
}

func parseCode(value string) (int, error) {
	if n, err := strconv.Atoi(value); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("code must be positive")
		}
		return n, nil
	}
	// Sheets may render numeric cells as "1234.0".
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid code %q", value)
	}
	return int(f), nil
}

func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", value)
}

func parseClock(value string) (int, error) {
	ts, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return ts.Hour()*60 + ts.Minute(), nil
}
