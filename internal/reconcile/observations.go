package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vallesolidario/huellero/internal/domain/models"
)

// Observation codes attached to metric records.
const (
	ObsMissingEntry      = "missing_entry"
	ObsMissingExit       = "missing_exit"
	ObsNightShift        = "night_shift"
	ObsStandardNightExit = "standard_night_exit"
	ObsInferredEntry     = "inferred_entry"
	ObsInferredExit      = "inferred_exit"
	ObsExitCorrected     = "exit_corrected"
	ObsSpecialRule       = "special_rule"
	ObsNightProspective  = "night_prospective"
	ObsTooLong           = "shift_too_long"
	ObsExceedsDaily      = "exceeds_daily_limit"
	ObsTooShort          = "shift_too_short"
	ObsDuplicates        = "duplicates_removed"
	ObsSuspiciousData    = "suspicious_employee_data"
	ObsSunday            = "sunday_work"
	ObsManualReview      = "manual_review"
	ObsNoRecords         = "no_records"
	ObsRoleLimit         = "exceeds_role_limit"
)

// LabelOK is rendered when a record carries no observations.
const LabelOK = "OK"

const alertPrefix = "ALERT: "

func info(code, text string) models.Observation {
	return models.Observation{Code: code, Text: text, Severity: models.SeverityInfo}
}

func alert(code, text string) models.Observation {
	return models.Observation{Code: code, Text: alertPrefix + text, Severity: models.SeverityAlert}
}

// shiftObservations builds the ordered observation list for a shift.
// dayPunches counts the raw punches of the shift date, discarded ones included.
func shiftObservations(s models.Shift, dayPunches, discarded int, cfg Config) []models.Observation {
	var obs []models.Observation

	if !s.Complete {
		switch {
		case s.Entry == nil:
			obs = append(obs, info(ObsMissingEntry, "Entry not recorded"))
		case s.Exit == nil:
			obs = append(obs, info(ObsMissingExit, "Exit not recorded"))
		}
	}

	if s.NightShift && s.Complete {
		if s.StandardNightExit {
			obs = append(obs, info(ObsStandardNightExit, fmt.Sprintf("Night shift, standard exit %02d:00 inferred", cfg.StandardNightExitHour)))
		} else {
			obs = append(obs, info(ObsNightShift, "Night shift"))
		}
	}

	if s.EntryInferred {
		obs = append(obs, info(ObsInferredEntry, "Inferred state (Entry)"))
	}
	if s.ExitInferred {
		obs = append(obs, info(ObsInferredExit, "Inferred state (Exit)"))
	}
	if s.ExitCorrected {
		obs = append(obs, info(ObsExitCorrected, "Exit corrected, Entry punch used as Exit"))
	}
	if s.SpecialRule {
		obs = append(obs, info(ObsSpecialRule, "Special rule applied, settled as day shift"))
	}
	if s.NightProspective {
		obs = append(obs, info(ObsNightProspective, "Night shift closed by next-day morning punch"))
	}

	if s.Hours != nil {
		switch h := *s.Hours; {
		case h > cfg.MaxShiftHours:
			obs = append(obs, alert(ObsTooLong, fmt.Sprintf("shift longer than %g hours", cfg.MaxShiftHours)))
		case h > cfg.DailyLimitHours:
			obs = append(obs, alert(ObsExceedsDaily, fmt.Sprintf("exceeds daily limit (%g hours)", cfg.DailyLimitHours)))
		case h < cfg.MinShiftHours:
			obs = append(obs, alert(ObsTooShort, fmt.Sprintf("shift shorter than %g hours", cfg.MinShiftHours)))
		}
	}

	if dayPunches > 2 && discarded > 0 {
		obs = append(obs, info(ObsDuplicates, fmt.Sprintf("Duplicates removed (%d)", discarded)))
	}

	if cfg.ValidateNames && suspiciousName(s.EmployeeCode, s.EmployeeName) {
		obs = append(obs, alert(ObsSuspiciousData, "employee data requires correction"))
	}

	if cfg.EnableSunday && s.Date.Weekday() == time.Sunday {
		obs = append(obs, info(ObsSunday, "Sunday work"))
	}

	return obs
}

// suspiciousName flags names that embed the employee code, a common data-entry slip.
func suspiciousName(code int, name string) bool {
	return strings.Contains(name, strconv.Itoa(code))
}

func reviewObservation(count int) models.Observation {
	return alert(ObsManualReview, fmt.Sprintf("requires manual review (%d unmatched punches)", count))
}

func noRecordsObservation() models.Observation {
	return info(ObsNoRecords, "No punches recorded")
}

func roleLimitObservation(limit float64) models.Observation {
	return alert(ObsRoleLimit, fmt.Sprintf("exceeds role daily limit (%g hours)", limit))
}
