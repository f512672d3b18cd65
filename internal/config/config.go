package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/vallesolidario/huellero/internal/reconcile"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
	MongoDB   MongoDBConfig
	Notify    NotifyConfig
	Log       LogConfig
	Pipeline  PipelineConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	PunchesRange    string
	SchedulesRange  string
	RolesRange      string
	ReportRange     string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
	LookbackDays int
	PublishSheet bool
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// NotifyConfig points at the chat webhook that receives run summaries.
// An empty URL disables notifications.
type NotifyConfig struct {
	WebhookURL string
	Token      string
	Channel    string
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level string
}

// PipelineConfig exposes the reconciliation thresholds.
type PipelineConfig struct {
	EnableDedup     bool
	EnableInference bool
	EnableSunday    bool
	ValidateNames   bool

	DuplicateWindow       time.Duration
	NightShiftStartHour   float64
	StandardNightExitHour int
	MinShiftHours         float64
	MaxShiftHours         float64
	DailyLimitHours       float64
	ToleranceMinutes      int

	AMHours    reconcile.HourRange
	PMHours    reconcile.HourRange
	EntryHours []reconcile.HourRange
	ExitHours  []reconcile.HourRange

	GuardCodes            []int
	GuardAMWindow         reconcile.Window
	GuardPMWindow         reconcile.Window
	ExcludedCodes         []int
	CorrectionExemptCodes []int
	Workers               int
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when the environment is set directly.
		_ = godotenv.Load()
	}

	defaults := reconcile.DefaultConfig()
	env := &envReader{}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			PunchesRange:    getenvWithDefault("SHEETS_PUNCHES_RANGE", "Marcaciones!A:D"),
			SchedulesRange:  getenvWithDefault("SHEETS_SCHEDULES_RANGE", "Horarios!A:C"),
			RolesRange:      getenvWithDefault("SHEETS_ROLES_RANGE", "Cargos!A:D"),
			ReportRange:     getenvWithDefault("SHEETS_REPORT_RANGE", "Reporte!A:N"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON_SCHEDULE", "0 6 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "America/Bogota"),
			LookbackDays: env.int("REPORT_LOOKBACK_DAYS", 7),
			PublishSheet: env.bool("REPORT_PUBLISH_SHEET", true),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "huellero"),
		},
		Notify: NotifyConfig{
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
			Token:      os.Getenv("NOTIFY_TOKEN"),
			Channel:    os.Getenv("NOTIFY_CHANNEL"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Pipeline: PipelineConfig{
			EnableDedup:           env.bool("PIPELINE_ENABLE_DEDUP", defaults.EnableDedup),
			EnableInference:       env.bool("PIPELINE_ENABLE_INFERENCE", defaults.EnableInference),
			EnableSunday:          env.bool("PIPELINE_ENABLE_SUNDAY", defaults.EnableSunday),
			ValidateNames:         env.bool("PIPELINE_VALIDATE_NAMES", defaults.ValidateNames),
			DuplicateWindow:       time.Duration(env.int("PIPELINE_DUPLICATE_WINDOW_SECONDS", int(defaults.DuplicateWindow/time.Second))) * time.Second,
			NightShiftStartHour:   env.float("PIPELINE_NIGHT_SHIFT_START_HOUR", defaults.NightShiftStartHour),
			StandardNightExitHour: env.int("PIPELINE_STANDARD_NIGHT_EXIT_HOUR", defaults.StandardNightExitHour),
			MinShiftHours:         env.float("PIPELINE_MIN_SHIFT_HOURS", defaults.MinShiftHours),
			MaxShiftHours:         env.float("PIPELINE_MAX_SHIFT_HOURS", defaults.MaxShiftHours),
			DailyLimitHours:       env.float("PIPELINE_DAILY_LIMIT_HOURS", defaults.DailyLimitHours),
			ToleranceMinutes:      env.int("PIPELINE_SCHEDULE_TOLERANCE_MINUTES", defaults.ScheduleToleranceMinutes),
			AMHours:               env.hourRange("PIPELINE_AM_HOURS", defaults.AMHours),
			PMHours:               env.hourRange("PIPELINE_PM_HOURS", defaults.PMHours),
			EntryHours:            env.hourRanges("PIPELINE_ENTRY_HOURS", defaults.EntryHours),
			ExitHours:             env.hourRanges("PIPELINE_EXIT_HOURS", defaults.ExitHours),
			GuardCodes:            env.ints("PIPELINE_GUARD_CODES"),
			GuardAMWindow:         env.window("PIPELINE_GUARD_AM_WINDOW", defaults.Guard.AMWindow),
			GuardPMWindow:         env.window("PIPELINE_GUARD_PM_WINDOW", defaults.Guard.PMWindow),
			ExcludedCodes:         env.ints("PIPELINE_EXCLUDED_CODES"),
			CorrectionExemptCodes: env.ints("PIPELINE_CORRECTION_EXEMPT_CODES"),
			Workers:               env.int("PIPELINE_WORKERS", defaults.Workers),
		},
	}
	if env.err != nil {
		return nil, env.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	if c.Reporting.LookbackDays < 1 {
		return errors.New("REPORT_LOOKBACK_DAYS must be at least 1")
	}

	p := c.Pipeline
	switch {
	case p.DuplicateWindow < 0:
		return errors.New("PIPELINE_DUPLICATE_WINDOW_SECONDS must not be negative")
	case p.MinShiftHours <= 0 || p.MaxShiftHours <= p.MinShiftHours:
		return errors.New("PIPELINE_MIN_SHIFT_HOURS must be positive and below PIPELINE_MAX_SHIFT_HOURS")
	case p.NightShiftStartHour < 0 || p.NightShiftStartHour >= 24:
		return errors.New("PIPELINE_NIGHT_SHIFT_START_HOUR must be within [0,24)")
	case p.StandardNightExitHour < 0 || p.StandardNightExitHour > 23:
		return errors.New("PIPELINE_STANDARD_NIGHT_EXIT_HOUR must be within [0,23]")
	case !validRange(p.AMHours) || !validRange(p.PMHours):
		return errors.New("PIPELINE_AM_HOURS and PIPELINE_PM_HOURS must be ranges within [0,24]")
	case !allValid(p.EntryHours) || !allValid(p.ExitHours):
		return errors.New("PIPELINE_ENTRY_HOURS and PIPELINE_EXIT_HOURS must be ranges within [0,24]")
	case !validWindow(p.GuardAMWindow) || !validWindow(p.GuardPMWindow):
		return errors.New("PIPELINE_GUARD_AM_WINDOW and PIPELINE_GUARD_PM_WINDOW must be windows within [0,24]")
	}

	return nil
}

// RequireStorage checks the settings needed by the Sheets and MongoDB adapters.
func (c *Config) RequireStorage() error {
	if c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
	}

	if c.Sheets.SpreadsheetID == "" {
		return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
	}

	if c.Sheets.PunchesRange == "" {
		return errors.New("SHEETS_PUNCHES_RANGE must not be empty")
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}

	return nil
}

// Location resolves the reporting timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reporting.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Reconcile overlays the configured thresholds on the pipeline defaults.
func (p PipelineConfig) Reconcile() reconcile.Config {
	cfg := reconcile.DefaultConfig()
	cfg.EnableDedup = p.EnableDedup
	cfg.EnableInference = p.EnableInference
	cfg.EnableSunday = p.EnableSunday
	cfg.ValidateNames = p.ValidateNames
	cfg.DuplicateWindow = p.DuplicateWindow
	cfg.NightShiftStartHour = p.NightShiftStartHour
	cfg.StandardNightExitHour = p.StandardNightExitHour
	cfg.MinShiftHours = p.MinShiftHours
	cfg.MaxShiftHours = p.MaxShiftHours
	cfg.DailyLimitHours = p.DailyLimitHours
	cfg.ScheduleToleranceMinutes = p.ToleranceMinutes
	cfg.AMHours = p.AMHours
	cfg.PMHours = p.PMHours
	if len(p.EntryHours) > 0 {
		cfg.EntryHours = p.EntryHours
	}
	if len(p.ExitHours) > 0 {
		cfg.ExitHours = p.ExitHours
	}
	cfg.Guard.Codes = p.GuardCodes
	cfg.Guard.AMWindow = p.GuardAMWindow
	cfg.Guard.PMWindow = p.GuardPMWindow
	cfg.ExcludedCodes = p.ExcludedCodes
	cfg.Corrections.ExemptCodes = p.CorrectionExemptCodes
	if p.Workers > 0 {
		cfg.Workers = p.Workers
	}
	return cfg
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// envReader parses typed variables and keeps the first error.
type envReader struct {
	err error
}

func (r *envReader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s=%q: %w", key, value, err)
	}
}

func (r *envReader) int(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		r.fail(key, value, err)
		return fallback
	}
	return n
}

func (r *envReader) float(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		r.fail(key, value, err)
		return fallback
	}
	return f
}

func (r *envReader) bool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		r.fail(key, value, err)
		return fallback
	}
	return b
}

// ints reads a comma separated list of employee codes.
func (r *envReader) ints(key string) []int {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			r.fail(key, value, err)
			return nil
		}
		out = append(out, n)
	}
	return out
}

// hourRange reads a whole-hour range written as "from-to", e.g. "6-12".
func (r *envReader) hourRange(key string, fallback reconcile.HourRange) reconcile.HourRange {
	value := getenvWithDefault(key, fmt.Sprintf("%d-%d", fallback.From, fallback.To))
	from, to, err := parseBounds(value)
	if err != nil || from != float64(int(from)) || to != float64(int(to)) {
		r.fail(key, value, errors.Join(err, errors.New("expected whole hours such as 6-12")))
		return fallback
	}
	return reconcile.HourRange{From: int(from), To: int(to)}
}

// hourRanges reads a comma separated list of hour ranges, e.g. "3-11,20-24".
func (r *envReader) hourRanges(key string, fallback []reconcile.HourRange) []reconcile.HourRange {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []reconcile.HourRange
	for _, part := range strings.Split(value, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		from, to, err := parseBounds(part)
		if err != nil || from != float64(int(from)) || to != float64(int(to)) {
			r.fail(key, value, errors.Join(err, errors.New("expected whole hours such as 3-11")))
			return fallback
		}
		out = append(out, reconcile.HourRange{From: int(from), To: int(to)})
	}
	return out
}

// window reads a decimal-hour window written as "from-to", e.g. "4.5-7.5".
func (r *envReader) window(key string, fallback reconcile.Window) reconcile.Window {
	value := getenvWithDefault(key, fmt.Sprintf("%g-%g", fallback.From, fallback.To))
	from, to, err := parseBounds(value)
	if err != nil {
		r.fail(key, value, err)
		return fallback
	}
	return reconcile.Window{From: from, To: to}
}

func parseBounds(value string) (float64, float64, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(value), "-")
	if !ok {
		return 0, 0, fmt.Errorf("missing '-' separator")
	}
	from, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
	if err != nil {
		return 0, 0, err
	}
	to, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err != nil {
		return 0, 0, err
	}
	return from, to, nil
}

func validRange(h reconcile.HourRange) bool {
	return h.From >= 0 && h.From < h.To && h.To <= 24
}

func allValid(ranges []reconcile.HourRange) bool {
	for _, h := range ranges {
		if !validRange(h) {
			return false
		}
	}
	return true
}

func validWindow(w reconcile.Window) bool {
	return w.From >= 0 && w.From <= w.To && w.To <= 24
}
