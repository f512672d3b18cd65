package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vallesolidario/huellero/internal/domain/models"
)

// ErrInvalidPunch is returned when a batch row lacks an employee code or timestamp.
var ErrInvalidPunch = errors.New("invalid punch")

// Input is one already-loaded batch.
type Input struct {
	Punches   []models.Punch
	Schedules models.ScheduleLookup
	Roles     models.RoleLookup
}

// Result carries the report rows together with the per-stage audit trail.
type Result struct {
	Records      []models.MetricRecord
	Shifts       []models.Shift
	Discarded    []DiscardedPunch
	Corrections  []Inference
	Inferences   []Inference
	Undetermined []models.Punch
	Unmatched    []models.UnmatchedPunch
	Summary      models.RunSummary
}

// Pipeline runs Deduplicator, StateResolver, ShiftMatcher and MetricsCalculator.
type Pipeline struct {
	cfg    Config
	logger *zap.Logger
}

// New builds a pipeline bound to an immutable configuration.
func New(cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, logger: logger}
}

// Config returns the thresholds the pipeline was built with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

type employeeResult struct {
	dedup   DedupResult
	resolve ResolveResult
	match   MatchResult
}

// Run reconciles a batch. Only malformed rows or a cancelled context fail it.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	punches, err := normalize(in.Punches)
	if err != nil {
		return nil, err
	}

	var excluded int
	byEmployee := make(map[int][]models.Punch)
	for _, pu := range punches {
		if p.cfg.isExcluded(pu.EmployeeCode) {
			excluded++
			continue
		}
		byEmployee[pu.EmployeeCode] = append(byEmployee[pu.EmployeeCode], pu)
	}

	codes := make([]int, 0, len(byEmployee))
	spans := make(map[int]EmployeeSpan, len(byEmployee))
	for code, list := range byEmployee {
		slices.SortStableFunc(list, func(a, b models.Punch) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
		codes = append(codes, code)
		spans[code] = EmployeeSpan{
			Name: list[0].EmployeeName,
			From: list[0].Timestamp,
			To:   list[len(list)-1].Timestamp,
		}
	}
	slices.Sort(codes)

	p.logger.Info("reconciliation started",
		zap.Int("punches", len(punches)),
		zap.Int("excluded", excluded),
		zap.Int("employees", len(codes)),
	)

	workers := p.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	// Each worker writes only its own slot; results are joined in code order.
	slots := make([]employeeResult, len(codes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, code := range codes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = p.processEmployee(byEmployee[code], in.Schedules[code])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("process employees: %w", err)
	}

	res := &Result{}
	var resolved []models.Punch
	for _, slot := range slots {
		res.Discarded = append(res.Discarded, slot.dedup.Discarded...)
		res.Corrections = append(res.Corrections, slot.resolve.Corrections...)
		res.Inferences = append(res.Inferences, slot.resolve.Inferences...)
		res.Undetermined = append(res.Undetermined, slot.resolve.Undetermined...)
		res.Shifts = append(res.Shifts, slot.match.Shifts...)
		res.Unmatched = append(res.Unmatched, slot.match.Unmatched...)
		resolved = append(resolved, slot.resolve.Punches...)
	}
	p.logAudit(res)

	metrics := CalculateMetrics(MetricsInput{
		Shifts:    res.Shifts,
		Punches:   resolved,
		Discarded: res.Discarded,
		Unmatched: res.Unmatched,
		Spans:     spans,
		Roles:     in.Roles,
	}, p.cfg)
	res.Records = metrics.Records

	res.Summary = summarize(res, metrics)
	res.Summary.Employees = len(codes)
	res.Summary.InputPunches = len(in.Punches)
	res.Summary.ExcludedPunches = excluded

	p.logger.Info("reconciliation finished",
		zap.Int("records", res.Summary.Records),
		zap.Int("duplicates_removed", res.Summary.DuplicatesRemoved),
		zap.Int("inferred", res.Summary.Inferred),
		zap.Int("undetermined", res.Summary.Undetermined),
		zap.Int("shifts_complete", res.Summary.ShiftsComplete),
		zap.Int("shifts_incomplete", res.Summary.ShiftsIncomplete),
		zap.Int("placeholders", res.Summary.Placeholders),
	)

	return res, nil
}

func (p *Pipeline) processEmployee(punches []models.Punch, windows []models.ShiftWindow) employeeResult {
	dedup := Deduplicate(punches, p.cfg)
	resolve := ResolveStates(dedup.Punches, windows, p.cfg)
	match := MatchShifts(resolve.Punches, p.cfg)
	return employeeResult{dedup: dedup, resolve: resolve, match: match}
}

func (p *Pipeline) logAudit(res *Result) {
	for _, d := range res.Discarded {
		p.logger.Debug("duplicate punch discarded",
			zap.Int("employee_code", d.Punch.EmployeeCode),
			zap.Time("timestamp", d.Punch.Timestamp),
			zap.Time("kept", d.KeptAt),
			zap.Duration("gap", d.Gap),
		)
	}
	for _, c := range res.Corrections {
		p.logger.Debug("punch direction corrected",
			zap.Int("employee_code", c.Punch.EmployeeCode),
			zap.Time("timestamp", c.Punch.Timestamp),
			zap.String("from", string(c.Previous)),
			zap.String("to", string(c.Punch.Direction)),
		)
	}
	for _, inf := range res.Inferences {
		p.logger.Debug("punch direction inferred",
			zap.Int("employee_code", inf.Punch.EmployeeCode),
			zap.Time("timestamp", inf.Punch.Timestamp),
			zap.String("direction", string(inf.Punch.Direction)),
			zap.String("method", string(inf.Method)),
		)
	}
	for _, u := range res.Undetermined {
		p.logger.Warn("punch direction undetermined",
			zap.Int("employee_code", u.EmployeeCode),
			zap.String("employee_name", u.EmployeeName),
			zap.Time("timestamp", u.Timestamp),
		)
	}
}

// normalize validates every row and maps unrecognised directions to unknown.
func normalize(punches []models.Punch) ([]models.Punch, error) {
	out := make([]models.Punch, len(punches))
	for i, pu := range punches {
		if pu.EmployeeCode <= 0 {
			return nil, fmt.Errorf("row %d: employee code %d: %w", i+1, pu.EmployeeCode, ErrInvalidPunch)
		}
		if pu.Timestamp.IsZero() {
			return nil, fmt.Errorf("row %d: employee %d: missing timestamp: %w", i+1, pu.EmployeeCode, ErrInvalidPunch)
		}
		if !pu.Direction.Known() {
			pu.Direction = models.DirectionUnknown
		}
		pu.Inferred = false
		pu.Method = models.MethodNone
		out[i] = pu
	}
	return out, nil
}

func summarize(res *Result, metrics MetricsResult) models.RunSummary {
	s := models.RunSummary{
		DuplicatesRemoved: len(res.Discarded),
		Corrected:         len(res.Corrections),
		Inferred:          len(res.Inferences),
		InferredByMethod:  make(map[models.InferenceMethod]int),
		Undetermined:      len(res.Undetermined),
		Unmatched:         len(res.Unmatched),
		Records:           len(metrics.Records),
		Placeholders:      metrics.Placeholders,
	}
	for _, inf := range res.Inferences {
		s.InferredByMethod[inf.Method]++
	}
	for _, sh := range res.Shifts {
		if sh.Complete {
			s.ShiftsComplete++
		} else {
			s.ShiftsIncomplete++
		}
		if sh.NightShift {
			s.NightShifts++
		}
	}
	return s
}
