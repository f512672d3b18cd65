package reconcile

import (
	"slices"

	"github.com/vallesolidario/huellero/internal/domain/models"
)

// Inference records a direction assigned by a rule rather than read from the clock.
type Inference struct {
	Punch    models.Punch
	Previous models.Direction
	Method   models.InferenceMethod
}

// ResolveResult is the StateResolver output for one employee.
type ResolveResult struct {
	Punches      []models.Punch
	Corrections  []Inference
	Inferences   []Inference
	Undetermined []models.Punch
}

// ResolveStates assigns a direction to every unknown punch of one employee.
// Known directions only change through the correction pre-pass.
func ResolveStates(punches []models.Punch, windows []models.ShiftWindow, cfg Config) ResolveResult {
	out := make([]models.Punch, len(punches))
	copy(out, punches)

	var res ResolveResult
	if cfg.Corrections.Enabled {
		res.Corrections = applyCorrections(out, cfg)
	}

	if cfg.EnableInference {
		for _, strategy := range strategiesFor(windows) {
			// Each strategy reads the previous strategies' result, not its own output.
			snapshot := make([]models.Punch, len(out))
			copy(snapshot, out)

			for _, prop := range strategy.propose(snapshot, cfg) {
				p := &out[prop.index]
				if p.Direction != models.DirectionUnknown {
					continue
				}
				res.Inferences = append(res.Inferences, Inference{
					Punch:    assign(p, prop.direction, prop.method),
					Previous: models.DirectionUnknown,
					Method:   prop.method,
				})
			}
		}
	}

	for i := range out {
		if out[i].Direction == models.DirectionUnknown {
			out[i].Direction = models.DirectionUndetermined
			out[i].Inferred = false
			res.Undetermined = append(res.Undetermined, out[i])
		}
	}

	res.Punches = out
	return res
}

func applyCorrections(punches []models.Punch, cfg Config) []Inference {
	var corrected []Inference
	for i := range punches {
		p := &punches[i]
		hour := p.Timestamp.Hour()

		var next models.Direction
		switch {
		case p.Direction == models.DirectionEntry && anyContains(cfg.Corrections.EntryToExit, hour) && !slices.Contains(cfg.Corrections.ExemptCodes, p.EmployeeCode):
			next = models.DirectionExit
		case p.Direction == models.DirectionExit && anyContains(cfg.Corrections.ExitToEntry, hour):
			next = models.DirectionEntry
		default:
			continue
		}

		previous := p.Direction
		corrected = append(corrected, Inference{
			Punch:    assign(p, next, models.MethodCorrection),
			Previous: previous,
			Method:   models.MethodCorrection,
		})
	}
	return corrected
}

func assign(p *models.Punch, d models.Direction, method models.InferenceMethod) models.Punch {
	p.Direction = d
	p.Inferred = true
	p.Method = method
	return *p
}
