package reconcile

import (
	"time"

	"github.com/vallesolidario/huellero/internal/domain/models"
)

// DiscardedPunch records a punch removed as part of a duplicate cluster.
type DiscardedPunch struct {
	Punch  models.Punch
	KeptAt time.Time
	Gap    time.Duration
}

// DedupResult is the Deduplicator output for one employee.
type DedupResult struct {
	Punches   []models.Punch
	Discarded []DiscardedPunch
}

// Deduplicate collapses clusters of near-simultaneous punches to their last member.
// punches must belong to one employee and be sorted by timestamp.
func Deduplicate(punches []models.Punch, cfg Config) DedupResult {
	out := make([]models.Punch, len(punches))
	copy(out, punches)
	if !cfg.EnableDedup {
		return DedupResult{Punches: out}
	}

	var discarded []DiscardedPunch
	for {
		kept, dropped := collapseOnce(out, cfg.DuplicateWindow)
		if len(dropped) == 0 {
			break
		}
		discarded = append(discarded, dropped...)
		out = kept
	}

	return DedupResult{Punches: out, Discarded: discarded}
}

// collapseOnce makes a single forward pass. A removed punch can leave two compatible
// punches adjacent, so Deduplicate repeats until nothing changes.
func collapseOnce(punches []models.Punch, window time.Duration) ([]models.Punch, []DiscardedPunch) {
	if len(punches) < 2 {
		return punches, nil
	}

	kept := make([]models.Punch, 0, len(punches))
	var dropped []DiscardedPunch

	start := 0
	flush := func(end int) {
		last := punches[end]
		for k := start; k < end; k++ {
			dropped = append(dropped, DiscardedPunch{
				Punch:  punches[k],
				KeptAt: last.Timestamp,
				Gap:    last.Timestamp.Sub(punches[k].Timestamp),
			})
		}
		kept = append(kept, last)
	}

	for i := 1; i < len(punches); i++ {
		if sameCluster(punches[i-1], punches[i], window) {
			continue
		}
		flush(i - 1)
		start = i
	}
	flush(len(punches) - 1)

	return kept, dropped
}

func sameCluster(prev, cur models.Punch, window time.Duration) bool {
	if cur.Timestamp.Sub(prev.Timestamp) > window {
		return false
	}
	if prev.Direction == cur.Direction {
		return true
	}
	return !prev.Direction.Known() || !cur.Direction.Known()
}
