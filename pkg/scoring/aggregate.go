package scoring

import (
	"math"
	"time"

	"github.com/sellsignal/intent-engine/pkg/models"
)

// MaxScore is the upper clamp for persisted scores.
const MaxScore = 100

// Aggregate recomputes an entity's score from its full signal history as of
// now. It is a pure function of (now, signals, weights): running it twice
// over the same inputs yields identical results. Signals whose type is no
// longer in the weight table contribute nothing but still count toward
// SignalCount and LastSignalAt.
func Aggregate(signals []*models.Signal, table *WeightTable, now time.Time) *models.ScoreRecord {
	record := &models.ScoreRecord{
		SubScores:    make(map[string]float64),
		LastScoredAt: now,
	}

	var total float64
	for _, sig := range signals {
		record.SignalCount++
		if sig.RecordedAt.After(record.LastSignalAt) {
			record.LastSignalAt = sig.RecordedAt
		}

		entry, ok := table.Lookup(sig.SignalType)
		if !ok {
			continue
		}

		contribution := entry.BaseWeight * DecayFactor(AgeDays(sig.OccurredAt, now), entry.DecayPeriodDays)
		total += contribution
		// Sub-scores stay unclamped so observers can see contributions the
		// clamp hides.
		record.SubScores[sig.Source] += contribution
	}

	record.Score = clampScore(total)
	record.Tier = models.TierForScore(record.Score)
	return record
}

// clampScore rounds half-away-from-zero and clamps to [0, MaxScore]. The
// running sum may be negative transiently; the persisted score never is.
func clampScore(total float64) int {
	score := int(math.Round(total))
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
