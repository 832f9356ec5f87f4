package models

import (
	"time"

	"github.com/google/uuid"
)

// Tier is the coarse intent classification derived from the current score.
type Tier string

const (
	TierCold    Tier = "COLD"
	TierWarm    Tier = "WARM"
	TierHot     Tier = "HOT"
	TierBurning Tier = "BURNING"
)

// Tiers lists all tiers in ascending order of intent.
var Tiers = []Tier{TierCold, TierWarm, TierHot, TierBurning}

// ValidTier reports whether s names a known tier.
func ValidTier(s string) bool {
	switch Tier(s) {
	case TierCold, TierWarm, TierHot, TierBurning:
		return true
	}
	return false
}

// TierForScore maps a clamped score to its tier. Thresholds are fixed with
// inclusive lower bounds: COLD [0,25), WARM [25,50), HOT [50,75),
// BURNING [75,100].
func TierForScore(score int) Tier {
	switch {
	case score >= 75:
		return TierBurning
	case score >= 50:
		return TierHot
	case score >= 25:
		return TierWarm
	default:
		return TierCold
	}
}

// ScoreRecord is the current aggregate state for one entity. It is
// overwritten wholesale on every recomputation; SubScores keep the
// unclamped per-source totals for observability even when Score is clamped.
type ScoreRecord struct {
	EntityID     uuid.UUID          `json:"entity_id"`
	Score        int                `json:"score"`
	Tier         Tier               `json:"tier"`
	SubScores    map[string]float64 `json:"sub_scores"`
	SignalCount  int                `json:"signal_count"`
	LastSignalAt time.Time          `json:"last_signal_at"`
	LastScoredAt time.Time          `json:"last_scored_at"`
}
