// Package scoring holds the pure aggregation math for buyer-intent scores:
// linear time-decay, the immutable weight table, and the contribution sum
// that produces a clamped [0,100] score.
package scoring

import "time"

// hoursPerDay converts signal age to fractional days.
const hoursPerDay = 24.0

// AgeDays returns the fractional age in days of an event that occurred at
// occurredAt, as seen from now. Future-dated events have age 0.
func AgeDays(occurredAt, now time.Time) float64 {
	age := now.Sub(occurredAt).Hours() / hoursPerDay
	if age < 0 {
		return 0
	}
	return age
}

// DecayFactor returns the linear decay multiplier for a signal of the given
// age: max(0, 1 - ageDays/decayPeriodDays). It is 1 at age 0, decreases
// monotonically, and reaches exactly 0 once the age meets the decay period.
func DecayFactor(ageDays, decayPeriodDays float64) float64 {
	if decayPeriodDays <= 0 {
		return 0
	}
	f := 1 - ageDays/decayPeriodDays
	if f < 0 {
		return 0
	}
	return f
}
