package trend

import (
	"math"

	"TrendRadar/internal/domain"
)

// DurationWeight boosts trends that persist across days: 1 for a single day,
// then 1 + ln(days)/2.
func DurationWeight(days int) float64 {
	if days <= 1 {
		return 1.0
	}
	return 1.0 + math.Log(float64(days))*0.5
}

// WeightedScore ranks a cluster by its most recent score times its duration weight.
func WeightedScore(c domain.TrendCluster) float64 {
	if len(c.History) == 0 {
		return 0
	}
	return c.History[0].Score * DurationWeight(c.DurationDays)
}
