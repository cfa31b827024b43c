package trend

import (
	"sort"

	"TrendRadar/internal/domain"
)

// Correlate builds one cluster per trend of today, extending it with at most one
// related trend from every historical day. Clusters come back ranked by
// WeightedScore, descending; equal scores keep today's trend order.
//
// IsRising compares today's score with the mean of the matched days only. Days
// without a related trend do not count as zero.
func Correlate(today domain.DailyTrendSummary, history []domain.DailyTrendSummary, streams []domain.StreamItem) []domain.TrendCluster {
	clusters := make([]domain.TrendCluster, 0, len(today.Trends))

	for _, t := range today.Trends {
		cluster := domain.TrendCluster{
			MainTopic:    t.Title,
			Keywords:     t.Keywords,
			DurationDays: 1,
			History:      []domain.HistoryPoint{{Date: today.Date, Score: t.Score, Title: t.Title}},
			RelatedLinks: t.RelatedLinks,
		}

		for _, day := range history {
			for _, candidate := range day.Trends {
				if !IsRelated(t, candidate) {
					continue
				}
				cluster.DurationDays++
				cluster.History = append(cluster.History, domain.HistoryPoint{
					Date:  day.Date,
					Score: candidate.Score,
					Title: candidate.Title,
				})
				break
			}
		}

		sort.SliceStable(cluster.History, func(i, j int) bool {
			return cluster.History[i].Date > cluster.History[j].Date
		})

		if len(cluster.History) > 1 {
			var sum float64
			for _, h := range cluster.History[1:] {
				sum += h.Score
			}
			mean := sum / float64(len(cluster.History)-1)
			cluster.IsRising = cluster.History[0].Score > mean
		}

		if len(streams) > 0 {
			cluster.StreamEvidence = matchingStreams(t, streams)
		}

		clusters = append(clusters, cluster)
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return WeightedScore(clusters[i]) > WeightedScore(clusters[j])
	})
	return clusters
}
