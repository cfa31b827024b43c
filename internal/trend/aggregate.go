package trend

import (
	"encoding/base64"
	"time"

	"TrendRadar/internal/domain"
)

// TrendID derives the stable trend key for a topic label so repeats across
// batches of the same day merge.
func TrendID(label string) string {
	return base64.RawStdEncoding.EncodeToString([]byte(label))
}

// AggregateDaily folds every batch of a day into one DailyTrendSummary. Topics
// sharing a label merge: the score is the maximum, keywords are unioned, and the
// first batch that mentioned the label supplies FirstSeenAt. When index is not
// nil, member ids resolve to related links.
func AggregateDaily(batches []domain.TopicSummary, date string, generatedAt time.Time, index domain.Index) domain.DailyTrendSummary {
	var (
		order  []string
		trends = map[string]*domain.TrendItem{}
		links  = map[string]map[string]struct{}{}
	)

	for _, batch := range batches {
		for _, topic := range batch.Topics {
			id := TrendID(topic.Label)

			existing, ok := trends[id]
			if !ok {
				existing = &domain.TrendItem{
					ID:           id,
					Title:        topic.Label,
					Keywords:     unionStrings(nil, topic.Entities),
					Score:        topic.HeatScore,
					Category:     topic.Category,
					FirstSeenAt:  batch.Timestamp,
					RelatedLinks: []string{},
				}
				trends[id] = existing
				links[id] = map[string]struct{}{}
				order = append(order, id)
			} else {
				if topic.HeatScore > existing.Score {
					existing.Score = topic.HeatScore
				}
				existing.Keywords = unionStrings(existing.Keywords, topic.Entities)
			}

			for _, memberID := range topic.MemberIDs {
				item, found := index[memberID]
				if !found || item.URL == "" {
					continue
				}
				if _, dup := links[id][item.URL]; dup {
					continue
				}
				links[id][item.URL] = struct{}{}
				existing.RelatedLinks = append(existing.RelatedLinks, item.URL)
			}
		}
	}

	summary := domain.DailyTrendSummary{
		Date:        date,
		GeneratedAt: generatedAt,
		Trends:      make([]domain.TrendItem, 0, len(order)),
	}
	for _, id := range order {
		summary.Trends = append(summary.Trends, *trends[id])
	}
	return summary
}

func unionStrings(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, s := range list {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
