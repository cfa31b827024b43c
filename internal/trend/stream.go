package trend

import (
	"strings"

	"TrendRadar/internal/domain"
)

// DefaultSentinelOccurrences is how often uncorrelated content must repeat to be surfaced.
const DefaultSentinelOccurrences = 3

// Mentions reports whether a stream item's content contains the trend title or any
// of its keywords, case-insensitively. Empty keywords never match.
func Mentions(t domain.TrendItem, item domain.StreamItem) bool {
	content := strings.ToLower(item.Content)
	if title := strings.ToLower(t.Title); title != "" && strings.Contains(content, title) {
		return true
	}
	for _, k := range t.Keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(content, k) {
			return true
		}
	}
	return false
}

// CorrelateStreams maps trend ids to the stream items mentioning them. Trends
// without a single match are left out.
func CorrelateStreams(trends []domain.TrendItem, streams []domain.StreamItem) map[string][]domain.StreamItem {
	out := make(map[string][]domain.StreamItem)
	for _, t := range trends {
		if matches := matchingStreams(t, streams); len(matches) > 0 {
			out[t.ID] = matches
		}
	}
	return out
}

// DetectSentinels surfaces stream content that no known trend explains yet and
// that repeats verbatim (after trimming) at least minOccurrences times. Results
// keep the order of first occurrence. A non-positive minOccurrences falls back
// to DefaultSentinelOccurrences.
func DetectSentinels(streams []domain.StreamItem, known []domain.TrendItem, minOccurrences int) []string {
	if minOccurrences <= 0 {
		minOccurrences = DefaultSentinelOccurrences
	}

	var (
		order  []string
		counts = map[string]int{}
	)
	for _, item := range streams {
		if mentionedByAny(known, item) {
			continue
		}
		key := strings.TrimSpace(item.Content)
		if key == "" {
			continue
		}
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}

	var sentinels []string
	for _, key := range order {
		if counts[key] >= minOccurrences {
			sentinels = append(sentinels, key)
		}
	}
	return sentinels
}

func matchingStreams(t domain.TrendItem, streams []domain.StreamItem) []domain.StreamItem {
	var matches []domain.StreamItem
	for _, item := range streams {
		if Mentions(t, item) {
			matches = append(matches, item)
		}
	}
	return matches
}

func mentionedByAny(trends []domain.TrendItem, item domain.StreamItem) bool {
	for _, t := range trends {
		if Mentions(t, item) {
			return true
		}
	}
	return false
}
