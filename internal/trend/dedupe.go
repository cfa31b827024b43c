// Package trend correlates daily topics into multi-day clusters and matches
// stream evidence against them. Matching is deliberately string based:
// substring containment and keyword intersection, no language understanding.
package trend

import (
	"strings"
	"unicode/utf8"

	"TrendRadar/internal/domain"
)

// fuzzyMinLength is the label length (in runes) both sides must exceed before
// substring containment counts as a match.
const fuzzyMinLength = 3

// TopicScore is the slice of a topic the deduplicator works on.
type TopicScore struct {
	Label     string
	HeatScore float64
	MemberIDs []string
}

// Merge records one label folded into another.
type Merge struct {
	From string
	To   string
}

// DedupeResult holds the collapsed topics in first-occurrence order plus the merge log.
type DedupeResult struct {
	Merged   []TopicScore
	MergeLog []Merge
}

type dedupeEntry struct {
	key     string
	topic   TopicScore
	members map[string]struct{}
}

// Dedupe collapses near-duplicate labels within one analysis batch. Two labels match
// when their trimmed lowercase forms are equal, or when both are longer than three
// runes and one contains the other. A match keeps the higher heat score, unions the
// member ids and keeps the longer raw label for display.
func Dedupe(topics []TopicScore) DedupeResult {
	var (
		entries []*dedupeEntry
		log     []Merge
	)

	for _, t := range topics {
		normalized := normalizeLabel(t.Label)

		var hit *dedupeEntry
		for _, e := range entries {
			if labelsMatch(e.key, normalized) {
				hit = e
				break
			}
		}

		if hit == nil {
			e := &dedupeEntry{
				key: normalized,
				topic: TopicScore{
					Label:     t.Label,
					HeatScore: t.HeatScore,
				},
				members: map[string]struct{}{},
			}
			e.addMembers(t.MemberIDs)
			entries = append(entries, e)
			continue
		}

		log = append(log, Merge{From: t.Label, To: hit.topic.Label})
		if t.HeatScore > hit.topic.HeatScore {
			hit.topic.HeatScore = t.HeatScore
		}
		hit.addMembers(t.MemberIDs)
		if utf8.RuneCountInString(t.Label) > utf8.RuneCountInString(hit.topic.Label) {
			hit.topic.Label = t.Label
		}
	}

	merged := make([]TopicScore, 0, len(entries))
	for _, e := range entries {
		merged = append(merged, e.topic)
	}
	return DedupeResult{Merged: merged, MergeLog: log}
}

// TopicScores flattens every topic of the given batches.
func TopicScores(batches []domain.TopicSummary) []TopicScore {
	var out []TopicScore
	for _, b := range batches {
		for _, t := range b.Topics {
			out = append(out, TopicScore{
				Label:     t.Label,
				HeatScore: t.HeatScore,
				MemberIDs: append([]string(nil), t.MemberIDs...),
			})
		}
	}
	return out
}

func (e *dedupeEntry) addMembers(ids []string) {
	for _, id := range ids {
		if _, ok := e.members[id]; ok {
			continue
		}
		e.members[id] = struct{}{}
		e.topic.MemberIDs = append(e.topic.MemberIDs, id)
	}
}

func normalizeLabel(label string) string {
	return strings.TrimSpace(strings.ToLower(label))
}

func labelsMatch(key, normalized string) bool {
	if key == normalized {
		return true
	}
	if utf8.RuneCountInString(key) <= fuzzyMinLength || utf8.RuneCountInString(normalized) <= fuzzyMinLength {
		return false
	}
	return strings.Contains(key, normalized) || strings.Contains(normalized, key)
}
