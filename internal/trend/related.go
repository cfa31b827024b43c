package trend

import (
	"strings"

	"TrendRadar/internal/domain"
)

// minSharedKeywords is how many keywords two trends must share to count as related.
const minSharedKeywords = 2

// IsRelated reports whether two trends describe the same story: equal ids, at
// least minSharedKeywords distinct shared keywords (exact, case-sensitive), or
// one title containing the other. An empty title never counts as contained,
// so a trend without a title relates only through its id or keywords.
func IsRelated(a, b domain.TrendItem) bool {
	if a.ID != "" && a.ID == b.ID {
		return true
	}

	if sharedKeywords(a.Keywords, b.Keywords) >= minSharedKeywords {
		return true
	}

	if a.Title == "" || b.Title == "" {
		return false
	}
	return strings.Contains(a.Title, b.Title) || strings.Contains(b.Title, a.Title)
}

func sharedKeywords(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(b))
	for _, k := range b {
		set[k] = struct{}{}
	}

	seen := make(map[string]struct{}, len(a))
	count := 0
	for _, k := range a {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if _, ok := set[k]; ok {
			count++
		}
	}
	return count
}
