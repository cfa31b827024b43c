// Package identity folds raw crawl results into a URL-keyed index.
package identity

import (
	"strconv"

	"TrendRadar/internal/domain"
)

// Resolve merges raw into a copy of existing and returns the updated index together
// with the records touched by this call, once each, in first-touch order.
//
// A known URL refreshes lastSeen, keeps the best rank, counts the sighting and adds
// the source if new. An unknown URL gets the next integer id; non-numeric ids in
// existing never take part in that numbering. existing is left untouched.
func Resolve(existing domain.Index, raw []domain.RawItem) (domain.Index, []domain.IndexedItem) {
	index := make(domain.Index, len(existing)+len(raw))
	byURL := make(map[string]string, len(existing)+len(raw))
	maxID := 0

	for id, item := range existing {
		index[id] = item.Clone()
		byURL[item.URL] = id
		if n, err := strconv.Atoi(id); err == nil && n > maxID {
			maxID = n
		}
	}

	touched := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, item := range raw {
		id, known := byURL[item.URL]
		if known {
			record := index[id]
			record.LastSeen = item.FetchedAt
			if item.Rank < record.MaxRank {
				record.MaxRank = item.Rank
			}
			record.Occurrences++
			if item.SourceID != "" && !record.HasSource(item.SourceID) {
				record.Sources = append(record.Sources, item.SourceID)
			}
			index[id] = record
		} else {
			maxID++
			id = strconv.Itoa(maxID)
			byURL[item.URL] = id

			sources := []string{}
			if item.SourceID != "" {
				sources = append(sources, item.SourceID)
			}
			index[id] = domain.IndexedItem{
				ID:          id,
				Title:       item.Title,
				URL:         item.URL,
				Sources:     sources,
				FirstSeen:   item.FetchedAt,
				LastSeen:    item.FetchedAt,
				MaxRank:     item.Rank,
				Occurrences: 1,
			}
		}

		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			touched = append(touched, id)
		}
	}

	resolved := make([]domain.IndexedItem, 0, len(touched))
	for _, id := range touched {
		resolved = append(resolved, index[id].Clone())
	}
	return index, resolved
}
