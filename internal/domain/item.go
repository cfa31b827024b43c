package domain

import "time"

// RawItem is one ranked entry produced by a single crawl of a hotlist source.
type RawItem struct {
	Title     string
	URL       string
	SourceID  string
	Rank      int
	Score     float64
	FetchedAt time.Time
}

// IndexedItem is the deduplicated record of a URL within one archive partition.
// MaxRank holds the best (numerically smallest) rank ever observed.
type IndexedItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Sources     []string  `json:"sources"`
	FirstSeen   time.Time `json:"firstSeen"`
	LastSeen    time.Time `json:"lastSeen"`
	MaxRank     int       `json:"maxRank"`
	Occurrences int       `json:"occurrences"`
	Flagged     bool      `json:"flagged,omitempty"`
}

// HasSource reports whether the record was already contributed by sourceID.
func (i IndexedItem) HasSource(sourceID string) bool {
	for _, s := range i.Sources {
		if s == sourceID {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with the receiver.
func (i IndexedItem) Clone() IndexedItem {
	c := i
	c.Sources = append([]string(nil), i.Sources...)
	return c
}

// Index maps record ids to records for one partition.
type Index map[string]IndexedItem
