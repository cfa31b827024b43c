package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendRadar/internal/domain"
)

var fetchedAt = time.Date(2026, time.February, 6, 10, 0, 0, 0, time.UTC)

func findByURL(index domain.Index, url string) (domain.IndexedItem, bool) {
	for _, item := range index {
		if item.URL == url {
			return item, true
		}
	}
	return domain.IndexedItem{}, false
}

func TestResolveDeduplicatesAgainstEmptyIndex(t *testing.T) {
	t.Parallel()

	raw := []domain.RawItem{
		{Title: "News A", URL: "url-a", SourceID: "weibo", Rank: 1, FetchedAt: fetchedAt},
		{Title: "News A", URL: "url-a", SourceID: "zhihu", Rank: 5, FetchedAt: fetchedAt},
		{Title: "News B", URL: "url-b", SourceID: "weibo", Rank: 2, FetchedAt: fetchedAt},
	}

	index, resolved := Resolve(domain.Index{}, raw)

	require.Len(t, index, 2)
	a, ok := findByURL(index, "url-a")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"weibo", "zhihu"}, a.Sources)
	assert.Equal(t, 2, a.Occurrences)
	assert.Equal(t, 1, a.MaxRank)

	require.Len(t, resolved, 2)
	assert.Equal(t, "url-a", resolved[0].URL)
	assert.Equal(t, "url-b", resolved[1].URL)
	assert.Equal(t, 2, resolved[0].Occurrences)
}

func TestResolveSharedURLCountsEveryIngestion(t *testing.T) {
	t.Parallel()

	sources := []string{"s1", "s2", "s1", "s3", "", "s2"}
	raw := make([]domain.RawItem, 0, len(sources))
	for i, src := range sources {
		raw = append(raw, domain.RawItem{Title: "same", URL: "u", SourceID: src, Rank: 10 - i, FetchedAt: fetchedAt.Add(time.Duration(i) * time.Minute)})
	}

	index, _ := Resolve(nil, raw)

	require.Len(t, index, 1)
	record := index["1"]
	assert.Equal(t, len(sources), record.Occurrences)
	assert.Equal(t, []string{"s1", "s2", "s3"}, record.Sources)
	assert.Equal(t, 5, record.MaxRank)
	assert.Equal(t, fetchedAt, record.FirstSeen)
	assert.Equal(t, fetchedAt.Add(5*time.Minute), record.LastSeen)
}

func TestResolveUpdatesExistingIndex(t *testing.T) {
	t.Parallel()

	firstSeen := time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC)
	existing := domain.Index{
		"1": {ID: "1", Title: "Old News A", URL: "url-a", Sources: []string{"weibo"}, FirstSeen: firstSeen, LastSeen: firstSeen, MaxRank: 10, Occurrences: 1},
		"legacy": {ID: "legacy", Title: "Legacy", URL: "url-l", Sources: []string{}, MaxRank: 3, Occurrences: 1},
	}

	index, resolved := Resolve(existing, []domain.RawItem{
		{Title: "News A", URL: "url-a", SourceID: "zhihu", Rank: 2, FetchedAt: fetchedAt},
		{Title: "News C", URL: "url-c", SourceID: "weibo", Rank: 3, FetchedAt: fetchedAt},
	})

	updated := index["1"]
	assert.Equal(t, []string{"weibo", "zhihu"}, updated.Sources)
	assert.Equal(t, 2, updated.Occurrences)
	assert.Equal(t, 2, updated.MaxRank)
	assert.Equal(t, fetchedAt, updated.LastSeen)
	assert.Equal(t, firstSeen, updated.FirstSeen)

	created, ok := index["2"]
	require.True(t, ok, "non-numeric ids must not affect numbering")
	assert.Equal(t, "url-c", created.URL)
	assert.Equal(t, 1, created.Occurrences)

	require.Len(t, resolved, 2)
	assert.Equal(t, "1", resolved[0].ID)
	assert.Equal(t, "2", resolved[1].ID)

	assert.Equal(t, []string{"weibo"}, existing["1"].Sources, "input index must not be mutated")
	assert.Equal(t, 1, existing["1"].Occurrences)
}

func TestResolveEmptyInput(t *testing.T) {
	t.Parallel()

	existing := domain.Index{"7": {ID: "7", URL: "u7", Sources: []string{"a"}, Occurrences: 3}}

	index, resolved := Resolve(existing, nil)

	assert.Equal(t, existing, index)
	assert.Empty(t, resolved)
}
