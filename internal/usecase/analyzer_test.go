package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendRadar/internal/domain"
	"TrendRadar/internal/infrastructure/storage"
)

func newTestAnalyzer(t *testing.T, provider *policyProvider) (*BatchAnalyzer, *storage.FileArchive) {
	t.Helper()
	archive := newTestArchive(t)
	return NewBatchAnalyzer(AnalyzerDeps{Provider: provider, Archive: archive, Retry: fastRetry(), Now: fixedClock()}), archive
}

func seedIndex(t *testing.T, archive *storage.FileArchive, items ...domain.IndexedItem) {
	t.Helper()
	index := domain.Index{}
	for _, item := range items {
		index[item.ID] = item
	}
	require.NoError(t, archive.SaveIndex(context.Background(), testNow, index))
}

func TestAnalyzeBatchHappyPath(t *testing.T) {
	t.Parallel()
	provider := &policyProvider{}
	a, _ := newTestAnalyzer(t, provider)

	summary, err := a.AnalyzeBatch(context.Background(), testNow, []domain.IndexedItem{indexed("1", "Alpha"), indexed("2", "Beta")})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.Calls())
	assert.Len(t, summary.Topics, 2)
	assert.Equal(t, "batch of 1", summary.Narrative)
}

func TestAnalyzeBatchSkipsFlagged(t *testing.T) {
	t.Parallel()
	provider := &policyProvider{}
	a, _ := newTestAnalyzer(t, provider)

	flagged := indexed("1", "Alpha")
	flagged.Flagged = true

	summary, err := a.AnalyzeBatch(context.Background(), testNow, []domain.IndexedItem{flagged})
	require.NoError(t, err)

	assert.Zero(t, provider.Calls())
	assert.Equal(t, narrativeNoItems, summary.Narrative)
	assert.Empty(t, summary.Topics)
	assert.Equal(t, testNow, summary.Timestamp)
}

func TestAnalyzeBatchIsolatesRejectedItem(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	provider := &policyProvider{}
	a, archive := newTestAnalyzer(t, provider)

	items := []domain.IndexedItem{
		indexed("1", "Alpha"),
		indexed("2", "Beta"),
		indexed("3", "forbidden thing"),
		indexed("4", "Delta"),
	}
	seedIndex(t, archive, items...)

	summary, err := a.AnalyzeBatch(ctx, testNow, items)
	require.NoError(t, err)

	labels := make([]string, 0, len(summary.Topics))
	for _, topic := range summary.Topics {
		labels = append(labels, topic.Label)
	}
	assert.Equal(t, []string{"Alpha", "Beta", "Delta"}, labels)
	assert.Contains(t, summary.Narrative, narrativeFlagged)
	assert.Contains(t, summary.Narrative, " | ")

	index, err := archive.LoadIndex(ctx, testNow)
	require.NoError(t, err)
	assert.True(t, index["3"].Flagged)
	assert.False(t, index["1"].Flagged)

	logged, err := os.ReadFile(filepath.Join(archive.Dir(), "2026-03-10", safetyLogKey))
	require.NoError(t, err)
	assert.Contains(t, string(logged), "[Safety Risk] ID: 3 | Title: forbidden thing")

	// The flagged record is excluded from the next batch without a provider call.
	calls := provider.Calls()
	_, err = a.AnalyzeBatch(ctx, testNow, []domain.IndexedItem{index["3"]})
	require.NoError(t, err)
	assert.Equal(t, calls, provider.Calls())
}

func TestAnalyzeBatchGenericFailureDegrades(t *testing.T) {
	t.Parallel()
	provider := &policyProvider{fail: errors.New("connection reset")}
	a, _ := newTestAnalyzer(t, provider)

	summary, err := a.AnalyzeBatch(context.Background(), testNow, []domain.IndexedItem{indexed("1", "Alpha"), indexed("2", "Beta")})
	require.NoError(t, err)

	assert.Equal(t, 2, provider.Calls(), "one retry before degrading")
	assert.Empty(t, summary.Topics)
	assert.Equal(t, "analysis skipped: connection reset", summary.Narrative)
}

func TestMergeSummariesDropsPlaceholders(t *testing.T) {
	t.Parallel()

	left := domain.TopicSummary{Narrative: "left story", Topics: []domain.Topic{{Label: "L"}}}
	right := domain.TopicSummary{Narrative: narrativeNoItems}

	merged := mergeSummaries(left, right, testNow)
	assert.Equal(t, "left story", merged.Narrative)
	assert.Len(t, merged.Topics, 1)
	assert.Equal(t, testNow, merged.Timestamp)
}

func TestAnalyzeBatchRetriesTransientFailure(t *testing.T) {
	t.Parallel()
	provider := &policyProvider{resets: 1}
	a, _ := newTestAnalyzer(t, provider)

	summary, err := a.AnalyzeBatch(context.Background(), testNow, []domain.IndexedItem{indexed("1", "Alpha")})
	require.NoError(t, err)

	assert.Equal(t, 2, provider.Calls())
	require.Len(t, summary.Topics, 1)
	assert.Equal(t, "Alpha", summary.Topics[0].Label)
}

func TestAnalyzeBatchDoesNotRetryContentPolicy(t *testing.T) {
	t.Parallel()
	provider := &policyProvider{}
	a, archive := newTestAnalyzer(t, provider)

	item := indexed("1", "forbidden thing")
	seedIndex(t, archive, item)

	summary, err := a.AnalyzeBatch(context.Background(), testNow, []domain.IndexedItem{item})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.Calls())
	assert.Equal(t, narrativeFlagged, summary.Narrative)
}

func TestAnalyzeBatchFlagsInResolvedPartition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	provider := &policyProvider{}
	a, archive := newTestAnalyzer(t, provider)

	// Resolved just before midnight; the analyzer clock already reads the next day.
	resolvedDay := testNow.AddDate(0, 0, -1)
	item := indexed("7", "forbidden thing")
	require.NoError(t, archive.SaveIndex(ctx, resolvedDay, domain.Index{"7": item}))

	_, err := a.AnalyzeBatch(ctx, resolvedDay, []domain.IndexedItem{item})
	require.NoError(t, err)

	index, err := archive.LoadIndex(ctx, resolvedDay)
	require.NoError(t, err)
	assert.True(t, index["7"].Flagged)

	today, err := archive.LoadIndex(ctx, testNow)
	require.NoError(t, err)
	assert.Empty(t, today)

	_, err = os.Stat(filepath.Join(archive.Dir(), "2026-03-09", safetyLogKey))
	assert.NoError(t, err)
}
