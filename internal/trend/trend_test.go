package trend

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendRadar/internal/domain"
)

func trendItem(id, title string, score float64, keywords ...string) domain.TrendItem {
	return domain.TrendItem{ID: id, Title: title, Score: score, Keywords: keywords}
}

func daySummary(date string, trends ...domain.TrendItem) domain.DailyTrendSummary {
	return domain.DailyTrendSummary{Date: date, Trends: trends}
}

func TestDurationWeight(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1.0, DurationWeight(0))
	assert.Equal(t, 1.0, DurationWeight(1))
	assert.InDelta(t, 1.346, DurationWeight(2), 0.001)
	assert.InDelta(t, 1.972, DurationWeight(7), 0.001)

	prev := DurationWeight(1)
	for days := 2; days <= 60; days++ {
		w := DurationWeight(days)
		if w <= prev {
			t.Fatalf("weight(%d)=%f not above weight(%d)=%f", days, w, days-1, prev)
		}
		prev = w
	}
}

func TestIsRelated(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a, b domain.TrendItem
		want bool
	}{
		{"same id", trendItem("x", "Alpha", 1), trendItem("x", "Beta", 1), true},
		{"two shared keywords", trendItem("a", "DeepSeek API Launch", 1, "DeepSeek", "LLM", "API"), trendItem("b", "Chinese model news", 1, "DeepSeek", "LLM", "China"), true},
		{"one shared keyword", trendItem("a", "Alpha", 1, "k1", "k2"), trendItem("b", "Beta", 1, "k1", "k3"), false},
		{"duplicate keyword counted once", trendItem("a", "Alpha", 1, "k1", "k1"), trendItem("b", "Beta", 1, "k1"), false},
		{"title containment", trendItem("a", "SpaceX Launch", 1), trendItem("b", "SpaceX Launch Delayed Again", 1), true},
		{"empty title never contains", trendItem("a", "", 1), trendItem("b", "Anything", 1), false},
		{"empty title relates through keywords", trendItem("a", "", 1, "k1", "k2"), trendItem("b", "Beta", 1, "k1", "k2"), true},
		{"unrelated", trendItem("a", "Alpha", 1, "k1"), trendItem("b", "Beta", 1, "k2"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRelated(tc.a, tc.b))
			assert.Equal(t, tc.want, IsRelated(tc.b, tc.a))
		})
	}
}

func TestCorrelateCountsEveryMatchingDay(t *testing.T) {
	t.Parallel()

	today := daySummary("2026-02-05", trendItem("long", "Long Trend", 50, "l"))
	history := []domain.DailyTrendSummary{
		daySummary("2026-02-02", trendItem("long", "Long Trend", 40, "l")),
		daySummary("2026-02-04", trendItem("long", "Long Trend", 20, "l")),
		daySummary("2026-02-03", trendItem("long", "Long Trend", 30, "l")),
	}

	clusters := Correlate(today, history, nil)

	require.Len(t, clusters, 1)
	c := clusters[0]
	assert.Equal(t, 4, c.DurationDays)
	require.Len(t, c.History, 4)
	assert.Equal(t, []string{"2026-02-05", "2026-02-04", "2026-02-03", "2026-02-02"},
		[]string{c.History[0].Date, c.History[1].Date, c.History[2].Date, c.History[3].Date})
	assert.True(t, c.IsRising)
	assert.Nil(t, c.StreamEvidence)
}

func TestCorrelateMatchesAtMostOncePerDay(t *testing.T) {
	t.Parallel()

	today := daySummary("2026-02-05", trendItem("t1", "Trend A", 50, "k1"))
	history := []domain.DailyTrendSummary{
		daySummary("2026-02-04", trendItem("t1", "Trend A", 60, "k1"), trendItem("t1", "Trend A", 70, "k1")),
	}

	clusters := Correlate(today, history, nil)

	require.Len(t, clusters, 1)
	assert.Equal(t, 2, clusters[0].DurationDays)
	assert.Equal(t, 60.0, clusters[0].History[1].Score)
	assert.False(t, clusters[0].IsRising)
}

func TestCorrelateIsRisingIgnoresGapDays(t *testing.T) {
	t.Parallel()

	today := daySummary("2026-02-05", trendItem("t1", "Trend A", 45))
	history := []domain.DailyTrendSummary{
		daySummary("2026-02-04", trendItem("other", "Unrelated", 99)),
		daySummary("2026-02-03", trendItem("t1", "Trend A", 40)),
	}

	clusters := Correlate(today, history, nil)

	require.Len(t, clusters, 1)
	assert.Equal(t, 2, clusters[0].DurationDays)
	assert.True(t, clusters[0].IsRising)
}

func TestCorrelateRanksByWeightedScore(t *testing.T) {
	t.Parallel()

	today := daySummary("2026-02-05",
		trendItem("short", "Short Trend", 80, "s"),
		trendItem("long", "Long Trend", 50, "l"),
	)
	var history []domain.DailyTrendSummary
	for _, date := range []string{"2026-02-04", "2026-02-03", "2026-02-02", "2026-02-01"} {
		history = append(history, daySummary(date, trendItem("long", "Long Trend", 50, "l")))
	}

	clusters := Correlate(today, history, nil)

	require.Len(t, clusters, 2)
	assert.Equal(t, "Long Trend", clusters[0].MainTopic)
	assert.InDelta(t, 50*(1+math.Log(5)*0.5), WeightedScore(clusters[0]), 1e-9)
	assert.Equal(t, "Short Trend", clusters[1].MainTopic)
}

func TestCorrelateAttachesStreamEvidence(t *testing.T) {
	t.Parallel()

	today := daySummary("2026-02-05", trendItem("t1", "SpaceX Launch", 10, "SpaceX", "Mars"))
	streams := []domain.StreamItem{
		{Content: "Breaking: spacex launch succeeds"},
		{Content: "Mars rover update"},
		{Content: "Weather is nice"},
	}

	clusters := Correlate(today, nil, streams)

	require.Len(t, clusters, 1)
	require.Len(t, clusters[0].StreamEvidence, 2)
	assert.Equal(t, "Mars rover update", clusters[0].StreamEvidence[1].Content)
}

func TestCorrelateStreamsOmitsUnmatchedTrends(t *testing.T) {
	t.Parallel()

	trends := []domain.TrendItem{
		trendItem("t1", "SpaceX Launch", 10, "SpaceX", "Mars"),
		trendItem("t2", "Election", 10, ""),
	}
	streams := []domain.StreamItem{{Content: "Falcon by SPACEX"}, {Content: "cats"}}

	got := CorrelateStreams(trends, streams)

	require.Len(t, got, 1)
	require.Len(t, got["t1"], 1)
	_, ok := got["t2"]
	assert.False(t, ok)
}

func TestDetectSentinels(t *testing.T) {
	t.Parallel()

	known := []domain.TrendItem{trendItem("t1", "SpaceX", 10, "Mars")}
	var streams []domain.StreamItem
	for i := 0; i < 3; i++ {
		streams = append(streams,
			domain.StreamItem{Content: " new chip export rules "},
			domain.StreamItem{Content: "SpaceX again"},
		)
	}
	streams = append(streams,
		domain.StreamItem{Content: "one-off"},
		domain.StreamItem{Content: "twice"},
		domain.StreamItem{Content: "twice"},
		domain.StreamItem{Content: "   "},
		domain.StreamItem{Content: ""},
		domain.StreamItem{Content: "\t"},
	)

	assert.Equal(t, []string{"new chip export rules"}, DetectSentinels(streams, known, 3))
	assert.Equal(t, []string{"new chip export rules", "twice"}, DetectSentinels(streams, known, 2))
	assert.Equal(t, []string{"new chip export rules"}, DetectSentinels(streams, known, 0))
}

func TestDedupeCollapsesNearDuplicates(t *testing.T) {
	t.Parallel()

	res := Dedupe([]TopicScore{
		{Label: "AI Chips", HeatScore: 40, MemberIDs: []string{"1"}},
		{Label: "ai chips export ban", HeatScore: 70, MemberIDs: []string{"2", "1"}},
		{Label: "Oil", HeatScore: 30, MemberIDs: []string{"3"}},
		{Label: "Oil prices", HeatScore: 50, MemberIDs: []string{"4"}},
		{Label: "OIL", HeatScore: 10, MemberIDs: []string{"5"}},
	})

	require.Len(t, res.Merged, 3)
	assert.Equal(t, TopicScore{Label: "ai chips export ban", HeatScore: 70, MemberIDs: []string{"1", "2"}}, res.Merged[0])
	// "oil" is too short for containment, so "Oil prices" stays separate.
	assert.Equal(t, "Oil", res.Merged[1].Label)
	assert.Equal(t, []string{"3", "5"}, res.Merged[1].MemberIDs)
	assert.Equal(t, 30.0, res.Merged[1].HeatScore)
	assert.Equal(t, "Oil prices", res.Merged[2].Label)
	assert.Equal(t, []Merge{
		{From: "ai chips export ban", To: "AI Chips"},
		{From: "OIL", To: "Oil"},
	}, res.MergeLog)
}

func TestDedupeLengthThresholdIsExclusive(t *testing.T) {
	t.Parallel()

	res := Dedupe([]TopicScore{
		{Label: "abcd", HeatScore: 1},
		{Label: "abcde", HeatScore: 2},
		{Label: "xyz", HeatScore: 1},
		{Label: "xyzw", HeatScore: 1},
	})

	require.Len(t, res.Merged, 3)
	assert.Equal(t, "abcde", res.Merged[0].Label)
	assert.Equal(t, "xyz", res.Merged[1].Label)
	assert.Equal(t, "xyzw", res.Merged[2].Label)
}

func TestAggregateDailyMergesRepeatedLabels(t *testing.T) {
	t.Parallel()

	morning := time.Date(2026, 2, 5, 8, 0, 0, 0, time.UTC)
	noon := morning.Add(4 * time.Hour)
	index := domain.Index{
		"1": {ID: "1", URL: "https://a"},
		"2": {ID: "2", URL: "https://b"},
	}
	batches := []domain.TopicSummary{
		{Timestamp: morning, Topics: []domain.Topic{
			{Label: "Chips", Entities: []string{"Nvidia", "TSMC"}, HeatScore: 40, Category: "tech", MemberIDs: []string{"1"}},
		}},
		{Timestamp: noon, Topics: []domain.Topic{
			{Label: "Chips", Entities: []string{"TSMC", "ASML"}, HeatScore: 65, MemberIDs: []string{"1", "2", "missing"}},
			{Label: "Oil", Entities: []string{"OPEC"}, HeatScore: 20},
		}},
	}

	summary := AggregateDaily(batches, "2026-02-05", noon, index)

	assert.Equal(t, "2026-02-05", summary.Date)
	require.Len(t, summary.Trends, 2)
	chips := summary.Trends[0]
	assert.Equal(t, TrendID("Chips"), chips.ID)
	assert.Equal(t, "Q2hpcHM", chips.ID)
	assert.Equal(t, 65.0, chips.Score)
	assert.Equal(t, []string{"Nvidia", "TSMC", "ASML"}, chips.Keywords)
	assert.Equal(t, morning, chips.FirstSeenAt)
	assert.Equal(t, "tech", chips.Category)
	assert.Equal(t, []string{"https://a", "https://b"}, chips.RelatedLinks)
	assert.Equal(t, noon, summary.Trends[1].FirstSeenAt)
	assert.Empty(t, summary.Trends[1].RelatedLinks)
}
