package domain

import "time"

// TrendItem aggregates every topic of one day that shares a label.
type TrendItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Keywords     []string  `json:"keywords"`
	Score        float64   `json:"score"`
	Category     string    `json:"category,omitempty"`
	FirstSeenAt  time.Time `json:"firstSeenAt"`
	RelatedLinks []string  `json:"relatedLinks"`
}

// DailyTrendSummary is the persisted per-day trend artifact. Date is YYYY-MM-DD.
type DailyTrendSummary struct {
	Date        string      `json:"date"`
	GeneratedAt time.Time   `json:"generatedAt"`
	Trends      []TrendItem `json:"trends"`
}

// HistoryPoint is one day of a cluster's history.
type HistoryPoint struct {
	Date  string  `json:"date"`
	Score float64 `json:"score"`
	Title string  `json:"title"`
}

// TrendCluster is the multi-day view of one of today's trends. It is rebuilt on
// every correlation run and never persisted directly.
type TrendCluster struct {
	MainTopic      string         `json:"mainTopic"`
	Keywords       []string       `json:"keywords"`
	DurationDays   int            `json:"durationDays"`
	IsRising       bool           `json:"isRising"`
	History        []HistoryPoint `json:"history"`
	StreamEvidence []StreamItem   `json:"streamEvidence"`
	RelatedLinks   []string       `json:"relatedLinks"`
}
