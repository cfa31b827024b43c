package domain

import "time"

// Heat score bounds accepted from the analysis provider.
const (
	MinHeatScore = 1
	MaxHeatScore = 100
)

// Topic is one theme the analysis provider found inside a batch.
type Topic struct {
	Label     string   `json:"label"`
	Entities  []string `json:"entities"`
	HeatScore float64  `json:"heatScore"`
	Category  string   `json:"category"`
	MemberIDs []string `json:"memberIds"`
}

// TopicSummary is the analysis result for one batch of indexed items.
type TopicSummary struct {
	Timestamp time.Time `json:"timestamp"`
	Narrative string    `json:"narrative"`
	Topics    []Topic   `json:"topics"`
}
