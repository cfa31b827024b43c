package domain

import "time"

// StreamItem is one entry of a higher-frequency feed used as corroborating evidence.
type StreamItem struct {
	Timestamp time.Time `json:"timestamp"`
	SourceID  string    `json:"sourceId"`
	Content   string    `json:"content"`
	URL       string    `json:"url"`
}
