package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"TrendRadar/internal/config"
	"TrendRadar/internal/scanner"
)

type apiResponse struct {
	Status      string `json:"status"`
	ID          string `json:"id"`
	UpdatedTime int64  `json:"updatedTime"`
	Items       []struct {
		Title string  `json:"title"`
		URL   string  `json:"url"`
		Score float64 `json:"score"`
	} `json:"items"`
}

// APIScanner reads the JSON hotlist format served by the news aggregator.
type APIScanner struct {
	client *http.Client
}

var _ scanner.Scanner = (*APIScanner)(nil)

// NewAPIScanner wires an HTTP client; nil gets a 20s timeout client.
func NewAPIScanner(client *http.Client) *APIScanner {
	return &APIScanner{client: defaultClient(client)}
}

// Name identifies the strategy inside the registry.
func (a *APIScanner) Name() string {
	return config.SourceAPI
}

// Scan fetches one hotlist. Only "success" and "cache" responses are accepted.
func (a *APIScanner) Scan(ctx context.Context, req scanner.Request) ([]scanner.Entry, error) {
	target, err := sourceURL(req.BaseURL, req.Source)
	if err != nil {
		return nil, err
	}

	body, err := get(ctx, a.client, target, req.Source.Headers)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var payload apiResponse
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode hotlist %s: %w", req.Source.ID, err)
	}

	switch payload.Status {
	case "success", "cache":
	default:
		return nil, fmt.Errorf("fetch source %s: status %q", req.Source.ID, payload.Status)
	}

	entries := make([]scanner.Entry, 0, len(payload.Items))
	for i, item := range payload.Items {
		entries = append(entries, scanner.Entry{
			Title: strings.TrimSpace(item.Title),
			URL:   item.URL,
			Rank:  i + 1,
			Score: item.Score,
		})
	}
	return entries, nil
}
