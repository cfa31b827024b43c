package parser

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"TrendRadar/internal/config"
	"TrendRadar/internal/scanner"
)

// RSSScanner ranks RSS/Atom entries by their position in the feed.
type RSSScanner struct {
	client *http.Client
	parser *gofeed.Parser
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires an HTTP client; nil gets a 20s timeout client.
func NewRSSScanner(client *http.Client) *RSSScanner {
	return &RSSScanner{client: defaultClient(client), parser: gofeed.NewParser()}
}

// Name identifies the strategy inside the registry.
func (r *RSSScanner) Name() string {
	return config.SourceRSS
}

// Scan downloads and parses the feed.
func (r *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]scanner.Entry, error) {
	target, err := sourceURL(req.BaseURL, req.Source)
	if err != nil {
		return nil, err
	}

	body, err := get(ctx, r.client, target, req.Source.Headers)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := r.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", req.Source.ID, err)
	}

	entries := make([]scanner.Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		entry := scanner.Entry{
			Title: title,
			URL:   item.Link,
			Rank:  len(entries) + 1,
		}
		if item.PublishedParsed != nil {
			entry.PublishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			entry.PublishedAt = *item.UpdatedParsed
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
