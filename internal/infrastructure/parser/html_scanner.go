package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"TrendRadar/internal/config"
	"TrendRadar/internal/scanner"
)

// HTMLScanner extracts ranked links from a page using the source's CSS selector.
type HTMLScanner struct {
	client *http.Client
}

var _ scanner.Scanner = (*HTMLScanner)(nil)

// NewHTMLScanner wires an HTTP client; nil gets a 20s timeout client.
func NewHTMLScanner(client *http.Client) *HTMLScanner {
	return &HTMLScanner{client: defaultClient(client)}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScanner) Name() string {
	return config.SourceHTML
}

// Scan walks every element matched by the selector in document order.
func (h *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]scanner.Entry, error) {
	if strings.TrimSpace(req.Source.Selector) == "" {
		return nil, fmt.Errorf("source %s: html sources need a selector", req.Source.ID)
	}

	target, err := sourceURL(req.BaseURL, req.Source)
	if err != nil {
		return nil, err
	}

	doc, err := h.fetchDocument(ctx, target, req.Source.Headers)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", req.Source.ID, err)
	}

	page, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", req.Source.ID, err)
	}

	return extractEntries(doc, req.Source.Selector, page), nil
}

func (h *HTMLScanner) fetchDocument(ctx context.Context, pageURL string, headers map[string]string) (*goquery.Document, error) {
	body, err := get(ctx, h.client, pageURL, headers)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func extractEntries(doc *goquery.Document, selector string, page *url.URL) []scanner.Entry {
	var (
		entries []scanner.Entry
		seen    = map[string]struct{}{}
	)

	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		entry, ok := parseLink(sel, page)
		if !ok {
			return
		}
		if _, dup := seen[entry.URL]; dup {
			return
		}
		seen[entry.URL] = struct{}{}
		entry.Rank = len(entries) + 1
		entries = append(entries, entry)
	})

	return entries
}

// parseLink reads an anchor, or the first anchor inside a matched container.
func parseLink(sel *goquery.Selection, page *url.URL) (scanner.Entry, bool) {
	link := sel
	if goquery.NodeName(sel) != "a" {
		link = sel.Find("a[href]").First()
	}

	href, exists := link.Attr("href")
	href = strings.TrimSpace(href)
	if !exists || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return scanner.Entry{}, false
	}

	title := strings.Join(strings.Fields(link.Text()), " ")
	if title == "" {
		title = strings.TrimSpace(link.AttrOr("title", ""))
	}
	if title == "" {
		return scanner.Entry{}, false
	}

	resolved, err := page.Parse(href)
	if err != nil {
		return scanner.Entry{}, false
	}

	return scanner.Entry{Title: title, URL: resolved.String()}, true
}
