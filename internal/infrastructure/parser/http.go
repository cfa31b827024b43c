package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"TrendRadar/internal/config"
)

const userAgent = "TrendRadar/1.0"

func defaultClient(client *http.Client) *http.Client {
	if client == nil {
		return &http.Client{Timeout: 20 * time.Second}
	}
	return client
}

// sourceURL resolves where a source is fetched from. API sources without a URL
// use the aggregator endpoint keyed by source id; relative URLs hang off baseURL.
func sourceURL(baseURL string, src config.SourceConfig) (string, error) {
	raw := strings.TrimSpace(src.URL)
	base := strings.TrimRight(baseURL, "/")

	switch {
	case raw == "" && src.Type == config.SourceAPI:
		if base == "" {
			return "", fmt.Errorf("source %s: no url and no crawler base url", src.ID)
		}
		return base + "/api/s?id=" + url.QueryEscape(src.ID), nil
	case raw == "":
		return "", fmt.Errorf("source %s: url is required", src.ID)
	case strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://"):
		return raw, nil
	case base == "":
		return "", fmt.Errorf("source %s: relative url %q without crawler base url", src.ID, raw)
	default:
		return base + "/" + strings.TrimLeft(raw, "/"), nil
	}
}

// get performs the request and hands back the body of a 200 response; the
// caller closes it.
func get(ctx context.Context, client *http.Client, target string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", target, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%s returned %s", target, resp.Status)
	}
	return resp.Body, nil
}
